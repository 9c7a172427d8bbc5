// Code in this file is the hand-maintained stand-in for protocol/gen's
// output: one struct per kept message in the curated descriptor table
// (protocol/messages/template.txt), each implementing the Message
// interface. cmd/vmtgen emits only the struct, registration and Type()
// scaffold for these messages; the Length/Encode/Decode/Split bodies here
// are written by hand, and no build step regenerates this file.
package messages

import (
	"fmt"

	"dev.mvwire.core/internal/types"
	"dev.mvwire.core/protocol/descriptor"
)

var typeNames = map[PacketType]string{}
var factories = map[PacketType]func() Message{}
var deprecatedTypes = map[PacketType]bool{}

func register(freq descriptor.Frequency, id uint16, name string, ctor func() Message) PacketType {
	t := Tag(freq, id)
	typeNames[t] = name
	factories[t] = ctor
	return t
}

// deprecated flags a registered type as deprecated per the descriptor
// table's UDPDeprecated: it still encodes/decodes normally, but
// messages.Decode logs a warning whenever one arrives on the wire.
func deprecated(t PacketType) PacketType {
	deprecatedTypes[t] = true
	return t
}

// --- UseCircuitCode ---------------------------------------------------

var TypeUseCircuitCode = register(descriptor.Low, 3, "UseCircuitCode", func() Message { return &UseCircuitCode{} })

type UseCircuitCode struct {
	Code      uint32
	SessionID types.UUID
	ID        types.UUID
}

func (m *UseCircuitCode) Type() PacketType { return TypeUseCircuitCode }
func (m *UseCircuitCode) Length() int      { return 4 + 16 + 16 }

func (m *UseCircuitCode) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.U32(m.Code)
	w.UUID(m.SessionID)
	w.UUID(m.ID)
	return w.Bytes()
}

func (m *UseCircuitCode) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.Code, err = r.U32(); err != nil {
		return err
	}
	if m.SessionID, err = r.UUID(); err != nil {
		return err
	}
	if m.ID, err = r.UUID(); err != nil {
		return err
	}
	return nil
}

func (m *UseCircuitCode) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- RegionHandshake ----------------------------------------------------

var TypeRegionHandshake = register(descriptor.Low, 148, "RegionHandshake", func() Message { return &RegionHandshake{} })

type RegionHandshake struct {
	RegionFlags   uint32
	SimAccess     uint8
	SimName       []byte
	WaterHeight   float32
	BillableFactor float32
	CacheID       types.UUID
}

func (m *RegionHandshake) Type() PacketType { return TypeRegionHandshake }

func (m *RegionHandshake) Length() int {
	return 4 + 1 + varBytesLen(1, m.SimName) + 4 + 4 + 16
}

func (m *RegionHandshake) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.U32(m.RegionFlags)
	w.U8(m.SimAccess)
	writeVarBytes(w, 1, m.SimName)
	w.F32(m.WaterHeight)
	w.F32(m.BillableFactor)
	w.UUID(m.CacheID)
	return w.Bytes()
}

func (m *RegionHandshake) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.RegionFlags, err = r.U32(); err != nil {
		return err
	}
	if m.SimAccess, err = r.U8(); err != nil {
		return err
	}
	if m.SimName, err = readVarBytes(r, 1); err != nil {
		return err
	}
	if m.WaterHeight, err = r.F32(); err != nil {
		return err
	}
	if m.BillableFactor, err = r.F32(); err != nil {
		return err
	}
	if m.CacheID, err = r.UUID(); err != nil {
		return err
	}
	return nil
}

func (m *RegionHandshake) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- RegionHandshakeReply ------------------------------------------------

var TypeRegionHandshakeReply = register(descriptor.Low, 149, "RegionHandshakeReply", func() Message { return &RegionHandshakeReply{} })

type RegionHandshakeReply struct {
	Flags uint32
}

func (m *RegionHandshakeReply) Type() PacketType { return TypeRegionHandshakeReply }
func (m *RegionHandshakeReply) Length() int      { return 4 }
func (m *RegionHandshakeReply) Encode() []byte {
	w := types.NewWriter(4)
	w.U32(m.Flags)
	return w.Bytes()
}
func (m *RegionHandshakeReply) Decode(payload []byte) error {
	r := types.NewReader(payload)
	v, err := r.U32()
	m.Flags = v
	return err
}
func (m *RegionHandshakeReply) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- StartPingCheck / CompletePingCheck ----------------------------------

var TypeStartPingCheck = register(descriptor.High, 1, "StartPingCheck", func() Message { return &StartPingCheck{} })

type StartPingCheck struct {
	PingID        uint8
	OldestUnacked uint32
}

func (m *StartPingCheck) Type() PacketType { return TypeStartPingCheck }
func (m *StartPingCheck) Length() int      { return 1 + 4 }
func (m *StartPingCheck) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.U8(m.PingID)
	w.U32(m.OldestUnacked)
	return w.Bytes()
}
func (m *StartPingCheck) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.PingID, err = r.U8(); err != nil {
		return err
	}
	m.OldestUnacked, err = r.U32()
	return err
}
func (m *StartPingCheck) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

var TypeCompletePingCheck = register(descriptor.High, 2, "CompletePingCheck", func() Message { return &CompletePingCheck{} })

type CompletePingCheck struct {
	PingID uint8
}

func (m *CompletePingCheck) Type() PacketType { return TypeCompletePingCheck }
func (m *CompletePingCheck) Length() int      { return 1 }
func (m *CompletePingCheck) Encode() []byte {
	w := types.NewWriter(1)
	w.U8(m.PingID)
	return w.Bytes()
}
func (m *CompletePingCheck) Decode(payload []byte) error {
	r := types.NewReader(payload)
	v, err := r.U8()
	m.PingID = v
	return err
}
func (m *CompletePingCheck) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- PacketAck (Fixed frequency, Variable block of u32 acks) -------------

var TypePacketAck = register(descriptor.Fixed, 2, "PacketAck", func() Message { return &PacketAck{} })

type PacketAck struct {
	Packets []uint32
}

func (m *PacketAck) Type() PacketType { return TypePacketAck }

func (m *PacketAck) Length() int { return 1 + 4*len(m.Packets) }

func (m *PacketAck) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.U8(uint8(len(m.Packets)))
	for _, id := range m.Packets {
		w.U32(id)
	}
	return w.Bytes()
}

func (m *PacketAck) Decode(payload []byte) error {
	r := types.NewReader(payload)
	n, err := r.U8()
	if err != nil {
		return err
	}
	m.Packets = make([]uint32, n)
	for i := range m.Packets {
		if m.Packets[i], err = r.U32(); err != nil {
			return err
		}
	}
	return nil
}

func (m *PacketAck) Split(maxPayload int) [][]byte {
	elems := make([][]byte, len(m.Packets))
	for i, id := range m.Packets {
		var b [4]byte
		w := types.NewWriter(4)
		w.U32(id)
		copy(b[:], w.Bytes())
		elems[i] = b[:]
	}
	return splitVariableBlock(nil, elems, maxPayload)
}

// --- AgentThrottle (Medium, Fixed[28] packed channel vector) --------------

var TypeAgentThrottle = register(descriptor.Medium, 81, "AgentThrottle", func() Message { return &AgentThrottle{} })

type AgentThrottle struct {
	AgentID     types.UUID
	SessionID   types.UUID
	CircuitCode uint32
	GenCounter  uint32
	Throttles   [28]byte // 7 little-endian float32 channel bytes-per-second values
}

func (m *AgentThrottle) Type() PacketType { return TypeAgentThrottle }
func (m *AgentThrottle) Length() int      { return 16 + 16 + 4 + 4 + 28 }

func (m *AgentThrottle) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	w.U32(m.CircuitCode)
	w.U32(m.GenCounter)
	w.Raw(m.Throttles[:])
	return w.Bytes()
}

func (m *AgentThrottle) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	if m.SessionID, err = r.UUID(); err != nil {
		return err
	}
	if m.CircuitCode, err = r.U32(); err != nil {
		return err
	}
	if m.GenCounter, err = r.U32(); err != nil {
		return err
	}
	b, err := r.Bytes(28)
	if err != nil {
		return err
	}
	copy(m.Throttles[:], b)
	return nil
}

func (m *AgentThrottle) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- AgentUpdate (High) ---------------------------------------------------

var TypeAgentUpdate = register(descriptor.High, 4, "AgentUpdate", func() Message { return &AgentUpdate{} })

type AgentUpdate struct {
	AgentID      types.UUID
	SessionID    types.UUID
	BodyRotation types.Quaternion
	HeadRotation types.Quaternion
	State        uint8
	CameraCenter types.Vector3
	CameraAtAxis types.Vector3
	CameraLeftAxis types.Vector3
	CameraUpAxis types.Vector3
	Far          float32
	ControlFlags uint32
	Flags        uint8
}

func (m *AgentUpdate) Type() PacketType { return TypeAgentUpdate }

func (m *AgentUpdate) Length() int {
	return 16 + 16 + 12 + 12 + 1 + 12 + 12 + 12 + 12 + 4 + 4 + 1
}

func (m *AgentUpdate) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	w.Quaternion(m.BodyRotation)
	w.Quaternion(m.HeadRotation)
	w.U8(m.State)
	w.Vector3(m.CameraCenter)
	w.Vector3(m.CameraAtAxis)
	w.Vector3(m.CameraLeftAxis)
	w.Vector3(m.CameraUpAxis)
	w.F32(m.Far)
	w.U32(m.ControlFlags)
	w.U8(m.Flags)
	return w.Bytes()
}

func (m *AgentUpdate) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	if m.SessionID, err = r.UUID(); err != nil {
		return err
	}
	if m.BodyRotation, err = r.Quaternion(); err != nil {
		return err
	}
	if m.HeadRotation, err = r.Quaternion(); err != nil {
		return err
	}
	if m.State, err = r.U8(); err != nil {
		return err
	}
	if m.CameraCenter, err = r.Vector3(); err != nil {
		return err
	}
	if m.CameraAtAxis, err = r.Vector3(); err != nil {
		return err
	}
	if m.CameraLeftAxis, err = r.Vector3(); err != nil {
		return err
	}
	if m.CameraUpAxis, err = r.Vector3(); err != nil {
		return err
	}
	if m.Far, err = r.F32(); err != nil {
		return err
	}
	if m.ControlFlags, err = r.U32(); err != nil {
		return err
	}
	m.Flags, err = r.U8()
	return err
}

func (m *AgentUpdate) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- ChatFromViewer (Low, two Single blocks) ------------------------------

var TypeChatFromViewer = register(descriptor.Low, 80, "ChatFromViewer", func() Message { return &ChatFromViewer{} })

type ChatFromViewer struct {
	AgentID   types.UUID
	SessionID types.UUID
	Message   []byte
	ChatType  uint8
	Channel   int32
}

func (m *ChatFromViewer) Type() PacketType { return TypeChatFromViewer }

func (m *ChatFromViewer) Length() int {
	return 16 + 16 + varBytesLen(2, m.Message) + 1 + 4
}

func (m *ChatFromViewer) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	writeVarBytes(w, 2, m.Message)
	w.U8(m.ChatType)
	w.S32(m.Channel)
	return w.Bytes()
}

func (m *ChatFromViewer) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	if m.SessionID, err = r.UUID(); err != nil {
		return err
	}
	if m.Message, err = readVarBytes(r, 2); err != nil {
		return err
	}
	if m.ChatType, err = r.U8(); err != nil {
		return err
	}
	m.Channel, err = r.S32()
	return err
}

func (m *ChatFromViewer) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- ChatFromSimulator (Low) ----------------------------------------------

var TypeChatFromSimulator = register(descriptor.Low, 139, "ChatFromSimulator", func() Message { return &ChatFromSimulator{} })

type ChatFromSimulator struct {
	FromName   []byte
	SourceID   types.UUID
	OwnerID    types.UUID
	SourceType uint8
	ChatType   uint8
	Audible    uint8
	Position   types.Vector3
	Message    []byte
}

func (m *ChatFromSimulator) Type() PacketType { return TypeChatFromSimulator }

func (m *ChatFromSimulator) Length() int {
	return varBytesLen(1, m.FromName) + 16 + 16 + 1 + 1 + 1 + 12 + varBytesLen(2, m.Message)
}

func (m *ChatFromSimulator) Encode() []byte {
	w := types.NewWriter(m.Length())
	writeVarBytes(w, 1, m.FromName)
	w.UUID(m.SourceID)
	w.UUID(m.OwnerID)
	w.U8(m.SourceType)
	w.U8(m.ChatType)
	w.U8(m.Audible)
	w.Vector3(m.Position)
	writeVarBytes(w, 2, m.Message)
	return w.Bytes()
}

func (m *ChatFromSimulator) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.FromName, err = readVarBytes(r, 1); err != nil {
		return err
	}
	if m.SourceID, err = r.UUID(); err != nil {
		return err
	}
	if m.OwnerID, err = r.UUID(); err != nil {
		return err
	}
	if m.SourceType, err = r.U8(); err != nil {
		return err
	}
	if m.ChatType, err = r.U8(); err != nil {
		return err
	}
	if m.Audible, err = r.U8(); err != nil {
		return err
	}
	if m.Position, err = r.Vector3(); err != nil {
		return err
	}
	m.Message, err = readVarBytes(r, 2)
	return err
}

func (m *ChatFromSimulator) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- Logout / movement lifecycle ------------------------------------------

var TypeLogoutRequest = register(descriptor.Low, 252, "LogoutRequest", func() Message { return &LogoutRequest{} })

type LogoutRequest struct {
	AgentID   types.UUID
	SessionID types.UUID
}

func (m *LogoutRequest) Type() PacketType { return TypeLogoutRequest }
func (m *LogoutRequest) Length() int      { return 32 }
func (m *LogoutRequest) Encode() []byte {
	w := types.NewWriter(32)
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	return w.Bytes()
}
func (m *LogoutRequest) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	m.SessionID, err = r.UUID()
	return err
}
func (m *LogoutRequest) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

var TypeLogoutReply = register(descriptor.Low, 253, "LogoutReply", func() Message { return &LogoutReply{} })

type LogoutReply struct {
	AgentID   types.UUID
	SessionID types.UUID
}

func (m *LogoutReply) Type() PacketType { return TypeLogoutReply }
func (m *LogoutReply) Length() int      { return 32 }
func (m *LogoutReply) Encode() []byte {
	w := types.NewWriter(32)
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	return w.Bytes()
}
func (m *LogoutReply) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	m.SessionID, err = r.UUID()
	return err
}
func (m *LogoutReply) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

var TypeLogoutDemand = register(descriptor.Low, 254, "LogoutDemand", func() Message { return &LogoutDemand{} })

type LogoutDemand struct {
	SessionID types.UUID
}

func (m *LogoutDemand) Type() PacketType { return TypeLogoutDemand }
func (m *LogoutDemand) Length() int      { return 16 }
func (m *LogoutDemand) Encode() []byte {
	w := types.NewWriter(16)
	w.UUID(m.SessionID)
	return w.Bytes()
}
func (m *LogoutDemand) Decode(payload []byte) error {
	r := types.NewReader(payload)
	v, err := r.UUID()
	m.SessionID = v
	return err
}
func (m *LogoutDemand) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

var TypeCompleteAgentMovement = register(descriptor.Low, 249, "CompleteAgentMovement", func() Message { return &CompleteAgentMovement{} })

type CompleteAgentMovement struct {
	AgentID     types.UUID
	SessionID   types.UUID
	CircuitCode uint32
}

func (m *CompleteAgentMovement) Type() PacketType { return TypeCompleteAgentMovement }
func (m *CompleteAgentMovement) Length() int      { return 16 + 16 + 4 }
func (m *CompleteAgentMovement) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	w.U32(m.CircuitCode)
	return w.Bytes()
}
func (m *CompleteAgentMovement) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	if m.SessionID, err = r.UUID(); err != nil {
		return err
	}
	m.CircuitCode, err = r.U32()
	return err
}
func (m *CompleteAgentMovement) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- EnableSimulator (Low, IPAddr/IPPort) ---------------------------------

var TypeEnableSimulator = register(descriptor.Low, 150, "EnableSimulator", func() Message { return &EnableSimulator{} })

type EnableSimulator struct {
	Handle uint64
	IP     types.IPAddr
	Port   types.IPPort
}

func (m *EnableSimulator) Type() PacketType { return TypeEnableSimulator }
func (m *EnableSimulator) Length() int      { return 8 + 4 + 2 }
func (m *EnableSimulator) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.U64(m.Handle)
	w.U32(uint32(m.IP))
	w.U16BE(uint16(m.Port))
	return w.Bytes()
}
func (m *EnableSimulator) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.Handle, err = r.U64(); err != nil {
		return err
	}
	ip, err := r.U32()
	if err != nil {
		return err
	}
	m.IP = types.IPAddr(ip)
	port, err := r.U16BE()
	m.Port = types.IPPort(port)
	return err
}
func (m *EnableSimulator) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- KickUser (Low) --------------------------------------------------------

var TypeKickUser = register(descriptor.Low, 151, "KickUser", func() Message { return &KickUser{} })

type KickUser struct {
	AgentID   types.UUID
	SessionID types.UUID
	Reason    []byte
}

func (m *KickUser) Type() PacketType { return TypeKickUser }
func (m *KickUser) Length() int      { return 16 + 16 + varBytesLen(2, m.Reason) }
func (m *KickUser) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	writeVarBytes(w, 2, m.Reason)
	return w.Bytes()
}
func (m *KickUser) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	if m.SessionID, err = r.UUID(); err != nil {
		return err
	}
	m.Reason, err = readVarBytes(r, 2)
	return err
}
func (m *KickUser) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }

// --- ViewerEffect (Low, AgentData Single + Effect Variable-of-structs) ---

var TypeViewerEffect = register(descriptor.Low, 17, "ViewerEffect", func() Message { return &ViewerEffect{} })

// ViewerEffectEntry is one element of ViewerEffect's Variable block.
type ViewerEffectEntry struct {
	ID       types.UUID
	AgentID  types.UUID
	Type     uint8
	Duration float32
	Color    [4]byte
	TypeData []byte
}

func (e ViewerEffectEntry) length() int {
	return 16 + 16 + 1 + 4 + 4 + varBytesLen(1, e.TypeData)
}

func (e ViewerEffectEntry) encode() []byte {
	w := types.NewWriter(e.length())
	w.UUID(e.ID)
	w.UUID(e.AgentID)
	w.U8(e.Type)
	w.F32(e.Duration)
	w.Raw(e.Color[:])
	writeVarBytes(w, 1, e.TypeData)
	return w.Bytes()
}

func decodeViewerEffectEntry(r *types.Reader) (ViewerEffectEntry, error) {
	var e ViewerEffectEntry
	var err error
	if e.ID, err = r.UUID(); err != nil {
		return e, err
	}
	if e.AgentID, err = r.UUID(); err != nil {
		return e, err
	}
	if e.Type, err = r.U8(); err != nil {
		return e, err
	}
	if e.Duration, err = r.F32(); err != nil {
		return e, err
	}
	color, err := r.Bytes(4)
	if err != nil {
		return e, err
	}
	copy(e.Color[:], color)
	e.TypeData, err = readVarBytes(r, 1)
	return e, err
}

type ViewerEffect struct {
	AgentID   types.UUID
	SessionID types.UUID
	Effects   []ViewerEffectEntry
}

func (m *ViewerEffect) Type() PacketType { return TypeViewerEffect }

func (m *ViewerEffect) Length() int {
	n := 16 + 16 + 1
	for _, e := range m.Effects {
		n += e.length()
	}
	return n
}

func (m *ViewerEffect) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	w.U8(uint8(len(m.Effects)))
	for _, e := range m.Effects {
		w.Raw(e.encode())
	}
	return w.Bytes()
}

func (m *ViewerEffect) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.AgentID, err = r.UUID(); err != nil {
		return err
	}
	if m.SessionID, err = r.UUID(); err != nil {
		return err
	}
	n, err := r.U8()
	if err != nil {
		return err
	}
	m.Effects = make([]ViewerEffectEntry, n)
	for i := range m.Effects {
		if m.Effects[i], err = decodeViewerEffectEntry(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *ViewerEffect) Split(maxPayload int) [][]byte {
	prefix := make([]byte, 0, 32)
	w := types.NewWriter(32)
	w.UUID(m.AgentID)
	w.UUID(m.SessionID)
	prefix = w.Bytes()
	elems := make([][]byte, len(m.Effects))
	for i, e := range m.Effects {
		elems[i] = e.encode()
	}
	return splitVariableBlock(prefix, elems, maxPayload)
}

// --- TestMessage (Fixed frequency, Single block of mixed scalar types,
// plus a Multiple(4) neighbor block) ---------------------------------------
//
// Deprecated in the real message template (a debug/wire-test message with
// no production use); kept here to exercise the Deprecated warning path.

var TypeTestMessage = deprecated(register(descriptor.Fixed, 1, "TestMessage", func() Message { return &TestMessage{} }))

// TestNeighborBlock is one of the four fixed repeats of TestMessage's
// Multiple block.
type TestNeighborBlock struct {
	Test0 uint32
}

type TestMessage struct {
	Test1     uint32
	Test2     int32
	Test3     int16
	Test4     int8
	Test5     float64
	Test6     types.Vector3d
	Test7     types.Vector4
	Test8     types.IPAddr
	Test9     types.IPPort
	Test10    bool
	Neighbors [4]TestNeighborBlock
}

func (m *TestMessage) Type() PacketType { return TypeTestMessage }

func (m *TestMessage) Length() int {
	return 4 + 4 + 2 + 1 + 8 + 24 + 16 + 4 + 2 + 1 + 4*4
}

func (m *TestMessage) Encode() []byte {
	w := types.NewWriter(m.Length())
	w.U32(m.Test1)
	w.S32(m.Test2)
	w.S16(m.Test3)
	w.S8(m.Test4)
	w.F64(m.Test5)
	w.Vector3d(m.Test6)
	w.Vector4(m.Test7)
	w.U32(uint32(m.Test8))
	w.U16BE(uint16(m.Test9))
	w.Bool(m.Test10)
	for _, n := range m.Neighbors {
		w.U32(n.Test0)
	}
	return w.Bytes()
}

func (m *TestMessage) Decode(payload []byte) error {
	r := types.NewReader(payload)
	var err error
	if m.Test1, err = r.U32(); err != nil {
		return err
	}
	if m.Test2, err = r.S32(); err != nil {
		return err
	}
	if m.Test3, err = r.S16(); err != nil {
		return err
	}
	if m.Test4, err = r.S8(); err != nil {
		return err
	}
	if m.Test5, err = r.F64(); err != nil {
		return err
	}
	if m.Test6, err = r.Vector3d(); err != nil {
		return err
	}
	if m.Test7, err = r.Vector4(); err != nil {
		return err
	}
	ip, err := r.U32()
	if err != nil {
		return err
	}
	m.Test8 = types.IPAddr(ip)
	port, err := r.U16BE()
	if err != nil {
		return err
	}
	m.Test9 = types.IPPort(port)
	if m.Test10, err = r.Bool(); err != nil {
		return err
	}
	for i := range m.Neighbors {
		if m.Neighbors[i].Test0, err = r.U32(); err != nil {
			return fmt.Errorf("messages: TestMessage neighbor %d: %w", i, err)
		}
	}
	return nil
}

func (m *TestMessage) Split(maxPayload int) [][]byte { return [][]byte{m.Encode()} }
