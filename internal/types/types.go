// Package types implements the endian-aware scalar codec shared by every
// generated message (C3): fixed-size vector/quaternion/UUID helpers and the
// little/big-endian primitive readers and writers the wire format specifies.
package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrShortBuffer is returned when a decode reads past the end of its input.
var ErrShortBuffer = errors.New("types: short buffer")

// UUID is the wire 16-byte value used throughout the protocol. It is backed
// by google/uuid so callers get RFC 4122 parsing/generation for free; the
// wire layout is the raw 16 bytes, unaffected by the string representation.
type UUID [16]byte

// Zero is the all-zero UUID used as the coercion target for OSD and absent
// protocol fields.
var Zero UUID

// NewUUID generates a random (v4) UUID.
func NewUUID() UUID {
	return UUID(uuid.New())
}

// ParseUUID parses the canonical "hhhhhhhh-hhhh-...-hhhhhhhhhhhh" form.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Zero, err
	}
	return UUID(u), nil
}

func (u UUID) String() string { return uuid.UUID(u).String() }

// IsZero reports whether u is the all-zero UUID.
func (u UUID) IsZero() bool { return u == Zero }

// IPAddr is a 4-byte address field. On the wire it is treated as opaque —
// copied byte for byte in socket order, never byte-swapped — and exposed to
// callers as a little-endian uint32 for arithmetic/comparison convenience.
type IPAddr uint32

// String renders the dotted-decimal form, reversing the little-endian
// exposure back to the socket byte order the wire actually carried.
func (a IPAddr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a), byte(a>>8), byte(a>>16), byte(a>>24))
}

// IPPort is a 16-bit port that is big-endian on the wire, unlike every
// other u16 field in the protocol.
type IPPort uint16

// Vector3 is three little-endian float32s.
type Vector3 struct{ X, Y, Z float32 }

// Vector3d is three little-endian float64s.
type Vector3d struct{ X, Y, Z float64 }

// Vector4 is four little-endian float32s.
type Vector4 struct{ X, Y, Z, W float32 }

// Quaternion is stored on the wire as X, Y, Z only; W is reconstructed on
// decode as +sqrt(max(0, 1-x^2-y^2-z^2)). Implementers must not attempt to
// recover W's sign — the wire format cannot represent it.
type Quaternion struct{ X, Y, Z, W float32 }

// NormalizeW recomputes W from X, Y, Z per the wire convention. Called by
// decoders; exported so tests and callers constructing a Quaternion by hand
// can reuse it.
func (q Quaternion) NormalizeW() Quaternion {
	sum := float64(q.X)*float64(q.X) + float64(q.Y)*float64(q.Y) + float64(q.Z)*float64(q.Z)
	rem := 1 - sum
	if rem < 0 {
		rem = 0
	}
	q.W = float32(math.Sqrt(rem))
	return q
}

// Reader sequentially decodes little-endian scalars from a byte slice,
// advancing an internal position. Big-endian fields (IPPort, header
// sequence numbers) use the *BE methods.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential little/big-endian reads.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return ErrShortBuffer
	}
	return nil
}

// Bytes reads n raw bytes and advances the position.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// S8 reads one signed byte.
func (r *Reader) S8() (int8, error) {
	u, err := r.U8()
	return int8(u), err
}

// Bool reads one byte as a boolean (non-zero is true).
func (r *Reader) Bool() (bool, error) {
	u, err := r.U8()
	return u != 0, err
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// S16 reads a little-endian int16.
func (r *Reader) S16() (int16, error) {
	u, err := r.U16()
	return int16(u), err
}

// U16BE reads a big-endian uint16 (IPPort).
func (r *Reader) U16BE() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// S32 reads a little-endian int32.
func (r *Reader) S32() (int32, error) {
	u, err := r.U32()
	return int32(u), err
}

// U32BE reads a big-endian uint32 (header sequence numbers).
func (r *Reader) U32BE() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// F32 reads a little-endian IEEE-754 float32.
func (r *Reader) F32() (float32, error) {
	u, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// F64 reads a little-endian IEEE-754 float64.
func (r *Reader) F64() (float64, error) {
	u, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// UUID reads 16 raw bytes.
func (r *Reader) UUID() (UUID, error) {
	b, err := r.Bytes(16)
	if err != nil {
		return Zero, err
	}
	var u UUID
	copy(u[:], b)
	return u, nil
}

// Vector3 reads three little-endian float32s.
func (r *Reader) Vector3() (Vector3, error) {
	x, err := r.F32()
	if err != nil {
		return Vector3{}, err
	}
	y, err := r.F32()
	if err != nil {
		return Vector3{}, err
	}
	z, err := r.F32()
	if err != nil {
		return Vector3{}, err
	}
	return Vector3{X: x, Y: y, Z: z}, nil
}

// Vector3d reads three little-endian float64s.
func (r *Reader) Vector3d() (Vector3d, error) {
	x, err := r.F64()
	if err != nil {
		return Vector3d{}, err
	}
	y, err := r.F64()
	if err != nil {
		return Vector3d{}, err
	}
	z, err := r.F64()
	if err != nil {
		return Vector3d{}, err
	}
	return Vector3d{X: x, Y: y, Z: z}, nil
}

// Vector4 reads four little-endian float32s.
func (r *Reader) Vector4() (Vector4, error) {
	x, err := r.F32()
	if err != nil {
		return Vector4{}, err
	}
	y, err := r.F32()
	if err != nil {
		return Vector4{}, err
	}
	z, err := r.F32()
	if err != nil {
		return Vector4{}, err
	}
	w, err := r.F32()
	if err != nil {
		return Vector4{}, err
	}
	return Vector4{X: x, Y: y, Z: z, W: w}, nil
}

// Quaternion reads X, Y, Z and reconstructs W per the wire convention.
func (r *Reader) Quaternion() (Quaternion, error) {
	x, err := r.F32()
	if err != nil {
		return Quaternion{}, err
	}
	y, err := r.F32()
	if err != nil {
		return Quaternion{}, err
	}
	z, err := r.F32()
	if err != nil {
		return Quaternion{}, err
	}
	return Quaternion{X: x, Y: y, Z: z}.NormalizeW(), nil
}

// Writer sequentially encodes scalars into a growing byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with cap hint n.
func NewWriter(n int) *Writer { return &Writer{buf: make([]byte, 0, n)} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// U8 appends one byte.
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// S8 appends one signed byte.
func (w *Writer) S8(v int8) { w.U8(uint8(v)) }

// Bool appends 0x01 or 0x00.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Raw(b[:])
}

// S16 appends a little-endian int16.
func (w *Writer) S16(v int16) { w.U16(uint16(v)) }

// U16BE appends a big-endian uint16 (IPPort).
func (w *Writer) U16BE(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Raw(b[:])
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Raw(b[:])
}

// S32 appends a little-endian int32.
func (w *Writer) S32(v int32) { w.U32(uint32(v)) }

// U32BE appends a big-endian uint32 (header sequence numbers).
func (w *Writer) U32BE(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Raw(b[:])
}

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Raw(b[:])
}

// F32 appends a little-endian IEEE-754 float32.
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// F64 appends a little-endian IEEE-754 float64.
func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

// UUID appends the raw 16 bytes.
func (w *Writer) UUID(v UUID) { w.Raw(v[:]) }

// Vector3 appends three little-endian float32s.
func (w *Writer) Vector3(v Vector3) { w.F32(v.X); w.F32(v.Y); w.F32(v.Z) }

// Vector3d appends three little-endian float64s.
func (w *Writer) Vector3d(v Vector3d) { w.F64(v.X); w.F64(v.Y); w.F64(v.Z) }

// Vector4 appends four little-endian float32s.
func (w *Writer) Vector4(v Vector4) { w.F32(v.X); w.F32(v.Y); w.F32(v.Z); w.F32(v.W) }

// Quaternion appends X, Y, Z only — W is never written, per the wire format.
func (w *Writer) Quaternion(v Quaternion) { w.F32(v.X); w.F32(v.Y); w.F32(v.Z) }

// DateToFloat64 converts t to the binary-OSD date representation: seconds
// since the Unix epoch as a float64.
func DateToFloat64(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Float64ToDate converts binary-OSD seconds-since-epoch back to a Time.
func Float64ToDate(secs float64) time.Time {
	return time.Unix(0, int64(secs*1e9)).UTC()
}

// DateLayout is the text-OSD ISO-8601 layout (fractional seconds, "Z" zone).
const DateLayout = "2006-01-02T15:04:05.000Z"

// DateToString renders t in the text-OSD ISO-8601 form.
func DateToString(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses the text-OSD ISO-8601 form, tolerating a missing
// fractional-seconds component.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05Z", s)
}
