// Package circuit implements the UDP circuit engine (C8): one circuit per
// simulator connection, covering reliable sequence assignment and resend,
// inbound duplicate suppression, ack flushing, ping/timeout liveness, the
// handshake and shutdown state machines, and the per-channel bandwidth
// throttle. Grounded on the teacher's agent.Relay/client.Tunnel pattern of
// a mutex-guarded struct plus background goroutines driven by
// time.Ticker, generalized from a CDN relay loop to a reliable-datagram
// circuit.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"dev.mvwire.core/dispatch"
	"dev.mvwire.core/internal/types"
	"dev.mvwire.core/protocol/header"
	"dev.mvwire.core/protocol/messages"
	"dev.mvwire.core/protocol/zerocode"
)

// State is the circuit's handshake/lifecycle phase.
type State int

const (
	StateHandshaking State = iota
	StateConnected
	StateLoggingOut
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateLoggingOut:
		return "logging out"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by Send* calls made after the circuit has closed.
var ErrClosed = errors.New("circuit: closed")

// ErrTimeout is the reason passed to Options.OnDisconnect when the circuit
// is torn down because the simulator stopped answering pings or a reliable
// send exhausted its retransmit attempts.
var ErrTimeout = errors.New("circuit: timeout")

// MaxDatagram is the UDP payload budget a single fragment must fit inside,
// matching the conventional simulator MTU.
const MaxDatagram = 1200

// Handler receives one decoded, in-order-within-type message. Engine calls
// it synchronously from the receive loop; handlers that need to do slow
// work should hand off to their own goroutine.
type Handler = dispatch.MessageHandler

// Options configures an Engine. Zero values fall back to the package
// defaults below.
type Options struct {
	ResendTimeout     time.Duration
	MaxResendAttempts int
	AckFlushInterval  time.Duration
	PingInterval      time.Duration
	SimulatorTimeout  time.Duration
	LogoutTimeout     time.Duration
	Throttle          *Throttle
	Trace             TraceSink

	// MultipleSims lets an EnableSimulator from the current simulator
	// spawn a new circuit, in Handshaking, to the announced endpoint,
	// without altering this circuit. Spawned circuits inherit these
	// Options (with a fresh Throttle) and are reachable via Children.
	MultipleSims bool

	// OnNewCircuit, if set, is called with a circuit MultipleSims spawned
	// in response to an inbound EnableSimulator.
	OnNewCircuit func(*Engine)

	// OnDisconnect, if set, is called once when the circuit closes: with
	// ErrTimeout wrapped for ping-liveness or retransmit-exhaustion
	// disconnects, or ErrClosed for an explicit Close/Logout.
	OnDisconnect func(reason error)
}

// TraceSink optionally observes every inbound/outbound datagram, e.g. the
// internal/diagnostics sqlite sink.
type TraceSink interface {
	TraceOutbound(seq uint32, reliable bool, t messages.PacketType, n int)
	TraceInbound(seq uint32, t messages.PacketType, n int)
}

const (
	defaultResendTimeout     = 4000 * time.Millisecond
	defaultMaxResendAttempts = 5
	defaultAckFlushInterval  = 500 * time.Millisecond
	defaultPingInterval      = 5 * time.Second
	defaultSimulatorTimeout  = 30 * time.Second
	defaultLogoutTimeout     = 5 * time.Second
	explicitAckThreshold     = 10

	minRTO              = 100 * time.Millisecond
	maxRTO              = 60 * time.Second
	resendCheckInterval = 100 * time.Millisecond

	// missedPingCandidate/missedPingConfirm implement "missing two
	// consecutive ping windows marks the simulator a disconnect
	// candidate; a third confirms disconnect."
	missedPingCandidate = 2
	missedPingConfirm   = 3
)

func (o *Options) setDefaults() {
	if o.ResendTimeout <= 0 {
		o.ResendTimeout = defaultResendTimeout
	}
	if o.MaxResendAttempts <= 0 {
		o.MaxResendAttempts = defaultMaxResendAttempts
	}
	if o.AckFlushInterval <= 0 {
		o.AckFlushInterval = defaultAckFlushInterval
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.SimulatorTimeout <= 0 {
		o.SimulatorTimeout = defaultSimulatorTimeout
	}
	if o.LogoutTimeout <= 0 {
		o.LogoutTimeout = defaultLogoutTimeout
	}
	if o.Throttle == nil {
		o.Throttle = NewThrottle(DefaultThrottleBPS)
	}
}

type pendingAck struct {
	datagram []byte
	sentAt   time.Time
	attempts int
	rto      time.Duration
}

// Engine is one reliable circuit to a single simulator.
type Engine struct {
	opts Options

	conn   net.PacketConn
	remote net.Addr

	dispatch *dispatch.Registry

	mu          sync.Mutex
	state       State
	outSeq      uint32
	pending     map[uint32]*pendingAck
	seen        *seenWindow
	toAck       []uint32
	lastRecv    time.Time
	pingID      uint8
	pingSentAt  map[uint8]time.Time
	pingLag     time.Duration
	missedPings int
	children    []*Engine

	stopOnce       sync.Once
	disconnectOnce sync.Once
	stopCh         chan struct{}
	wg             sync.WaitGroup
}

// Dial opens a UDP socket to addr and starts an Engine in the
// handshaking state. Callers drive the handshake by sending UseCircuitCode
// with Send; the engine moves to Connected when a RegionHandshake arrives.
func Dial(addr string, opts Options) (*Engine, error) {
	opts.setDefaults()
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("circuit: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("circuit: listen: %w", err)
	}
	e := &Engine{
		opts:       opts,
		conn:       conn,
		remote:     raddr,
		dispatch:   dispatch.New(),
		pending:    make(map[uint32]*pendingAck),
		seen:       newSeenWindow(seenWindowCap),
		pingSentAt: make(map[uint8]time.Time),
		stopCh:     make(chan struct{}),
		lastRecv:   time.Now(),
	}
	e.wg.Add(3)
	go e.receiveLoop()
	go e.resendLoop()
	go e.livenessLoop()
	return e, nil
}

// Register adds a handler for every message of type t, in registration
// order, and returns a handle usable with Unregister. This is the
// register(type_tag, callback) operation of §4.7.
func (e *Engine) Register(t messages.PacketType, h Handler) dispatch.Handle {
	return e.dispatch.Register(t, h)
}

// Unregister removes a handler previously added with Register.
func (e *Engine) Unregister(t messages.PacketType, handle dispatch.Handle) {
	e.dispatch.Unregister(t, handle)
}

// State returns the circuit's current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Send encodes and transmits m, splitting across datagrams if it has a
// Variable-multiplicity block that overflows MaxDatagram. reliable marks
// every fragment with the Reliable flag, queueing it for resend until
// acked.
func (e *Engine) Send(m messages.Message, reliable bool) error {
	if e.State() == StateClosed {
		return ErrClosed
	}
	t := m.Type()
	// Leave room for the fixed header, the message id and a full
	// piggybacked ack tail so each datagram stays within MaxDatagram.
	budget := MaxDatagram - 6 - header.IDWidth(t.Frequency()) - (1 + 4*explicitAckThreshold)
	for _, frag := range m.Split(budget) {
		if err := e.sendFragment(t, frag, reliable); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) sendFragment(t messages.PacketType, payload []byte, reliable bool) error {
	e.mu.Lock()
	e.outSeq++
	seq := e.outSeq
	acks := e.drainAcksLocked(explicitAckThreshold)
	e.mu.Unlock()

	body := zerocode.Encode(payload)
	if len(body) >= len(payload) {
		body = payload // zero-coding didn't help; send raw
	}

	h := &header.Header{
		Reliable:  reliable,
		Sequence:  seq,
		Zerocoded: len(body) < len(payload),
	}
	datagram := header.Encode(h)
	datagram = header.EncodeID(datagram, t.Frequency(), t.ID())
	datagram = append(datagram, body...)
	if len(acks) > 0 {
		datagram = header.AppendAcks(datagram, acks)
	}

	if reliable {
		e.mu.Lock()
		e.pending[seq] = &pendingAck{datagram: datagram, sentAt: time.Now(), attempts: 1, rto: e.rtoLocked()}
		e.mu.Unlock()
	}

	if e.opts.Throttle != nil {
		e.opts.Throttle.Wait(ChannelFor(t), len(datagram))
	}
	if e.opts.Trace != nil {
		e.opts.Trace.TraceOutbound(seq, reliable, t, len(datagram))
	}
	_, err := e.conn.WriteTo(datagram, e.remote)
	return err
}

// drainAcksLocked pops up to n pending acks for piggyback onto an outgoing
// datagram. Must be called with e.mu held.
func (e *Engine) drainAcksLocked(n int) []uint32 {
	if len(e.toAck) == 0 {
		return nil
	}
	if n > len(e.toAck) {
		n = len(e.toAck)
	}
	acks := e.toAck[:n]
	e.toAck = e.toAck[n:]
	return acks
}

func (e *Engine) receiveLoop() {
	defer e.wg.Done()
	buf := make([]byte, 65536)
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		e.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-e.stopCh:
				return
			default:
				continue
			}
		}
		e.handleDatagram(buf[:n])
	}
}

func (e *Engine) handleDatagram(datagram []byte) {
	h, payload, err := header.Decode(datagram)
	if err != nil {
		log.Printf("circuit: malformed datagram: %v", err)
		return
	}
	e.mu.Lock()
	e.lastRecv = time.Now()
	for _, a := range h.Acks {
		delete(e.pending, a)
	}
	e.mu.Unlock()

	if h.Zerocoded {
		payload, err = zerocode.Decode(payload)
		if err != nil {
			log.Printf("circuit: zerocode: %v", err)
			return
		}
	}

	if h.Reliable {
		e.mu.Lock()
		dup := e.seen.Contains(h.Sequence)
		if !dup {
			e.seen.Insert(h.Sequence)
		}
		e.toAck = append(e.toAck, h.Sequence)
		explicit := len(e.toAck) >= explicitAckThreshold
		e.mu.Unlock()
		if explicit {
			e.flushAcks()
		}
		if dup {
			return
		}
	}

	m, err := messages.Decode(h.Frequency, h.ID, payload)
	if err != nil {
		return
	}
	if e.opts.Trace != nil {
		e.opts.Trace.TraceInbound(h.Sequence, m.Type(), len(datagram))
	}
	e.handleBuiltins(m)
	e.dispatch.Dispatch(m)
}

// flushAcks sends a standalone PacketAck for whatever is queued, used by
// both the explicit high-water-mark path and the periodic flush ticker.
func (e *Engine) flushAcks() {
	e.mu.Lock()
	if len(e.toAck) == 0 {
		e.mu.Unlock()
		return
	}
	acks := e.toAck
	e.toAck = nil
	e.mu.Unlock()
	ack := &messages.PacketAck{Packets: acks}
	if err := e.Send(ack, false); err != nil {
		log.Printf("circuit: flush acks: %v", err)
	}
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rtoLocked returns the current retransmission timeout, derived from the
// most recently measured ping round-trip and clamped to [minRTO, maxRTO].
// Before any ping sample exists it falls back to the configured
// ResendTimeout. Must be called with e.mu held.
func (e *Engine) rtoLocked() time.Duration {
	if e.pingLag <= 0 {
		return clampDuration(e.opts.ResendTimeout, minRTO, maxRTO)
	}
	return clampDuration(e.pingLag, minRTO, maxRTO)
}

// resendLoop polls pending reliable sends at a fine grain; each entry
// carries its own rto and backs off independently, so the poll interval is
// decoupled from any single entry's timeout.
func (e *Engine) resendLoop() {
	defer e.wg.Done()
	t := time.NewTicker(resendCheckInterval)
	defer t.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-t.C:
			e.resendExpired()
		}
	}
}

func (e *Engine) resendExpired() {
	now := time.Now()
	e.mu.Lock()
	var expired []uint32
	for seq, p := range e.pending {
		if now.Sub(p.sentAt) >= p.rto {
			expired = append(expired, seq)
		}
	}
	e.mu.Unlock()

	for _, seq := range expired {
		e.mu.Lock()
		p, ok := e.pending[seq]
		if !ok {
			e.mu.Unlock()
			continue
		}
		if p.attempts >= e.opts.MaxResendAttempts {
			delete(e.pending, seq)
			attempts := p.attempts
			e.mu.Unlock()
			log.Printf("circuit: giving up on seq %d after %d attempts", seq, attempts)
			e.signalDisconnect(fmt.Errorf("circuit: seq %d exhausted %d resend attempts: %w", seq, attempts, ErrTimeout))
			continue
		}
		p.attempts++
		p.sentAt = now
		p.rto = clampDuration(p.rto*2, minRTO, maxRTO)
		datagram := append([]byte(nil), p.datagram...)
		e.mu.Unlock()
		datagram[0] |= header.FlagResent
		if e.opts.Throttle != nil {
			e.opts.Throttle.Wait(ChannelResend, len(datagram))
		}
		e.conn.WriteTo(datagram, e.remote)
	}
}

// signalDisconnect fires OnDisconnect (once) with reason and asynchronously
// tears the circuit down. Async because callers run on the same goroutines
// Close's wg.Wait blocks on; a synchronous Close here would deadlock.
func (e *Engine) signalDisconnect(reason error) {
	e.disconnectOnce.Do(func() {
		if e.opts.OnDisconnect != nil {
			e.opts.OnDisconnect(reason)
		}
	})
	go e.Close()
}

func (e *Engine) livenessLoop() {
	defer e.wg.Done()
	ackFlush := time.NewTicker(e.opts.AckFlushInterval)
	ping := time.NewTicker(e.opts.PingInterval)
	defer ackFlush.Stop()
	defer ping.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ackFlush.C:
			e.flushAcks()
		case <-ping.C:
			e.checkLiveness()
		}
	}
}

// checkLiveness runs once per PingInterval. A ping window is "missed" when
// the previous StartPingCheck this circuit sent is still unanswered when
// the next one falls due: missing two consecutive windows marks the
// simulator a disconnect candidate; a third confirms disconnect. Idle time
// past SimulatorTimeout is an independent hard cap in case the ping loop
// itself stalls.
func (e *Engine) checkLiveness() {
	e.mu.Lock()
	idle := time.Since(e.lastRecv)
	timedOut := idle >= e.opts.SimulatorTimeout
	if _, unanswered := e.pingSentAt[e.pingID]; unanswered {
		e.missedPings++
	} else {
		e.missedPings = 0
	}
	missed := e.missedPings
	e.pingID++
	id := e.pingID
	e.pingSentAt[id] = time.Now()
	e.mu.Unlock()

	if timedOut {
		e.signalDisconnect(fmt.Errorf("circuit: simulator silent for %s: %w", idle, ErrTimeout))
		return
	}
	if missed >= missedPingConfirm {
		e.signalDisconnect(fmt.Errorf("circuit: missed %d consecutive ping windows: %w", missed, ErrTimeout))
		return
	}
	if missed == missedPingCandidate {
		log.Printf("circuit: simulator is a disconnect candidate after %d missed ping windows", missed)
	}
	e.Send(&messages.StartPingCheck{PingID: id}, false)
}

func (e *Engine) handleBuiltins(m messages.Message) {
	switch msg := m.(type) {
	case *messages.StartPingCheck:
		e.Send(&messages.CompletePingCheck{PingID: msg.PingID}, false)
	case *messages.CompletePingCheck:
		e.mu.Lock()
		if sentAt, ok := e.pingSentAt[msg.PingID]; ok {
			e.pingLag = time.Since(sentAt)
			delete(e.pingSentAt, msg.PingID)
		}
		e.mu.Unlock()
	case *messages.RegionHandshake:
		if e.State() == StateHandshaking {
			e.setState(StateConnected)
		}
	case *messages.LogoutReply, *messages.LogoutDemand:
		e.setState(StateClosed)
	case *messages.EnableSimulator:
		if e.opts.MultipleSims {
			e.spawnCircuit(msg)
		}
	}
}

// spawnCircuit dials a new circuit to the endpoint an EnableSimulator
// announced, in Handshaking, leaving this circuit untouched. The child
// gets its own Throttle so its bandwidth budget isn't shared with the
// parent's.
func (e *Engine) spawnCircuit(msg *messages.EnableSimulator) {
	addr := fmt.Sprintf("%s:%d", msg.IP.String(), msg.Port)
	childOpts := e.opts
	childOpts.Throttle = nil
	child, err := Dial(addr, childOpts)
	if err != nil {
		log.Printf("circuit: spawn circuit for EnableSimulator %s: %v", addr, err)
		return
	}
	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()
	if e.opts.OnNewCircuit != nil {
		e.opts.OnNewCircuit(child)
	}
}

// Children returns the circuits spawned by inbound EnableSimulator messages
// when MultipleSims is set.
func (e *Engine) Children() []*Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Engine(nil), e.children...)
}

// Close tears down the circuit: stops background loops, closes the socket,
// closes any spawned child circuits, and fires OnDisconnect if no other
// disconnect reason has already fired it. Safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.stopOnce.Do(func() {
		e.setState(StateClosed)
		close(e.stopCh)
		err = e.conn.Close()
		e.mu.Lock()
		children := e.children
		e.children = nil
		e.mu.Unlock()
		for _, c := range children {
			c.Close()
		}
	})
	e.wg.Wait()
	e.disconnectOnce.Do(func() {
		if e.opts.OnDisconnect != nil {
			e.opts.OnDisconnect(ErrClosed)
		}
	})
	return err
}

// Logout sends LogoutRequest and awaits LogoutReply up to LogoutTimeout; on
// timeout it sends LogoutDemand and closes regardless (§4.7 shutdown).
func (e *Engine) Logout(ctx context.Context, agentID, sessionID types.UUID) error {
	e.setState(StateLoggingOut)
	done := make(chan struct{})
	e.Register(messages.TypeLogoutReply, func(messages.Message) { close(done) })
	req := &messages.LogoutRequest{AgentID: agentID, SessionID: sessionID}
	if err := e.Send(req, true); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, e.opts.LogoutTimeout)
	defer cancel()
	select {
	case <-done:
	case <-tctx.Done():
		e.Send(&messages.LogoutDemand{SessionID: sessionID}, false)
	}
	return e.Close()
}
