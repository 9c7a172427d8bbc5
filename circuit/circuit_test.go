package circuit

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dev.mvwire.core/internal/types"
	"dev.mvwire.core/protocol/header"
	"dev.mvwire.core/protocol/messages"
)

func newFakeSimulator(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dialTestEngine(t *testing.T, addr string, opts Options) *Engine {
	t.Helper()
	e, err := Dial(addr, opts)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func readDatagram(t *testing.T, conn *net.UDPConn, timeout time.Duration) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return append([]byte(nil), buf[:n]...)
}

func TestSendSequenceMonotonic(t *testing.T) {
	sim := newFakeSimulator(t)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{PingInterval: time.Hour, SimulatorTimeout: time.Hour})

	const n = 5
	for i := 0; i < n; i++ {
		if err := e.Send(&messages.AgentUpdate{Far: 64}, false); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	var last uint32
	for i := 0; i < n; i++ {
		datagram := readDatagram(t, sim, time.Second)
		h, _, err := header.Decode(datagram)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if h.Sequence != last+1 {
			t.Fatalf("Sequence = %d, want %d (monotonic)", h.Sequence, last+1)
		}
		last = h.Sequence
	}
}

func TestDuplicateInboundOneCallbackTwoAcks(t *testing.T) {
	sim := newFakeSimulator(t)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		AckFlushInterval: 20 * time.Millisecond,
		PingInterval:     time.Hour,
		SimulatorTimeout: time.Hour,
	})

	var calls int32
	e.Register(messages.TypeChatFromSimulator, func(messages.Message) {
		atomic.AddInt32(&calls, 1)
	})

	chat := &messages.ChatFromSimulator{FromName: []byte("Bob"), Message: []byte("hi")}
	payload := chat.Encode()
	h := &header.Header{Reliable: true, Sequence: 1}
	datagram := header.Encode(h)
	datagram = header.EncodeID(datagram, messages.TypeChatFromSimulator.Frequency(), messages.TypeChatFromSimulator.ID())
	datagram = append(datagram, payload...)

	engineAddr := e.conn.LocalAddr().(*net.UDPAddr)
	if _, err := sim.WriteToUDP(datagram, engineAddr); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := sim.WriteToUDP(datagram, engineAddr); err != nil {
		t.Fatalf("write 2: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("callback invoked %d times, want 1 (duplicate suppressed)", got)
	}

	// Both deliveries queue an ack for seq 1 regardless of dedup — across
	// one or more flush ticks the engine must emit exactly two ack entries
	// total, each acking sequence 1.
	var acked []uint32
	deadline := time.Now().Add(time.Second)
	for len(acked) < 2 && time.Now().Before(deadline) {
		ackDatagram := readDatagram(t, sim, 300*time.Millisecond)
		ah, apayload, err := header.Decode(ackDatagram)
		if err != nil {
			t.Fatalf("decode ack datagram: %v", err)
		}
		m, err := messages.Decode(ah.Frequency, ah.ID, apayload)
		if err != nil {
			t.Fatalf("decode ack message: %v", err)
		}
		ack, ok := m.(*messages.PacketAck)
		if !ok {
			t.Fatalf("expected PacketAck, got %T", m)
		}
		acked = append(acked, ack.Packets...)
	}
	if len(acked) != 2 {
		t.Fatalf("total acked entries = %d, want 2", len(acked))
	}
	for _, p := range acked {
		if p != 1 {
			t.Errorf("acked sequence = %d, want 1", p)
		}
	}
}

// TestResendRetriesWithResentFlagUpToMax is the retransmit scenario: an
// unacked reliable send keeps the same sequence number, is retried with the
// Resent flag set, and gives up after max_resend_attempts sends total.
// The engine's minimum RTO is 100ms (spec's [100ms, 60s] clamp), so a
// configured ResendTimeout of 30ms is used only as the pre-ping-sample seed
// and is itself clamped up to 100ms; each retry then doubles that RTO.
// Expected timeline: send #1 at t=0 (rto 100ms), #2 at ~t=100ms (rto grows
// to 200ms), #3 at ~t=300ms (rto grows to 400ms, but attempts already hits
// max so no further send follows).
func TestResendRetriesWithResentFlagUpToMax(t *testing.T) {
	sim := newFakeSimulator(t)
	const maxAttempts = 3
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		ResendTimeout:     30 * time.Millisecond,
		MaxResendAttempts: maxAttempts,
		PingInterval:      time.Hour,
		SimulatorTimeout:  time.Hour,
	})

	if err := e.Send(&messages.ChatFromViewer{Message: []byte("hi")}, true); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var seqs []uint32
	var resentFlags []bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(seqs) < maxAttempts {
		sim.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		buf := make([]byte, 2048)
		n, err := sim.Read(buf)
		if err != nil {
			break
		}
		h, _, err := header.Decode(buf[:n])
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		seqs = append(seqs, h.Sequence)
		resentFlags = append(resentFlags, h.Resent)
	}

	if len(seqs) != maxAttempts {
		t.Fatalf("received %d sends for the reliable message, want %d (max_resend_attempts)", len(seqs), maxAttempts)
	}
	for _, s := range seqs {
		if s != seqs[0] {
			t.Fatalf("sequence changed across retransmits: %v", seqs)
		}
	}
	if resentFlags[0] {
		t.Fatal("first send should not carry the Resent flag")
	}
	for i := 1; i < len(resentFlags); i++ {
		if !resentFlags[i] {
			t.Fatalf("retransmit %d missing Resent flag", i)
		}
	}
}

// TestRTODerivedFromPingLag verifies that once a StartPingCheck/
// CompletePingCheck round trip has been measured, subsequent reliable sends
// seed their RTO from that measured lag (clamped to [100ms, 60s]) rather
// than the configured ResendTimeout.
func TestRTODerivedFromPingLag(t *testing.T) {
	sim := newFakeSimulator(t)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		ResendTimeout:    4 * time.Second,
		PingInterval:     time.Hour,
		SimulatorTimeout: time.Hour,
	})

	e.mu.Lock()
	e.pingSentAt[7] = time.Now().Add(-250 * time.Millisecond)
	e.mu.Unlock()
	e.handleBuiltins(&messages.CompletePingCheck{PingID: 7})

	e.mu.Lock()
	rto := e.rtoLocked()
	e.mu.Unlock()

	if rto < 200*time.Millisecond || rto > 300*time.Millisecond {
		t.Fatalf("rto = %v, want close to measured 250ms lag", rto)
	}
}

func TestRTOFallsBackToConfiguredResendTimeoutBeforePingSample(t *testing.T) {
	sim := newFakeSimulator(t)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		ResendTimeout:    250 * time.Millisecond,
		PingInterval:     time.Hour,
		SimulatorTimeout: time.Hour,
	})

	e.mu.Lock()
	rto := e.rtoLocked()
	e.mu.Unlock()

	if rto != 250*time.Millisecond {
		t.Fatalf("rto = %v, want the configured ResendTimeout (250ms) before any ping sample", rto)
	}
}

func TestRTOClampsToBounds(t *testing.T) {
	sim := newFakeSimulator(t)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		PingInterval:     time.Hour,
		SimulatorTimeout: time.Hour,
	})

	e.mu.Lock()
	e.pingLag = 5 * time.Millisecond
	rto := e.rtoLocked()
	e.mu.Unlock()
	if rto != minRTO {
		t.Fatalf("rto = %v, want clamped to minRTO %v", rto, minRTO)
	}

	e.mu.Lock()
	e.pingLag = 5 * time.Minute
	rto = e.rtoLocked()
	e.mu.Unlock()
	if rto != maxRTO {
		t.Fatalf("rto = %v, want clamped to maxRTO %v", rto, maxRTO)
	}
}

// TestAckClearsPending sends a reliable message, acks it, then confirms no
// retransmit follows even after the first RTO (100ms, the [100ms, 60s]
// clamp floor) would otherwise have expired.
func TestAckClearsPending(t *testing.T) {
	sim := newFakeSimulator(t)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		ResendTimeout:     30 * time.Millisecond,
		MaxResendAttempts: 5,
		PingInterval:      time.Hour,
		SimulatorTimeout:  time.Hour,
	})

	if err := e.Send(&messages.ChatFromViewer{Message: []byte("hi")}, true); err != nil {
		t.Fatalf("Send: %v", err)
	}
	datagram := readDatagram(t, sim, time.Second)
	h, _, err := header.Decode(datagram)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	ackMsg := &messages.PacketAck{Packets: []uint32{h.Sequence}}
	ackPayload := ackMsg.Encode()
	ackHeader := header.Encode(&header.Header{Sequence: 1})
	ackDatagram := header.EncodeID(ackHeader, messages.TypePacketAck.Frequency(), messages.TypePacketAck.ID())
	ackDatagram = append(ackDatagram, ackPayload...)

	engineAddr := e.conn.LocalAddr().(*net.UDPAddr)
	if _, err := sim.WriteToUDP(ackDatagram, engineAddr); err != nil {
		t.Fatalf("write ack: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	sim.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	buf := make([]byte, 2048)
	if _, err := sim.Read(buf); err == nil {
		t.Fatal("expected no further retransmit after ack cleared the pending send")
	}
}

// TestResendChargesResendChannel confirms retransmits are metered against
// ChannelResend rather than written straight to the socket.
func TestResendChargesResendChannel(t *testing.T) {
	sim := newFakeSimulator(t)
	th := NewThrottle(DefaultThrottleBPS)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		ResendTimeout:     30 * time.Millisecond,
		MaxResendAttempts: 2,
		PingInterval:      time.Hour,
		SimulatorTimeout:  time.Hour,
		Throttle:          th,
	})

	if err := e.Send(&messages.ChatFromViewer{Message: []byte("hi")}, true); err != nil {
		t.Fatalf("Send: %v", err)
	}
	readDatagram(t, sim, time.Second) // the initial send, unthrottled by ChannelResend

	// Drain ChannelResend's bucket and shrink its rate so any retransmit
	// charged against it must visibly wait for refill.
	th.mu.Lock()
	th.rate[ChannelResend] = 50
	th.tokens[ChannelResend] = 0
	th.mu.Unlock()

	start := time.Now()
	readDatagram(t, sim, 2*time.Second)
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("retransmit arrived after %v, want throttled by a drained, 50 B/s ChannelResend budget", elapsed)
	}
}

// TestResendExhaustionSignalsDisconnect confirms retransmit exhaustion
// invokes OnDisconnect with a reason wrapping ErrTimeout.
func TestResendExhaustionSignalsDisconnect(t *testing.T) {
	sim := newFakeSimulator(t)
	var mu sync.Mutex
	var reason error
	done := make(chan struct{})
	e, err := Dial(sim.LocalAddr().String(), Options{
		ResendTimeout:     30 * time.Millisecond,
		MaxResendAttempts: 2,
		PingInterval:      time.Hour,
		SimulatorTimeout:  time.Hour,
		OnDisconnect: func(r error) {
			mu.Lock()
			reason = r
			mu.Unlock()
			close(done)
		},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer e.Close()

	if err := e.Send(&messages.ChatFromViewer{Message: []byte("hi")}, true); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect never fired after resend exhaustion")
	}

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(reason, ErrTimeout) {
		t.Fatalf("reason = %v, want wrapping ErrTimeout", reason)
	}
}

// TestMissedPingWindowsSignalsDisconnect confirms a simulator that never
// answers StartPingCheck is disconnected after the third missed ping
// window, per the disconnect-candidate/confirm state machine.
func TestMissedPingWindowsSignalsDisconnect(t *testing.T) {
	sim := newFakeSimulator(t)
	done := make(chan error, 1)
	e, err := Dial(sim.LocalAddr().String(), Options{
		PingInterval:     20 * time.Millisecond,
		SimulatorTimeout: time.Hour,
		OnDisconnect:     func(r error) { done <- r },
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer e.Close()

	select {
	case reason := <-done:
		if !errors.Is(reason, ErrTimeout) {
			t.Fatalf("reason = %v, want wrapping ErrTimeout", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect never fired after missed ping windows")
	}
}

// TestEnableSimulatorSpawnsChildCircuit confirms an inbound EnableSimulator
// spawns a new circuit to the announced endpoint, in Handshaking, without
// altering the circuit that received it.
func TestEnableSimulatorSpawnsChildCircuit(t *testing.T) {
	sim := newFakeSimulator(t)
	e := dialTestEngine(t, sim.LocalAddr().String(), Options{
		MultipleSims:     true,
		PingInterval:     time.Hour,
		SimulatorTimeout: time.Hour,
	})

	otherSim := newFakeSimulator(t)
	port := otherSim.LocalAddr().(*net.UDPAddr).Port
	loopback := uint32(127) | uint32(0)<<8 | uint32(0)<<16 | uint32(1)<<24

	e.handleBuiltins(&messages.EnableSimulator{
		Handle: 1,
		IP:     types.IPAddr(loopback),
		Port:   types.IPPort(port),
	})

	children := e.Children()
	if len(children) != 1 {
		t.Fatalf("Children() len = %d, want 1", len(children))
	}
	defer children[0].Close()

	if children[0].State() != StateHandshaking {
		t.Fatalf("spawned circuit state = %v, want Handshaking", children[0].State())
	}
	if e.State() == StateClosed {
		t.Fatal("parent circuit must not be affected by spawning a child")
	}
}
