package circuit

import (
	"fmt"
	"net"
	"time"

	"github.com/pion/stun/v2"
)

// ExternalAddress performs a single STUN binding request against stunAddr
// (host:port) over a fresh UDP socket and returns the server-reflexive
// address the viewer would advertise as its external endpoint. Grounded on
// the teacher's IceGatherWithSTUN, generalized from ICE candidate gathering
// down to the one binding request a circuit needs to learn its public
// UDP mapping before sending UseCircuitCode through a NAT.
func ExternalAddress(stunAddr string, timeout time.Duration) (*net.UDPAddr, error) {
	conn, err := net.Dial("udp", stunAddr)
	if err != nil {
		return nil, fmt.Errorf("circuit: stun dial %s: %w", stunAddr, err)
	}
	defer conn.Close()

	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	conn.SetDeadline(time.Now().Add(timeout))

	msg, err := stun.Build(stun.TransactionID, stun.BindingRequest)
	if err != nil {
		return nil, fmt.Errorf("circuit: stun build: %w", err)
	}
	if _, err := conn.Write(msg.Raw); err != nil {
		return nil, fmt.Errorf("circuit: stun send: %w", err)
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("circuit: stun read: %w", err)
	}

	reply := &stun.Message{Raw: buf[:n]}
	if err := reply.Decode(); err != nil {
		return nil, fmt.Errorf("circuit: stun decode: %w", err)
	}

	var xor stun.XORMappedAddress
	if err := xor.GetFrom(reply); err != nil {
		var mapped stun.MappedAddress
		if err2 := mapped.GetFrom(reply); err2 != nil {
			return nil, fmt.Errorf("circuit: stun response has no mapped address: %w", err)
		}
		return &net.UDPAddr{IP: mapped.IP, Port: mapped.Port}, nil
	}
	return &net.UDPAddr{IP: xor.IP, Port: xor.Port}, nil
}
