// Package messages holds the concrete per-message types the code
// generator (C2) produces from the descriptor table: a Go struct per kept
// message with Length/Encode/Decode/Split methods, the PacketType enum,
// and the factory that turns a decoded header + payload back into a typed
// Message.
package messages

import (
	"fmt"
	"log"

	"dev.mvwire.core/protocol/descriptor"
)

// PacketType is the global identifier combining frequency and id: the
// frequency occupies the upper nibble so every (frequency, id) pair maps
// to a distinct value, per §3.
type PacketType uint32

// Tag builds a PacketType from a frequency and id.
func Tag(freq descriptor.Frequency, id uint16) PacketType {
	return PacketType(descriptor.PacketTypeTag(freq, id))
}

// Frequency extracts the frequency class encoded in the upper nibble.
func (t PacketType) Frequency() descriptor.Frequency {
	return descriptor.Frequency(t >> 28)
}

// ID extracts the 16-bit id.
func (t PacketType) ID() uint16 { return uint16(t) }

func (t PacketType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PacketType(%d,%d)", t.Frequency(), t.ID())
}

// Message is the interface every generated message type satisfies.
type Message interface {
	// Type returns this message's PacketType tag.
	Type() PacketType
	// Length returns the exact byte length Encode will produce.
	Length() int
	// Encode serializes the message body in declaration order.
	Encode() []byte
	// Decode reconstructs the message from a decoded payload.
	Decode(payload []byte) error
	// Split implements to_bytes_multiple: when the message has no
	// Variable-multiplicity block, or the single encoding already fits,
	// it returns a single fragment. maxPayload is the MTU budget
	// remaining for this packet (MTU minus header and appended-acks
	// overhead).
	Split(maxPayload int) [][]byte
}

// Factory constructs a zero-value Message for a PacketType, or nil if the
// type is unknown (e.g. reserved-but-unused, or not in this build's
// curated descriptor subset).
func Factory(t PacketType) Message {
	if ctor, ok := factories[t]; ok {
		return ctor()
	}
	return nil
}

// Decode looks up the message type for (freq, id) and decodes payload into
// a new instance.
func Decode(freq descriptor.Frequency, id uint16, payload []byte) (Message, error) {
	t := Tag(freq, id)
	m := Factory(t)
	if m == nil {
		return nil, fmt.Errorf("messages: unknown packet type freq=%v id=%d", freq, id)
	}
	if err := m.Decode(payload); err != nil {
		return nil, err
	}
	if deprecatedTypes[t] {
		log.Printf("messages: decoded deprecated packet type %s", t)
	}
	return m, nil
}
