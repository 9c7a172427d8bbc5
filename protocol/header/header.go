// Package header implements the per-datagram header codec (C6): flags,
// sequence number, extra bytes, and the appended-ack tail. Grounded on the
// teacher's proto.EncodeFrame/DecodeFrame fixed 9-byte header, generalized
// to the protocol's bit-flag header and variable message-id width.
package header

import (
	"encoding/binary"
	"errors"

	"dev.mvwire.core/protocol/descriptor"
)

// Flag bits (byte 0 of the header).
const (
	FlagZerocoded    byte = 0x80
	FlagReliable     byte = 0x40
	FlagResent       byte = 0x20
	FlagAppendedAcks byte = 0x10
)

// ErrTruncated reports a datagram too short to contain a valid header.
var ErrTruncated = errors.New("header: truncated datagram")

// ErrBadAckTail reports an appended-ack tail that doesn't fit the datagram.
var ErrBadAckTail = errors.New("header: malformed appended-ack tail")

// Header is the decoded fixed header plus the appended-ack tail.
type Header struct {
	Zerocoded    bool
	Reliable     bool
	Resent       bool
	Sequence     uint32
	Extra        []byte
	Acks         []uint32
	Frequency    descriptor.Frequency
	ID           uint16
	idWidth      int
	withoutAcks  int // byte length of header+id, for splitting payload from tail
}

// IDWidth returns the on-wire byte width of the message id for f, per §3:
// High=1, Medium=2 (0xFF prefix), Low/Fixed=4 (0xFF 0xFF / 0xFF 0xFF 0xFF
// prefix).
func IDWidth(f descriptor.Frequency) int {
	switch f {
	case descriptor.High:
		return 1
	case descriptor.Medium:
		return 2
	default:
		return 4
	}
}

// EncodeID appends the frequency-tagged message id to buf.
func EncodeID(buf []byte, f descriptor.Frequency, id uint16) []byte {
	switch f {
	case descriptor.High:
		return append(buf, byte(id))
	case descriptor.Medium:
		return append(buf, 0xFF, byte(id))
	case descriptor.Low:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], id)
		return append(buf, 0xFF, 0xFF, b[0], b[1])
	default: // Fixed
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], id)
		return append(buf, 0xFF, 0xFF, 0xFF, b[1])
	}
}

// DecodeID reads the frequency-tagged message id starting at buf[0],
// returning the frequency, id, and number of bytes consumed.
func DecodeID(buf []byte) (descriptor.Frequency, uint16, int, error) {
	if len(buf) < 1 {
		return 0, 0, 0, ErrTruncated
	}
	if buf[0] != 0xFF {
		return descriptor.High, uint16(buf[0]), 1, nil
	}
	if len(buf) < 2 {
		return 0, 0, 0, ErrTruncated
	}
	if buf[1] != 0xFF {
		return descriptor.Medium, uint16(buf[1]), 2, nil
	}
	if len(buf) < 4 {
		return 0, 0, 0, ErrTruncated
	}
	if buf[2] != 0xFF {
		return descriptor.Low, binary.BigEndian.Uint16(buf[2:4]), 4, nil
	}
	return descriptor.Fixed, uint16(buf[3]), 4, nil
}

// Encode writes the fixed header (flags, sequence, extra) into a new
// buffer and returns it; the caller appends the message id and payload.
func Encode(h *Header) []byte {
	var flags byte
	if h.Zerocoded {
		flags |= FlagZerocoded
	}
	if h.Reliable {
		flags |= FlagReliable
	}
	if h.Resent {
		flags |= FlagResent
	}
	if len(h.Acks) > 0 {
		flags |= FlagAppendedAcks
	}
	buf := make([]byte, 0, 6+len(h.Extra))
	buf = append(buf, flags)
	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], h.Sequence)
	buf = append(buf, seq[:]...)
	buf = append(buf, byte(len(h.Extra)))
	buf = append(buf, h.Extra...)
	return buf
}

// AppendAcks appends the ack-count tail byte and the big-endian u32 ack
// list to a fully assembled datagram (after payload).
func AppendAcks(datagram []byte, acks []uint32) []byte {
	if len(acks) == 0 {
		return datagram
	}
	if len(acks) > 255 {
		acks = acks[:255]
	}
	datagram[0] |= FlagAppendedAcks
	for _, a := range acks {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], a)
		datagram = append(datagram, b[:]...)
	}
	return append(datagram, byte(len(acks)))
}

// Decode parses the fixed header, message id, payload region, and
// appended-ack tail out of a full datagram.
func Decode(datagram []byte) (*Header, []byte, error) {
	if len(datagram) < 6 {
		return nil, nil, ErrTruncated
	}
	flags := datagram[0]
	seq := binary.BigEndian.Uint32(datagram[1:5])
	extraLen := int(datagram[5])
	if len(datagram) < 6+extraLen {
		return nil, nil, ErrTruncated
	}
	extra := datagram[6 : 6+extraLen]
	rest := datagram[6+extraLen:]

	h := &Header{
		Zerocoded: flags&FlagZerocoded != 0,
		Reliable:  flags&FlagReliable != 0,
		Resent:    flags&FlagResent != 0,
		Sequence:  seq,
		Extra:     append([]byte(nil), extra...),
	}

	hasAcks := flags&FlagAppendedAcks != 0
	payloadEnd := len(rest)
	if hasAcks {
		if len(rest) < 1 {
			return nil, nil, ErrBadAckTail
		}
		n := int(rest[len(rest)-1])
		needed := 1 + 4*n
		if len(rest) < needed {
			return nil, nil, ErrBadAckTail
		}
		ackBytes := rest[len(rest)-needed : len(rest)-1]
		acks := make([]uint32, n)
		for i := 0; i < n; i++ {
			acks[i] = binary.BigEndian.Uint32(ackBytes[i*4 : i*4+4])
		}
		h.Acks = acks
		payloadEnd = len(rest) - needed
	}

	freq, id, idLen, err := DecodeID(rest)
	if err != nil {
		return nil, nil, err
	}
	h.Frequency = freq
	h.ID = id
	h.idWidth = idLen

	if idLen > payloadEnd {
		return nil, nil, ErrTruncated
	}
	payload := rest[idLen:payloadEnd]
	return h, payload, nil
}
