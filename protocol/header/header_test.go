package header

import (
	"bytes"
	"testing"

	"dev.mvwire.core/protocol/descriptor"
)

func buildDatagram(t *testing.T, h *Header, freq descriptor.Frequency, id uint16, payload []byte, acks []uint32) []byte {
	t.Helper()
	datagram := Encode(h)
	datagram = EncodeID(datagram, freq, id)
	datagram = append(datagram, payload...)
	datagram = AppendAcks(datagram, acks)
	return datagram
}

func TestHeaderRoundTripNoAcks(t *testing.T) {
	h := &Header{Reliable: true, Sequence: 42}
	payload := []byte{1, 2, 3, 4}
	datagram := buildDatagram(t, h, descriptor.Low, 148, payload, nil)

	got, gotPayload, err := Decode(datagram)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Reliable || got.Zerocoded || got.Resent {
		t.Fatalf("unexpected flags: %+v", got)
	}
	if got.Sequence != 42 {
		t.Fatalf("Sequence = %d, want 42", got.Sequence)
	}
	if got.Frequency != descriptor.Low || got.ID != 148 {
		t.Fatalf("Frequency/ID = %v/%d, want Low/148", got.Frequency, got.ID)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload = %v, want %v", gotPayload, payload)
	}
	if len(got.Acks) != 0 {
		t.Fatalf("expected no acks, got %v", got.Acks)
	}
}

func TestHeaderRoundTripWithAppendedAcks(t *testing.T) {
	h := &Header{Zerocoded: true, Sequence: 7}
	payload := []byte{9, 9, 9}
	acks := []uint32{100, 200, 300}
	datagram := buildDatagram(t, h, descriptor.High, 4, payload, acks)

	got, gotPayload, err := Decode(datagram)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Zerocoded {
		t.Fatal("expected Zerocoded flag set")
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload = %v, want %v (unchanged by ack piggyback)", gotPayload, payload)
	}
	if len(got.Acks) != len(acks) {
		t.Fatalf("Acks = %v, want %v", got.Acks, acks)
	}
	for i := range acks {
		if got.Acks[i] != acks[i] {
			t.Fatalf("Acks[%d] = %d, want %d", i, got.Acks[i], acks[i])
		}
	}
}

func TestIDWidthPerFrequency(t *testing.T) {
	cases := map[descriptor.Frequency]int{
		descriptor.High:   1,
		descriptor.Medium: 2,
		descriptor.Low:    4,
		descriptor.Fixed:  4,
	}
	for freq, want := range cases {
		if got := IDWidth(freq); got != want {
			t.Errorf("IDWidth(%v) = %d, want %d", freq, got, want)
		}
	}
}

func TestEncodeIDDecodeIDRoundTrip(t *testing.T) {
	cases := []struct {
		freq descriptor.Frequency
		id   uint16
	}{
		{descriptor.High, 4},
		{descriptor.Medium, 81},
		{descriptor.Low, 253},
		{descriptor.Fixed, 2},
	}
	for _, tc := range cases {
		buf := EncodeID(nil, tc.freq, tc.id)
		freq, id, n, err := DecodeID(buf)
		if err != nil {
			t.Fatalf("DecodeID(%v): %v", tc, err)
		}
		if freq != tc.freq || id != tc.id || n != len(buf) {
			t.Fatalf("DecodeID(%v) = (%v,%d,%d), want (%v,%d,%d)", tc, freq, id, n, tc.freq, tc.id, len(buf))
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, _, err := Decode([]byte{1, 2, 3}); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeBadAckTail(t *testing.T) {
	h := &Header{Sequence: 1}
	datagram := Encode(h)
	datagram = EncodeID(datagram, descriptor.High, 1)
	datagram[0] |= FlagAppendedAcks
	datagram = append(datagram, 5) // claims 5 acks but no data follows
	if _, _, err := Decode(datagram); err != ErrBadAckTail {
		t.Fatalf("expected ErrBadAckTail, got %v", err)
	}
}
