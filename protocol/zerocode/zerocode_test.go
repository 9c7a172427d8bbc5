package zerocode

import (
	"bytes"
	"testing"
)

func TestEncodeExample(t *testing.T) {
	got := Encode([]byte{1, 0, 0, 0, 2})
	want := []byte{1, 0, 3, 2}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode = %v, want %v", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{1, 2, 3},
		{0, 0, 0, 0, 0},
		{1, 0, 0, 0, 2},
		bytes.Repeat([]byte{0}, 600),
	}
	for _, payload := range cases {
		encoded := Encode(payload)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%v): %v", encoded, err)
		}
		if !bytes.Equal(decoded, payload) {
			t.Fatalf("round trip mismatch: got %v, want %v", decoded, payload)
		}
	}
}

func TestDecodeMalformedDoubleZero(t *testing.T) {
	if _, err := Decode([]byte{0, 0}); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeTruncatedRun(t *testing.T) {
	if _, err := Decode([]byte{1, 0}); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed for truncated run, got %v", err)
	}
}

func TestEncodeLongRunSplits(t *testing.T) {
	payload := bytes.Repeat([]byte{0}, 300)
	encoded := Encode(payload)
	if len(encoded) != 4 {
		t.Fatalf("expected two (0x00,count) pairs for a 300-byte run, got %d bytes: %v", len(encoded), encoded)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatal("round trip mismatch on long run")
	}
}
