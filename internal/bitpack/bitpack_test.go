package bitpack

import (
	"math"
	"testing"
)

func TestPackFixedUnsignedScenario(t *testing.T) {
	buf := make([]byte, 1)
	p := NewPacker(buf)
	if err := p.PackFixed(3.5, false, 4, 4); err != nil {
		t.Fatalf("PackFixed: %v", err)
	}
	if buf[0] != 56 {
		t.Fatalf("wire integer = %d, want 56 (0x38)", buf[0])
	}

	u := NewUnpacker(buf)
	got, err := u.UnpackFixed(false, 4, 4)
	if err != nil {
		t.Fatalf("UnpackFixed: %v", err)
	}
	if got != 3.5 {
		t.Fatalf("UnpackFixed = %v, want 3.5", got)
	}
}

func TestPackFixedSignedRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	p := NewPacker(buf)
	if err := p.PackFixed(-2.25, true, 4, 4); err != nil {
		t.Fatalf("PackFixed: %v", err)
	}
	u := NewUnpacker(buf)
	got, err := u.UnpackFixed(true, 4, 4)
	if err != nil {
		t.Fatalf("UnpackFixed: %v", err)
	}
	if math.Abs(got-(-2.25)) > 1.0/16 {
		t.Fatalf("UnpackFixed = %v, want ~-2.25", got)
	}
}

func TestPackFixedClampsOutOfRange(t *testing.T) {
	buf := make([]byte, 1)
	p := NewPacker(buf)
	if err := p.PackFixed(999, false, 4, 4); err != nil {
		t.Fatalf("PackFixed: %v", err)
	}
	if buf[0] != 0xff {
		t.Fatalf("expected clamp to max wire value 0xff, got %#x", buf[0])
	}
}

func TestBitSequenceRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	p := NewPacker(buf)
	values := []struct {
		v uint32
		w int
	}{
		{1, 1},
		{5, 3},
		{200, 8},
		{0x1234, 16},
	}
	for _, tc := range values {
		if err := p.PackBits(tc.v, tc.w); err != nil {
			t.Fatalf("PackBits(%d,%d): %v", tc.v, tc.w, err)
		}
	}

	u := NewUnpacker(buf)
	for _, tc := range values {
		got, err := u.UnpackBits(tc.w)
		if err != nil {
			t.Fatalf("UnpackBits(%d): %v", tc.w, err)
		}
		if got != tc.v {
			t.Fatalf("UnpackBits(%d) = %d, want %d", tc.w, got, tc.v)
		}
	}
}

func TestResetMasksTopBits(t *testing.T) {
	buf := []byte{0xff}
	p := NewPacker(buf)
	if err := p.Reset(0, 3); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	// top 3 bits cleared, bottom 5 preserved
	if buf[0] != 0x1f {
		t.Fatalf("Reset masking = %#x, want 0x1f", buf[0])
	}
}

func TestPackStringMisalignedFails(t *testing.T) {
	buf := make([]byte, 4)
	p := NewPacker(buf)
	if err := p.PackBit(true); err != nil {
		t.Fatalf("PackBit: %v", err)
	}
	if err := p.PackString("hi"); err != ErrMisaligned {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestUnpackOverflow(t *testing.T) {
	u := NewUnpacker(nil)
	if _, err := u.UnpackBit(); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	p := NewPacker(buf)
	var id [16]byte
	for i := range id {
		id[i] = byte(i * 7)
	}
	if err := p.PackUUID(id); err != nil {
		t.Fatalf("PackUUID: %v", err)
	}
	u := NewUnpacker(buf)
	got, err := u.UnpackUUID()
	if err != nil {
		t.Fatalf("UnpackUUID: %v", err)
	}
	if got != id {
		t.Fatalf("UnpackUUID = %v, want %v", got, id)
	}
}
