package osd

import (
	"testing"
	"time"

	"dev.mvwire.core/internal/types"
)

func sampleValue() Value {
	return NewMap(map[string]Value{
		"name":   FromString("Ping"),
		"count":  FromInt(42),
		"pi":     FromReal(3.5),
		"active": FromBool(true),
		"nada":   Null(),
		"tags":   NewArray([]Value{FromInt(1), FromBool(true), Null()}),
	})
}

func TestRoundTripAllFormats(t *testing.T) {
	v := sampleValue()
	formats := []Format{FormatBinary, FormatNotation, FormatXML, FormatJSON}
	for _, f := range formats {
		encoded := Emit(v, f)
		got, err := Parse(encoded)
		if err != nil {
			t.Fatalf("format %v: Parse: %v", f, err)
		}
		if !Equivalent(v, got) {
			t.Fatalf("format %v: round trip mismatch: got %+v, want %+v", f, got, v)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	v := sampleValue()
	cases := []struct {
		f    Format
		want Format
	}{
		{FormatBinary, FormatBinary},
		{FormatNotation, FormatNotation},
		{FormatXML, FormatXML},
		{FormatJSON, FormatJSON},
	}
	for _, tc := range cases {
		encoded := Emit(v, tc.f)
		if got := DetectFormat(encoded); got != tc.want {
			t.Errorf("DetectFormat(Emit(_, %v)) = %v, want %v", tc.f, got, tc.want)
		}
	}
}

// TestJSONScenario is the literal example: {"a":[1,true,null]} decodes to
// Map{"a" -> Array[Int 1, Bool true, Null]}.
func TestJSONScenario(t *testing.T) {
	got, err := DecodeJSON([]byte(`{"a":[1,true,null]}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.Type != TypeMap {
		t.Fatalf("got.Type = %v, want TypeMap", got.Type)
	}
	a, ok := got.Map["a"]
	if !ok {
		t.Fatalf("missing key %q in %+v", "a", got.Map)
	}
	if a.Type != TypeArray || len(a.Array) != 3 {
		t.Fatalf("a = %+v, want a 3-element array", a)
	}
	if a.Array[0].Type != TypeInt || a.Array[0].Int != 1 {
		t.Errorf("a[0] = %+v, want Int 1", a.Array[0])
	}
	if a.Array[1].Type != TypeBool || a.Array[1].Bool != true {
		t.Errorf("a[1] = %+v, want Bool true", a.Array[1])
	}
	if a.Array[2].Type != TypeNull {
		t.Errorf("a[2] = %+v, want Null", a.Array[2])
	}
}

func TestEncodeJSONMatchesShape(t *testing.T) {
	v := NewMap(map[string]Value{"a": NewArray([]Value{FromInt(1), FromBool(true), Null()})})
	got := string(EncodeJSON(v))
	want := `{"a":[1,true,null]}`
	if got != want {
		t.Fatalf("EncodeJSON = %s, want %s", got, want)
	}
}

func TestXMLEmptySentinel(t *testing.T) {
	v, err := DecodeXML([]byte(EmptySentinel))
	if err != nil {
		t.Fatalf("DecodeXML: %v", err)
	}
	if v.Type != TypeNull {
		t.Fatalf("DecodeXML(EmptySentinel) = %+v, want Null", v)
	}
}

func TestAsBoolCoercions(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{FromInt(0), false},
		{FromInt(1), true},
		{FromReal(0), false},
		{FromReal(0.5), true},
		{FromString(""), false},
		{FromString("0"), false},
		{FromString("false"), false},
		{FromString("no"), true},
		{Null(), false},
		{NewArray(nil), false},
		{NewArray([]Value{Null()}), true},
	}
	for _, tc := range cases {
		if got := tc.v.AsBool(); got != tc.want {
			t.Errorf("(%+v).AsBool() = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestAsIntAsLongCoercions(t *testing.T) {
	if got := FromReal(3.9).AsInt(); got != 3 {
		t.Errorf("FromReal(3.9).AsInt() = %d, want 3", got)
	}
	if got := FromReal(-3.9).AsInt(); got != -4 {
		t.Errorf("FromReal(-3.9).AsInt() = %d, want -4 (floor)", got)
	}
	if got := FromString("42abc").AsInt(); got != 42 {
		t.Errorf("FromString(\"42abc\").AsInt() = %d, want 42", got)
	}
	if got := FromBool(true).AsLong(); got != 1 {
		t.Errorf("FromBool(true).AsLong() = %d, want 1", got)
	}
	huge := FromReal(1e30)
	if got := huge.AsInt(); got != 2147483647 {
		t.Errorf("out-of-range AsInt() = %d, want clamp to MaxInt32", got)
	}
}

func TestAsStringAsRealRoundTrip(t *testing.T) {
	v := FromReal(2.5)
	s := v.AsString()
	if s != "2.5" {
		t.Errorf("AsString() = %q, want %q", s, "2.5")
	}
	back := FromString(s)
	if back.AsReal() != 2.5 {
		t.Errorf("AsReal() round trip = %v, want 2.5", back.AsReal())
	}
}

func TestAsUUIDAsDateCoercions(t *testing.T) {
	id, err := types.ParseUUID("550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("ParseUUID: %v", err)
	}
	v := FromString(id.String())
	if got := v.AsUUID(); got != id {
		t.Errorf("AsUUID() = %v, want %v", got, id)
	}
	if got := FromString("not-a-uuid").AsUUID(); got != types.Zero {
		t.Errorf("AsUUID() on garbage = %v, want Zero", got)
	}

	now := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	dv := FromDate(now)
	str := dv.AsString()
	parsed := FromString(str).AsDate()
	if !parsed.Equal(now) {
		t.Errorf("AsDate round trip via AsString = %v, want %v", parsed, now)
	}
}

func TestAsBinaryCoercion(t *testing.T) {
	v := FromString("hello")
	if got := string(v.AsBinary()); got != "hello" {
		t.Errorf("AsBinary() = %q, want %q", got, "hello")
	}
	if got := Null().AsBinary(); len(got) != 0 {
		t.Errorf("AsBinary() on Null = %v, want empty", got)
	}
}

func TestEquivalent(t *testing.T) {
	a := NewMap(map[string]Value{"x": FromInt(1), "y": NewArray([]Value{FromReal(1.5)})})
	b := NewMap(map[string]Value{"y": NewArray([]Value{FromReal(1.5)}), "x": FromInt(1)})
	if !Equivalent(a, b) {
		t.Fatal("expected maps with same keys/values in different insertion order to be Equivalent")
	}

	c := NewMap(map[string]Value{"x": FromInt(2), "y": NewArray([]Value{FromReal(1.5)})})
	if Equivalent(a, c) {
		t.Fatal("expected maps differing in a value to be non-Equivalent")
	}

	arr1 := NewArray([]Value{FromInt(1), FromInt(2)})
	arr2 := NewArray([]Value{FromInt(2), FromInt(1)})
	if Equivalent(arr1, arr2) {
		t.Fatal("expected arrays with same elements in different order to be non-Equivalent")
	}
}

func TestUUIDBinaryRoundTrip(t *testing.T) {
	id, err := types.ParseUUID("550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("ParseUUID: %v", err)
	}
	v := FromUUID(id)
	for _, f := range []Format{FormatBinary, FormatNotation, FormatXML, FormatJSON} {
		encoded := Emit(v, f)
		var back Value
		var derr error
		switch f {
		case FormatBinary:
			back, derr = DecodeBinary(encoded)
		case FormatNotation:
			back, derr = DecodeNotation(encoded)
		case FormatXML:
			back, derr = DecodeXML(encoded)
		default:
			back, derr = DecodeJSON(encoded)
		}
		if derr != nil {
			t.Fatalf("format %v: decode: %v", f, derr)
		}
		var gotID types.UUID
		if f == FormatJSON {
			gotID = back.AsUUID()
		} else {
			gotID = back.UUID
		}
		if gotID != id {
			t.Errorf("format %v: UUID round trip = %v, want %v", f, gotID, id)
		}
	}
}
