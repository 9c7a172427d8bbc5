package osd

import "strings"

// Format identifies one of the four interoperable OSD serializations.
type Format int

const (
	FormatXML Format = iota
	FormatNotation
	FormatBinary
	FormatJSON
)

// DetectFormat sniffs the leading bytes of data per §4.4: "<llsd>" or
// "<?xml" selects XML, "<? llsd/notation" selects notation, "<? llsd/binary"
// selects binary; anything else is assumed to be JSON.
func DetectFormat(data []byte) Format {
	head := strings.ToLower(strings.TrimSpace(string(firstN(data, 32))))
	switch {
	case strings.HasPrefix(head, "<llsd>"), strings.HasPrefix(head, "<?xml"):
		return FormatXML
	case strings.HasPrefix(head, "<? llsd/notation"):
		return FormatNotation
	case strings.HasPrefix(head, "<? llsd/binary"):
		return FormatBinary
	default:
		return FormatJSON
	}
}

func firstN(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}

// Parse auto-detects the format and decodes data into a Value.
func Parse(data []byte) (Value, error) {
	switch DetectFormat(data) {
	case FormatXML:
		return DecodeXML(data)
	case FormatNotation:
		return DecodeNotation(data)
	case FormatBinary:
		return DecodeBinary(data)
	default:
		return DecodeJSON(data)
	}
}

// Emit encodes v using the named format.
func Emit(v Value, f Format) []byte {
	switch f {
	case FormatXML:
		return EncodeXML(v)
	case FormatNotation:
		return EncodeNotation(v)
	case FormatBinary:
		return EncodeBinary(v)
	default:
		return EncodeJSON(v)
	}
}
