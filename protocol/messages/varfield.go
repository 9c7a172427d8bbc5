package messages

import (
	"fmt"

	"dev.mvwire.core/internal/types"
)

// writeVarBytes writes a length-prefixed byte string using a 1- or 2-byte
// little-endian prefix, per the Variable field type's declared Count.
func writeVarBytes(w *types.Writer, prefixWidth int, data []byte) error {
	switch prefixWidth {
	case 1:
		if len(data) > 255 {
			return fmt.Errorf("messages: variable field exceeds 255 bytes (count=1)")
		}
		w.U8(uint8(len(data)))
	case 2:
		if len(data) > 65535 {
			return fmt.Errorf("messages: variable field exceeds 65535 bytes (count=2)")
		}
		w.U16(uint16(len(data)))
	default:
		return fmt.Errorf("messages: invalid variable prefix width %d", prefixWidth)
	}
	w.Raw(data)
	return nil
}

// readVarBytes inverts writeVarBytes.
func readVarBytes(r *types.Reader, prefixWidth int) ([]byte, error) {
	var n int
	switch prefixWidth {
	case 1:
		v, err := r.U8()
		if err != nil {
			return nil, err
		}
		n = int(v)
	case 2:
		v, err := r.U16()
		if err != nil {
			return nil, err
		}
		n = int(v)
	default:
		return nil, fmt.Errorf("messages: invalid variable prefix width %d", prefixWidth)
	}
	return r.Bytes(n)
}

// varBytesLen returns the on-wire length of a variable byte field,
// including its prefix.
func varBytesLen(prefixWidth int, data []byte) int {
	return prefixWidth + len(data)
}

// splitVariableBlock implements the §4.2 to_bytes_multiple partitioning
// rule for a single Variable-multiplicity block: prefix holds every other
// already-encoded block (duplicated into each fragment verbatim), elems
// holds the per-element encodings of the variable block, and maxPayload is
// the MTU budget for the payload region of one fragment. At least one
// element is admitted per fragment even if it alone exceeds maxPayload, to
// avoid an infinite loop on an oversize element.
func splitVariableBlock(prefix []byte, elems [][]byte, maxPayload int) [][]byte {
	if len(elems) == 0 {
		frag := make([]byte, 0, len(prefix)+1)
		frag = append(frag, prefix...)
		frag = append(frag, 0)
		return [][]byte{frag}
	}
	var frags [][]byte
	i := 0
	for i < len(elems) {
		var body []byte
		count := 0
		for i < len(elems) && count < 255 {
			next := elems[i]
			if count > 0 && len(prefix)+1+len(body)+len(next) > maxPayload {
				break
			}
			body = append(body, next...)
			count++
			i++
		}
		frag := make([]byte, 0, len(prefix)+1+len(body))
		frag = append(frag, prefix...)
		frag = append(frag, byte(count))
		frag = append(frag, body...)
		frags = append(frags, frag)
	}
	return frags
}
