package osd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"dev.mvwire.core/internal/types"
)

// BinaryHeader is written (and matched, case-insensitively) at the start of
// a binary-OSD stream.
var BinaryHeader = []byte("<? llsd/binary ?>\n")

// ErrBinaryMalformed reports a structurally invalid binary-OSD stream.
var ErrBinaryMalformed = errors.New("osd: malformed binary stream")

const (
	tagUndef  = '!'
	tagTrue   = '1'
	tagFalse  = '0'
	tagInt    = 'i'
	tagReal   = 'r'
	tagUUID   = 'u'
	tagBinary = 'b'
	tagString = 's'
	tagURI    = 'l'
	tagDate   = 'd'
	tagArray  = '['
	tagArrEnd = ']'
	tagMap    = '{'
	tagMapEnd = '}'
	tagMapKey = 'k'
)

// EncodeBinary renders v as a binary-OSD stream, including the header.
func EncodeBinary(v Value) []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write(BinaryHeader)
	writeBinary(buf, v)
	return buf.Bytes()
}

func writeBinary(buf *bytes.Buffer, v Value) {
	switch v.Type {
	case TypeNull:
		buf.WriteByte(tagUndef)
	case TypeBool:
		if v.Bool {
			buf.WriteByte(tagTrue)
		} else {
			buf.WriteByte(tagFalse)
		}
	case TypeInt:
		buf.WriteByte(tagInt)
		writeBE32(buf, uint32(v.Int))
	case TypeReal:
		buf.WriteByte(tagReal)
		writeBE64(buf, int64ToBitsReal(v.Real))
	case TypeUUID:
		buf.WriteByte(tagUUID)
		buf.Write(v.UUID[:])
	case TypeBinary:
		buf.WriteByte(tagBinary)
		writeBE32(buf, uint32(len(v.Binary)))
		buf.Write(v.Binary)
	case TypeString:
		buf.WriteByte(tagString)
		b := []byte(v.String)
		writeBE32(buf, uint32(len(b)))
		buf.Write(b)
	case TypeURI:
		buf.WriteByte(tagURI)
		b := []byte(v.URI)
		writeBE32(buf, uint32(len(b)))
		buf.Write(b)
	case TypeDate:
		buf.WriteByte(tagDate)
		writeBE64(buf, int64ToBitsReal(types.DateToFloat64(v.Date)))
	case TypeArray:
		buf.WriteByte(tagArray)
		writeBE32(buf, uint32(len(v.Array)))
		for _, e := range v.Array {
			writeBinary(buf, e)
		}
		buf.WriteByte(tagArrEnd)
	case TypeMap:
		buf.WriteByte(tagMap)
		writeBE32(buf, uint32(len(v.Map)))
		for k, val := range v.Map {
			buf.WriteByte(tagMapKey)
			kb := []byte(k)
			writeBE32(buf, uint32(len(kb)))
			buf.Write(kb)
			writeBinary(buf, val)
		}
		buf.WriteByte(tagMapEnd)
	default:
		buf.WriteByte(tagUndef)
	}
}

func writeBE32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBE64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func int64ToBitsReal(f float64) uint64 {
	return floatToBits(f)
}

// DecodeBinary parses a binary-OSD stream, including the header.
func DecodeBinary(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	header := make([]byte, len(BinaryHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return Null(), ErrBinaryMalformed
	}
	return readBinary(r)
}

func readBinary(r *bytes.Reader) (Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Null(), err
	}
	switch tag {
	case tagUndef:
		return Null(), nil
	case tagTrue:
		return FromBool(true), nil
	case tagFalse:
		return FromBool(false), nil
	case tagInt:
		v, err := readBE32(r)
		if err != nil {
			return Null(), err
		}
		return FromInt(int32(v)), nil
	case tagReal:
		v, err := readBE64(r)
		if err != nil {
			return Null(), err
		}
		return FromReal(bitsToFloat(v)), nil
	case tagUUID:
		var u types.UUID
		if _, err := io.ReadFull(r, u[:]); err != nil {
			return Null(), err
		}
		return FromUUID(u), nil
	case tagBinary:
		n, err := readBE32(r)
		if err != nil {
			return Null(), err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return Null(), err
		}
		return FromBinary(b), nil
	case tagString:
		n, err := readBE32(r)
		if err != nil {
			return Null(), err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return Null(), err
		}
		return FromString(string(b)), nil
	case tagURI:
		n, err := readBE32(r)
		if err != nil {
			return Null(), err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return Null(), err
		}
		return FromURI(string(b)), nil
	case tagDate:
		v, err := readBE64(r)
		if err != nil {
			return Null(), err
		}
		return FromDate(types.Float64ToDate(bitsToFloat(v))), nil
	case tagArray:
		n, err := readBE32(r)
		if err != nil {
			return Null(), err
		}
		arr := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			e, err := readBinary(r)
			if err != nil {
				return Null(), err
			}
			arr = append(arr, e)
		}
		end, err := r.ReadByte()
		if err != nil || end != tagArrEnd {
			return Null(), ErrBinaryMalformed
		}
		return NewArray(arr), nil
	case tagMap:
		n, err := readBE32(r)
		if err != nil {
			return Null(), err
		}
		m := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			kTag, err := r.ReadByte()
			if err != nil || kTag != tagMapKey {
				return Null(), ErrBinaryMalformed
			}
			kn, err := readBE32(r)
			if err != nil {
				return Null(), err
			}
			kb := make([]byte, kn)
			if _, err := io.ReadFull(r, kb); err != nil {
				return Null(), err
			}
			val, err := readBinary(r)
			if err != nil {
				return Null(), err
			}
			m[string(kb)] = val
		}
		end, err := r.ReadByte()
		if err != nil || end != tagMapEnd {
			return Null(), ErrBinaryMalformed
		}
		return NewMap(m), nil
	default:
		return Null(), ErrBinaryMalformed
	}
}

func readBE32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readBE64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
