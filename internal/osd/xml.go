package osd

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"dev.mvwire.core/internal/types"
)

// XMLHeader is written ahead of the <llsd> root on encode.
const XMLHeader = `<?xml version="1.0" ?>`

// EmptySentinel is the canonical "no content" XML-LLSD document (§6).
const EmptySentinel = `<?xml version="1.0"?><Empty>Empty LLSD</Empty>`

// ErrXMLMalformed reports a structurally invalid XML-LLSD document.
var ErrXMLMalformed = errors.New("osd: malformed xml-llsd document")

// EncodeXML renders v as an XML-LLSD document — the interoperability
// baseline format.
func EncodeXML(v Value) []byte {
	buf := bytes.NewBufferString(XMLHeader)
	buf.WriteString("<llsd>")
	writeXML(buf, v)
	buf.WriteString("</llsd>")
	return buf.Bytes()
}

func writeXML(buf *bytes.Buffer, v Value) {
	switch v.Type {
	case TypeNull:
		buf.WriteString("<undef/>")
	case TypeBool:
		if v.Bool {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case TypeInt:
		buf.WriteString("<integer>")
		buf.WriteString(strconv.FormatInt(int64(v.Int), 10))
		buf.WriteString("</integer>")
	case TypeReal:
		buf.WriteString("<real>")
		buf.WriteString(strconv.FormatFloat(v.Real, 'g', -1, 64))
		buf.WriteString("</real>")
	case TypeString:
		buf.WriteString("<string>")
		xml.EscapeText(buf, []byte(v.String))
		buf.WriteString("</string>")
	case TypeUUID:
		buf.WriteString("<uuid>")
		buf.WriteString(v.UUID.String())
		buf.WriteString("</uuid>")
	case TypeDate:
		buf.WriteString("<date>")
		buf.WriteString(types.DateToString(v.Date))
		buf.WriteString("</date>")
	case TypeURI:
		buf.WriteString("<uri>")
		xml.EscapeText(buf, []byte(v.URI))
		buf.WriteString("</uri>")
	case TypeBinary:
		buf.WriteString(`<binary encoding="base64">`)
		buf.WriteString(base64.StdEncoding.EncodeToString(v.Binary))
		buf.WriteString("</binary>")
	case TypeArray:
		buf.WriteString("<array>")
		for _, e := range v.Array {
			writeXML(buf, e)
		}
		buf.WriteString("</array>")
	case TypeMap:
		buf.WriteString("<map>")
		for k, val := range v.Map {
			buf.WriteString("<key>")
			xml.EscapeText(buf, []byte(k))
			buf.WriteString("</key>")
			writeXML(buf, val)
		}
		buf.WriteString("</map>")
	default:
		buf.WriteString("<undef/>")
	}
}

// DecodeXML parses an XML-LLSD document, including the empty sentinel.
func DecodeXML(data []byte) (Value, error) {
	if strings.Contains(string(data), "<Empty>") {
		return Null(), nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	// advance to <llsd>
	for {
		tok, err := dec.Token()
		if err != nil {
			return Null(), ErrXMLMalformed
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "llsd" {
			break
		}
	}
	v, err := readXMLValue(dec)
	if err != nil {
		return Null(), err
	}
	return v, nil
}

// readXMLValue reads one LLSD element (the next StartElement found).
func readXMLValue(dec *xml.Decoder) (Value, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return Null(), nil
			}
			return Null(), ErrXMLMalformed
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "llsd" {
				return Null(), nil
			}
		case xml.StartElement:
			return readXMLElement(dec, t)
		}
	}
}

func readXMLElement(dec *xml.Decoder, start xml.StartElement) (Value, error) {
	switch start.Name.Local {
	case "undef":
		skipToEnd(dec, start)
		return Null(), nil
	case "boolean":
		s := readText(dec, start)
		s = strings.TrimSpace(s)
		return FromBool(s == "1" || strings.EqualFold(s, "true")), nil
	case "integer":
		s := strings.TrimSpace(readText(dec, start))
		n, _ := strconv.ParseInt(s, 10, 64)
		return FromInt(int32(n)), nil
	case "real":
		s := strings.TrimSpace(readText(dec, start))
		f, _ := strconv.ParseFloat(s, 64)
		return FromReal(f), nil
	case "string":
		return FromString(readText(dec, start)), nil
	case "uuid":
		s := strings.TrimSpace(readText(dec, start))
		u, _ := types.ParseUUID(s)
		return FromUUID(u), nil
	case "date":
		s := strings.TrimSpace(readText(dec, start))
		t, _ := types.ParseDate(s)
		return FromDate(t), nil
	case "uri":
		return FromURI(readText(dec, start)), nil
	case "binary":
		s := strings.TrimSpace(readText(dec, start))
		b, _ := base64.StdEncoding.DecodeString(s)
		return FromBinary(b), nil
	case "array":
		var arr []Value
		for {
			tok, err := dec.Token()
			if err != nil {
				return Null(), ErrXMLMalformed
			}
			if se, ok := tok.(xml.StartElement); ok {
				v, err := readXMLElement(dec, se)
				if err != nil {
					return Null(), err
				}
				arr = append(arr, v)
				continue
			}
			if ee, ok := tok.(xml.EndElement); ok && ee.Name.Local == "array" {
				break
			}
		}
		return NewArray(arr), nil
	case "map":
		m := make(map[string]Value)
		var pendingKey string
		haveKey := false
		for {
			tok, err := dec.Token()
			if err != nil {
				return Null(), ErrXMLMalformed
			}
			if se, ok := tok.(xml.StartElement); ok {
				if se.Name.Local == "key" {
					pendingKey = readText(dec, se)
					haveKey = true
					continue
				}
				v, err := readXMLElement(dec, se)
				if err != nil {
					return Null(), err
				}
				if haveKey {
					m[pendingKey] = v
					haveKey = false
				}
				continue
			}
			if ee, ok := tok.(xml.EndElement); ok && ee.Name.Local == "map" {
				break
			}
		}
		return NewMap(m), nil
	default:
		skipToEnd(dec, start)
		return Null(), nil
	}
}

func readText(dec *xml.Decoder, start xml.StartElement) string {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return sb.String()
}

func skipToEnd(dec *xml.Decoder, start xml.StartElement) {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
}
