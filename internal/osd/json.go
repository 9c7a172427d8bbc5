package osd

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"dev.mvwire.core/internal/types"
)

// ErrJSONMalformed reports a JSON document that cannot map onto OSD.
var ErrJSONMalformed = errors.New("osd: malformed json document")

// EncodeJSON renders v as conventional JSON with two extensions: binary
// becomes a base64 string, UUID/Date become strings.
func EncodeJSON(v Value) []byte {
	b, _ := json.Marshal(toJSONAny(v))
	return b
}

func toJSONAny(v Value) interface{} {
	switch v.Type {
	case TypeNull:
		return nil
	case TypeBool:
		return v.Bool
	case TypeInt:
		return v.Int
	case TypeReal:
		return v.Real
	case TypeString:
		return v.String
	case TypeUUID:
		return v.UUID.String()
	case TypeDate:
		return types.DateToString(v.Date)
	case TypeURI:
		return v.URI
	case TypeBinary:
		return base64.StdEncoding.EncodeToString(v.Binary)
	case TypeArray:
		out := make([]interface{}, len(v.Array))
		for i, e := range v.Array {
			out[i] = toJSONAny(e)
		}
		return out
	case TypeMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, val := range v.Map {
			out[k] = toJSONAny(val)
		}
		return out
	default:
		return nil
	}
}

// DecodeJSON parses conventional JSON into an OSD value. Strings that look
// like UUIDs or ISO-8601 dates are left as OSD strings — JSON has no tag to
// disambiguate them from plain text, so round-tripping a UUID/Date through
// JSON requires the caller to know the target type and call AsUUID/AsDate.
func DecodeJSON(data []byte) (Value, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Null(), ErrJSONMalformed
	}
	return fromJSONAny(raw), nil
}

func fromJSONAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return FromBool(t)
	case float64:
		if t == float64(int32(t)) {
			return FromInt(int32(t))
		}
		return FromReal(t)
	case string:
		return FromString(t)
	case []interface{}:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = fromJSONAny(e)
		}
		return NewArray(arr)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = fromJSONAny(e)
		}
		return NewMap(m)
	default:
		return Null()
	}
}
