// Package hwf talks to the upstream How We Feel backend: a token-refresh
// identity endpoint, a typed-document store, and a friend-code lookup
// function.
package hwf

import (
	"strconv"
	"time"
)

// Encode converts a native value into the store's typed wire form. Integers
// travel as decimal strings on the wire; floats stay JSON numbers, so a Go
// int and a Go float64 never share a tag and decoding stays exact.
func Encode(v any) map[string]any {
	switch val := v.(type) {
	case nil:
		return map[string]any{"nullValue": nil}
	case string:
		return map[string]any{"stringValue": val}
	case bool:
		return map[string]any{"booleanValue": val}
	case int:
		return map[string]any{"integerValue": strconv.FormatInt(int64(val), 10)}
	case int32:
		return map[string]any{"integerValue": strconv.FormatInt(int64(val), 10)}
	case int64:
		return map[string]any{"integerValue": strconv.FormatInt(val, 10)}
	case float32:
		return map[string]any{"doubleValue": float64(val)}
	case float64:
		return map[string]any{"doubleValue": val}
	case time.Time:
		return map[string]any{"timestampValue": val.UTC().Format(time.RFC3339Nano)}
	case []any:
		values := make([]any, 0, len(val))
		for _, item := range val {
			values = append(values, Encode(item))
		}
		return map[string]any{"arrayValue": map[string]any{"values": values}}
	case []string:
		values := make([]any, 0, len(val))
		for _, item := range val {
			values = append(values, Encode(item))
		}
		return map[string]any{"arrayValue": map[string]any{"values": values}}
	case map[string]any:
		return map[string]any{"mapValue": map[string]any{"fields": EncodeDocument(val)}}
	default:
		return map[string]any{}
	}
}

// EncodeDocument encodes a whole document body: a bare field map, not a
// mapValue wrapper. This is what distinguishes a document payload from a
// nested field.
func EncodeDocument(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		out[name] = Encode(value)
	}
	return out
}

// DecodeDocument resolves a document's field map back into plain values.
func DecodeDocument(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		out[name] = DecodeValue(value)
	}
	return out
}

// DecodeValue resolves one tagged wire value. Unrecognized tags come back
// as the raw tagged structure so newer server types never break decoding.
func DecodeValue(v any) any {
	tagged, ok := v.(map[string]any)
	if !ok || len(tagged) == 0 {
		return nil
	}

	if s, ok := tagged["stringValue"]; ok {
		return s
	}
	if b, ok := tagged["booleanValue"]; ok {
		return b
	}
	if i, ok := tagged["integerValue"]; ok {
		return decodeInteger(i)
	}
	if d, ok := tagged["doubleValue"]; ok {
		return decodeDouble(d)
	}
	if ts, ok := tagged["timestampValue"]; ok {
		return decodeTimestamp(ts)
	}
	if _, ok := tagged["nullValue"]; ok {
		return nil
	}
	if m, ok := tagged["mapValue"]; ok {
		inner, _ := m.(map[string]any)
		fields, _ := inner["fields"].(map[string]any)
		return DecodeDocument(fields)
	}
	if a, ok := tagged["arrayValue"]; ok {
		inner, _ := a.(map[string]any)
		values, _ := inner["values"].([]any)
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, DecodeValue(item))
		}
		return out
	}

	return tagged
}

func decodeInteger(v any) any {
	switch val := v.(type) {
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return v
		}
		return n
	case float64:
		return int64(val)
	default:
		return v
	}
}

func decodeDouble(v any) any {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return v
		}
		return f
	default:
		return v
	}
}

func decodeTimestamp(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t
}
