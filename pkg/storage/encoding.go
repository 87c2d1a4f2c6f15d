package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	typeNull   = "null"
	typeBool   = "bool"
	typeInt    = "int"
	typeFloat  = "float"
	typeString = "string"
	typeTime   = "time"
	typeJSON   = "json"
)

// encodeValue serializes a supported Go value to its self-describing text
// form. Bool is checked ahead of every other kind: in Go, unlike Python,
// bool is not an int subtype, but the discipline is kept explicit anyway
// since interface{} dispatch order is easy to get wrong by hand.
func encodeValue(value interface{}) (string, string, error) {
	switch v := value.(type) {
	case nil:
		return "", typeNull, nil
	case bool:
		return strconv.FormatBool(v), typeBool, nil
	case int:
		return strconv.FormatInt(int64(v), 10), typeInt, nil
	case int32:
		return strconv.FormatInt(int64(v), 10), typeInt, nil
	case int64:
		return strconv.FormatInt(v, 10), typeInt, nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), typeFloat, nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), typeFloat, nil
	case string:
		return v, typeString, nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), typeTime, nil
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrUnsupportedType, err)
		}
		return string(data), typeJSON, nil
	default:
		// Fall back to JSON for other structured types (named map/slice
		// types, structs) rather than rejecting them outright — the
		// shape still round-trips, just not through the typed fast path.
		data, err := json.Marshal(v)
		if err != nil {
			return "", "", fmt.Errorf("%w: %T", ErrUnsupportedType, value)
		}
		return string(data), typeJSON, nil
	}
}

func decodeValue(raw, typeName string) (interface{}, error) {
	switch typeName {
	case typeNull:
		return nil, nil
	case typeBool:
		return strconv.ParseBool(raw)
	case typeInt:
		return strconv.ParseInt(raw, 10, 64)
	case typeFloat:
		return strconv.ParseFloat(raw, 64)
	case typeString:
		return raw, nil
	case typeTime:
		return time.Parse(time.RFC3339Nano, raw)
	case typeJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown stored type %q", typeName)
	}
}
