package ads

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/buger/jsonparser"
)

// optString reads key from a JSON object. Strings are unescaped, other
// scalars and nested values are returned as their JSON text. Missing keys
// and null yield "".
func optString(obj []byte, key string) string {
	value, dataType, _, err := jsonparser.Get(obj, key)
	if err != nil {
		return ""
	}
	return valueString(value, dataType)
}

func valueString(value []byte, dataType jsonparser.ValueType) string {
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return string(value)
		}
		return s
	case jsonparser.Null, jsonparser.NotExist:
		return ""
	default:
		return string(value)
	}
}

// optInt reads key as an integer. Numbers are truncated towards zero and
// saturate at the int range, numeric strings are accepted, anything else
// yields def.
func optInt(obj []byte, key string, def int) int {
	value, dataType, _, err := jsonparser.Get(obj, key)
	if err != nil {
		return def
	}

	var raw string
	switch dataType {
	case jsonparser.Number:
		raw = string(value)
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return def
		}
		raw = s
	default:
		return def
	}

	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return def
	}
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// has reports whether key is present in the object, even when null.
func has(obj []byte, key string) bool {
	_, _, _, err := jsonparser.Get(obj, key)
	return err == nil
}

// optValue returns the raw value and its type, or NotExist.
func optValue(obj []byte, key string) ([]byte, jsonparser.ValueType) {
	value, dataType, _, err := jsonparser.Get(obj, key)
	if err != nil {
		return nil, jsonparser.NotExist
	}
	return value, dataType
}

// isObject reports whether data is a single well-formed JSON object.
// jsonparser only inspects the first token, so the whole document is
// validated first.
func isObject(data []byte) bool {
	return json.Valid(data) && valueType(data) == jsonparser.Object
}

func isArray(data []byte) bool {
	return json.Valid(data) && valueType(data) == jsonparser.Array
}

func valueType(data []byte) jsonparser.ValueType {
	_, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return jsonparser.NotExist
	}
	return dataType
}
