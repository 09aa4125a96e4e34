package view

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Lookup resolves a dotted key in data. Missing keys yield nil.
func Lookup(data map[string]any, key string) any {
	var cur any = data
	for _, part := range strings.Split(key, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil
			}
			cur = v
		case map[string]string:
			v, ok := m[part]
			if !ok {
				return nil
			}
			cur = v
		default:
			return nil
		}
	}
	return cur
}

// JSLiteral encodes v as a JavaScript literal. Numbers and numeric
// strings are written bare.
func JSLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		out, _ := sonic.MarshalString(x)
		return out
	case string:
		if _, err := strconv.ParseFloat(x, 64); err == nil {
			return x
		}
	}
	out, err := sonic.MarshalString(v)
	if err != nil {
		return "null"
	}
	return out
}
