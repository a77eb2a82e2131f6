package definition

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IsNumericType reports whether a setting's `type` tag holds numbers
func IsNumericType(t string) bool {
	return t == "float" || t == "int"
}

// SameValue compares two raw setting values. Numeric settings compare by parsed value,
// so "1", 1 and 1.0 are all equal; anything that does not parse falls back to raw comparison.
func SameValue(a, b any, numeric bool) bool {
	if numeric {
		na, aok := NormalizeNumber(a)
		nb, bok := NormalizeNumber(b)
		if aok && bok {
			return na == nb
		}
		if aok != bok {
			return false
		}
	}
	return rawEqual(a, b)
}

// NormalizeNumber parses v as a float and returns a canonical string for it
func NormalizeNumber(v any) (string, bool) {
	var f float64

	switch typed := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return "", false
		}
		f = parsed
	default:
		n, ok := toFloat(v)
		if !ok {
			return "", false
		}
		f = n
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return decimal.NewFromFloat(f).String(), true
}

func rawEqual(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// FormatValue renders a raw value for messages
func FormatValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return "null"
	case string:
		return typed
	case float64:
		return formatFloat(typed, 64)
	case float32:
		return formatFloat(float64(typed), 32)
	case []any, map[string]any:
		if b, err := json.Marshal(typed); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}

// formatFloat keeps a decimal point on whole floats, so 5.0 does not read like the int 5
func formatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
