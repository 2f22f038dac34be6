package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseFloatOr parses s as a number, tolerating surrounding whitespace and
// comma digit grouping ("1,250.50"). Anything else, including NaN and
// infinities, yields fallback.
func ParseFloatOr(s string, fallback float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f, err = strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return fallback
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// AsFloat converts a loosely typed value (as produced by encoding/json) to a float.
func AsFloat(v interface{}, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fallback
		}
		return n
	case float32:
		return AsFloat(float64(n), fallback)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		return ParseFloatOr(n.String(), fallback)
	case string:
		return ParseFloatOr(n, fallback)
	default:
		return fallback
	}
}

// FormatFloat renders f without trailing zeros.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
