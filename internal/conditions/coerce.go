package conditions

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// truthyStrings are the lower-cased string answers read as "yes". The
// checklist UI is Italian, hence "si" and "sì".
var truthyStrings = map[string]struct{}{
	"true": {},
	"si":   {},
	"sì":   {},
}

// ToNumber coerces an extracted value to a float64.
//
//   - finite numbers pass through; NaN and infinities are rejected
//   - booleans become 1 or 0
//   - strings are trimmed and parsed; an empty string is not a number, nor
//     is "inf" or "Infinity" in any spelling
//   - a decimal comma ("12,5") is accepted when the string has no '.'
//   - anything else is not a number
func ToNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, isFinite(t)
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		return parseNumber(t)
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if strings.Count(s, ",") != 1 || strings.Contains(s, ".") {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
	}
	if !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToText returns the string form a text condition searches in. Numbers use
// the shortest decimal form, objects and arrays their JSON encoding.
func ToText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// ToBool coerces an extracted value to a boolean.
//
//   - strings are true iff, trimmed and lower-cased, they are "true", "si" or "sì"
//   - numbers are true unless zero or NaN
//   - nil is false; objects and arrays are true
func ToBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		_, ok := truthyStrings[strings.ToLower(strings.TrimSpace(t))]
		return ok
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	default:
		return true
	}
}
