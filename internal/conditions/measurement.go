// Package conditions decides whether a recorded measurement satisfies an
// alert condition. It holds the value extraction and comparison rules only;
// loading alerts and recording triggers live in package alerts.
package conditions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Measurement is the value a task recorded. It is exactly one of Scalar,
// FieldObject or FieldArray; a nil Measurement means nothing was recorded.
type Measurement interface {
	measurement()
}

// Scalar is a bare string, number or boolean. It is compared as-is whatever
// field a condition targets.
type Scalar struct {
	Value any
}

// FieldObject is a single field payload, typically {"id", "name", "value"}.
type FieldObject map[string]any

// FieldArray is a multi-field payload. Elements that are not objects are
// dropped when the array is built.
type FieldArray []FieldObject

func (Scalar) measurement()      {}
func (FieldObject) measurement() {}
func (FieldArray) measurement()  {}

// FromJSON decodes a stored task value. Empty input and JSON null yield a nil
// Measurement. A JSON string whose content is itself a JSON object or array is
// unwrapped, since some clients store multi-field values as serialized text.
func FromJSON(raw json.RawMessage) (Measurement, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode measurement: %w", err)
	}

	if s, ok := v.(string); ok {
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var nested any
			if err := json.Unmarshal([]byte(trimmed), &nested); err == nil {
				v = nested
			}
		}
	}

	return FromValue(v), nil
}

// FromValue builds a Measurement from a decoded JSON value or a Go scalar.
// Unsupported types yield nil.
func FromValue(v any) Measurement {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return FieldObject(t)
	case FieldObject:
		return t
	case []any:
		arr := make(FieldArray, 0, len(t))
		for _, el := range t {
			if obj, ok := el.(map[string]any); ok {
				arr = append(arr, obj)
			}
		}
		return arr
	case []map[string]any:
		arr := make(FieldArray, 0, len(t))
		for _, el := range t {
			arr = append(arr, el)
		}
		return arr
	case string, bool, float64:
		return Scalar{Value: t}
	case int:
		return Scalar{Value: float64(t)}
	case int64:
		return Scalar{Value: float64(t)}
	case float32:
		return Scalar{Value: float64(t)}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Scalar{Value: f}
		}
		return Scalar{Value: t.String()}
	default:
		return nil
	}
}
