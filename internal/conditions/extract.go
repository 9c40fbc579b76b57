package conditions

import (
	"strconv"
	"strings"
)

// Extract resolves the single value a condition on fieldID compares against.
// The boolean is false when nothing comparable was found (ABSENT); a present
// null is ABSENT too.
func Extract(m Measurement, fieldID string) (any, bool) {
	var v any
	switch t := m.(type) {
	case Scalar:
		v = t.Value
	case FieldObject:
		v = t.extract(fieldID)
	case FieldArray:
		v = t.extract(fieldID)
	default:
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	return v, true
}

func (o FieldObject) extract(fieldID string) any {
	if idEquals(o["id"], fieldID) {
		return o["value"]
	}
	if v, ok := o["value"]; ok {
		return v
	}
	return map[string]any(o)
}

func (a FieldArray) extract(fieldID string) any {
	for _, el := range a {
		if idEquals(el["id"], fieldID) {
			return el["value"]
		}
	}

	bare := bareFieldName(fieldID)
	if bare == "" {
		return nil
	}
	for _, el := range a {
		if name, ok := el["name"].(string); ok && strings.ToLower(name) == bare {
			return el["value"]
		}
		if id, ok := idString(el["id"]); ok && strings.HasSuffix(strings.ToLower(id), bare) {
			return el["value"]
		}
	}
	return nil
}

// bareFieldName returns the lower-cased part of fieldID after its last '-'.
// Field ids are built as "<kpi>-<field>", so this is the field's own name.
func bareFieldName(fieldID string) string {
	if i := strings.LastIndex(fieldID, "-"); i >= 0 {
		fieldID = fieldID[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(fieldID))
}

func idEquals(id any, fieldID string) bool {
	s, ok := idString(id)
	return ok && s == fieldID
}

func idString(id any) (string, bool) {
	switch t := id.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
