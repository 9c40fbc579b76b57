package conditions

import (
	"strings"

	"alert-service/internal/models"
)

// Result is the outcome of evaluating one condition. Value is the normalized
// value that was compared: the coerced number for numeric conditions, the
// extracted value otherwise.
type Result struct {
	Triggered bool
	Value     any
}

// Evaluate applies condition c to an already extracted value.
func Evaluate(value any, c models.Condition) Result {
	switch c.Type {
	case models.ConditionNumeric:
		n, ok := ToNumber(value)
		if !ok {
			return Result{Value: value}
		}
		below := c.Min != nil && n < *c.Min
		above := c.Max != nil && n > *c.Max
		return Result{Triggered: below || above, Value: n}

	case models.ConditionText:
		if c.MatchText == nil || *c.MatchText == "" {
			return Result{Value: value}
		}
		return Result{Triggered: strings.Contains(ToText(value), *c.MatchText), Value: value}

	case models.ConditionBoolean:
		if c.BooleanValue == nil {
			return Result{Value: value}
		}
		return Result{Triggered: ToBool(value) == *c.BooleanValue, Value: value}

	default:
		return Result{Value: value}
	}
}

// Check extracts the value c targets from m and evaluates it. The boolean is
// false when the value is ABSENT, in which case the condition is skipped.
func Check(m Measurement, c models.Condition) (Result, bool) {
	v, ok := Extract(m, c.FieldID)
	if !ok {
		return Result{}, false
	}
	return Evaluate(v, c), true
}
