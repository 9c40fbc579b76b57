package models

import (
	"time"
)

// ConditionType selects the comparison rule a Condition applies.
type ConditionType string

const (
	ConditionNumeric ConditionType = "numeric"
	ConditionText    ConditionType = "text"
	ConditionBoolean ConditionType = "boolean"
)

// Valid reports whether t is one of the known condition types.
func (t ConditionType) Valid() bool {
	switch t {
	case ConditionNumeric, ConditionText, ConditionBoolean:
		return true
	default:
		return false
	}
}

// Condition is one testable rule of an Alert. Parameters that do not apply to
// Type are ignored; a condition with none of its parameters set never fires.
type Condition struct {
	FieldID      string        `json:"field_id"`
	Type         ConditionType `json:"type"`
	Min          *float64      `json:"min,omitempty"`
	Max          *float64      `json:"max,omitempty"`
	MatchText    *string       `json:"match_text,omitempty"`
	BooleanValue *bool         `json:"boolean_value,omitempty"`
}

// Alert is a standing watch rule on one KPI inside one checklist context.
// Conditions keep the order they were stored in.
type Alert struct {
	ID            string      `json:"id"`
	KpiID         string      `json:"kpi_id"`
	ContextID     string      `json:"context_id"`
	IsActive      bool        `json:"is_active"`
	NotifyAddress string      `json:"notify_address"`
	Conditions    []Condition `json:"conditions"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// AlertCreate is the input structure for creating a new alert.
type AlertCreate struct {
	KpiID         string      `json:"kpi_id" binding:"required"`
	ContextID     string      `json:"context_id" binding:"required"`
	NotifyAddress string      `json:"notify_address" binding:"required,email"`
	IsActive      *bool       `json:"is_active,omitempty"`
	Conditions    []Condition `json:"conditions"`
}

// AlertToggle is the input structure for switching an alert on or off.
type AlertToggle struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
