package models

import (
	"encoding/json"
	"time"
)

// TriggerLog is the audit record of one alert firing, including the outcome
// of the notification that followed it.
type TriggerLog struct {
	ID             string          `json:"id"`
	AlertID        string          `json:"alert_id"`
	TriggeredValue json.RawMessage `json:"triggered_value"`
	ErrorMessage   *string         `json:"error_message"`
	EmailSent      bool            `json:"email_sent"`
	EmailSentAt    *time.Time      `json:"email_sent_at"`
	CreatedAt      time.Time       `json:"created_at"`

	// Populated by log queries that join the owning alert.
	KpiID     string `json:"kpi_id,omitempty"`
	ContextID string `json:"context_id,omitempty"`
}

// LogUpdate carries the fields to change on an existing TriggerLog.
// Nil fields are left untouched.
type LogUpdate struct {
	EmailSent    *bool
	EmailSentAt  *time.Time
	ErrorMessage *string
}

// LogFilter narrows a Trigger Log query. Zero values mean "no filter".
type LogFilter struct {
	AlertID   string
	KpiID     string
	ContextID string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
