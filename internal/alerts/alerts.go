// Package alerts runs alert checks for a completed task: it loads the alerts
// watching a KPI, evaluates their conditions, records every trigger in the
// trigger log and sends the notification e-mail.
//
// Hook is the only entry point callers should use. It never returns an
// error; Scanner and Recorder do, and Hook logs and drops them.
package alerts

import (
	"context"
	"errors"

	"alert-service/internal/conditions"
	"alert-service/internal/models"
)

var (
	// ErrMetadataLookup means stream or device display data could not be read.
	ErrMetadataLookup = errors.New("alerts: metadata lookup failed")
	// ErrPersistence means loading alerts or writing the trigger log failed.
	ErrPersistence = errors.New("alerts: persistence failed")
	// ErrDelivery means the notification could not be sent.
	ErrDelivery = errors.New("alerts: delivery failed")
)

// AlertStore loads the alerts to check.
type AlertStore interface {
	// LoadActiveAlertsForKpi returns active alerts for kpiID with their
	// conditions in stored order.
	LoadActiveAlertsForKpi(ctx context.Context, kpiID string) ([]models.Alert, error)
}

// LogStore writes trigger log entries.
type LogStore interface {
	InsertLog(ctx context.Context, entry models.TriggerLog) (models.TriggerLog, error)
	UpdateLog(ctx context.Context, logID string, upd models.LogUpdate) error
}

// MetadataLookup resolves the display data used in notification e-mails.
type MetadataLookup interface {
	GetStreamInfo(ctx context.Context, kpiID string) (models.StreamInfo, error)
	GetContextDevice(ctx context.Context, contextID string) (string, error)
	GetDevice(ctx context.Context, deviceID string) (models.Device, error)
}

// Notifier delivers one alert e-mail.
type Notifier interface {
	SendAlertEmail(ctx context.Context, address string, email models.AlertEmail) error
}

// TaskStore sets the per-task flag that prevents re-checking.
type TaskStore interface {
	MarkAlertChecked(ctx context.Context, taskID string) error
}

// TriggerRecorder handles one fired alert.
type TriggerRecorder interface {
	Record(ctx context.Context, alert models.Alert, triggeredValue any) error
}

// AlertScanner checks one measurement against the alerts of its KPI.
type AlertScanner interface {
	Scan(ctx context.Context, kpiID, contextID string, value conditions.Measurement) error
}
