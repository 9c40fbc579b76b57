package alerts

import (
	"context"

	"alert-service/internal/conditions"
	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/models"
)

// Hook is the error boundary between task completion and alert checks.
// Nothing it calls can make a task completion fail.
type Hook struct {
	scanner AlertScanner
	tasks   TaskStore
	logger  *logging.Logger
	metrics metrics.Recorder
}

// NewHook constructs a Hook. A nil metrics recorder disables metrics.
func NewHook(scanner AlertScanner, tasks TaskStore, logger *logging.Logger, m metrics.Recorder) *Hook {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Hook{scanner: scanner, tasks: tasks, logger: logger, metrics: m}
}

// CheckAlertsForMeasurement scans the alerts of kpiID for a measurement
// recorded in contextID. Errors and panics are logged and dropped.
func (h *Hook) CheckAlertsForMeasurement(ctx context.Context, kpiID, contextID string, value conditions.Measurement) {
	defer func() {
		if p := recover(); p != nil {
			h.metrics.ScanFailed()
			h.logger.Errorf("Alert check for kpi %s panicked: %v", kpiID, p)
		}
	}()

	if err := h.scanner.Scan(ctx, kpiID, contextID, value); err != nil {
		h.metrics.ScanFailed()
		h.logger.Errorf("Alert check for kpi %s in context %s failed: %v", kpiID, contextID, err)
	}
}

// OnTaskCompleted runs the alert check for a task that was just completed.
// It skips tasks already checked and tasks without a value, and otherwise
// marks the task checked once the check has run, whatever its outcome.
// It reports whether a check ran.
func (h *Hook) OnTaskCompleted(ctx context.Context, task models.Task) bool {
	logger := h.logger.WithField("task_id", task.ID)

	if task.AlertChecked {
		logger.Debugf("Alerts already checked, skipping")
		return false
	}
	if !task.HasValue() {
		logger.Debugf("Task has no value, skipping alert check")
		return false
	}

	value, err := conditions.FromJSON(task.Value)
	if err != nil {
		h.metrics.ScanFailed()
		logger.Errorf("Cannot read task value: %v", err)
	} else {
		h.CheckAlertsForMeasurement(ctx, task.KpiID, task.ContextID, value)
	}

	if err := h.tasks.MarkAlertChecked(ctx, task.ID); err != nil {
		logger.Errorf("Failed to mark task alert-checked: %v", err)
	}
	return true
}
