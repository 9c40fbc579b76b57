package alerts

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"alert-service/internal/conditions"
	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/models"
	"alert-service/internal/tracing"
)

// alertState is the progress of one alert through a scan.
type alertState int

const (
	statePending alertState = iota
	stateEvaluating
	stateTriggered
	stateExhausted
)

func (s alertState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateEvaluating:
		return "evaluating"
	case stateTriggered:
		return "triggered"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Scanner evaluates the alerts of one KPI against a measurement.
type Scanner struct {
	alerts   AlertStore
	recorder TriggerRecorder
	logger   *logging.Logger
	metrics  metrics.Recorder
}

// NewScanner constructs a Scanner. A nil metrics recorder disables metrics.
func NewScanner(alerts AlertStore, recorder TriggerRecorder, logger *logging.Logger, m metrics.Recorder) *Scanner {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Scanner{alerts: alerts, recorder: recorder, logger: logger, metrics: m}
}

// Scan loads the active alerts for kpiID and checks those scoped to
// contextID. Each alert fires at most once. A failing alert does not stop
// the others; their errors are joined and returned after the loop.
func (s *Scanner) Scan(ctx context.Context, kpiID, contextID string, value conditions.Measurement) error {
	ctx, span := tracing.Tracer().Start(ctx, "alerts.Scan", trace.WithAttributes(
		attribute.String("kpi_id", kpiID),
		attribute.String("context_id", contextID),
	))
	defer span.End()

	list, err := s.alerts.LoadActiveAlertsForKpi(ctx, kpiID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: failed to load alerts for kpi %s: %w", ErrPersistence, kpiID, err)
	}

	var errs []error
	for _, alert := range list {
		if !alert.IsActive || alert.ContextID != contextID {
			continue
		}
		if err := s.processAlert(ctx, alert, value); err != nil {
			s.logger.Errorf("Alert %s failed: %v", alert.ID, err)
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// processAlert runs one alert to completion, turning a panic into an error
// so siblings are still scanned.
func (s *Scanner) processAlert(ctx context.Context, alert models.Alert, value conditions.Measurement) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while processing alert %s: %v", alert.ID, p)
		}
	}()

	state, result := evaluateAlert(alert, value)
	s.metrics.AlertEvaluated(alert.KpiID)
	s.logger.Debugf("Alert %s finished %s", alert.ID, state)

	if state != stateTriggered {
		return nil
	}

	s.metrics.AlertTriggered(alert.KpiID)
	s.logger.Infof("Alert %s triggered for kpi %s with value %v", alert.ID, alert.KpiID, result.Value)
	return s.recorder.Record(ctx, alert, result.Value)
}

// evaluateAlert walks the conditions in order and stops at the first one
// that triggers. ABSENT values skip their condition.
func evaluateAlert(alert models.Alert, value conditions.Measurement) (alertState, conditions.Result) {
	state := statePending
	var result conditions.Result

	for i := 0; state == statePending || state == stateEvaluating; i++ {
		if i >= len(alert.Conditions) {
			state = stateExhausted
			break
		}
		state = stateEvaluating

		res, ok := conditions.Check(value, alert.Conditions[i])
		if ok && res.Triggered {
			state, result = stateTriggered, res
		}
	}

	return state, result
}
