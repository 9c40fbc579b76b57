package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/models"
	"alert-service/internal/tracing"
)

// Placeholders used in e-mails when metadata fallback is enabled.
const (
	UnknownStreamName = "Unknown KPI"
	UnknownDeviceName = "Unknown device"

	// deliveryErrorFallback is stored when the delivery error has no text.
	deliveryErrorFallback = "failed to send alert email"
)

// Recorder writes one trigger log entry per fired alert and sends its e-mail.
type Recorder struct {
	logs     LogStore
	meta     MetadataLookup
	notifier Notifier
	logger   *logging.Logger
	metrics  metrics.Recorder

	metadataFallback bool
	now              func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMetadataFallback keeps recording a trigger when display metadata
// cannot be resolved, using placeholder names.
func WithMetadataFallback(enabled bool) RecorderOption {
	return func(r *Recorder) { r.metadataFallback = enabled }
}

// WithClock overrides the clock used for email_sent_at.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder constructs a Recorder.
func NewRecorder(logs LogStore, meta MetadataLookup, notifier Notifier, logger *logging.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		logs:     logs,
		meta:     meta,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record handles a fired alert:
//  1. resolve stream and device display data
//  2. insert a trigger log entry with email_sent=false
//  3. send the alert e-mail
//  4. mark the entry sent, or store the delivery error and return it
//
// Failures to update the entry in step 4 are logged and never returned.
func (r *Recorder) Record(ctx context.Context, alert models.Alert, triggeredValue any) error {
	ctx, span := tracing.Tracer().Start(ctx, "alerts.Record", trace.WithAttributes(
		attribute.String("alert_id", alert.ID),
	))
	defer span.End()

	logger := r.logger.WithFields(map[string]any{"alert_id": alert.ID, "kpi_id": alert.KpiID})

	email, err := r.resolveMetadata(ctx, alert)
	if err != nil {
		if !r.metadataFallback {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("%w: %w", ErrMetadataLookup, err)
		}
		logger.Warnf("Using placeholder metadata: %v", err)
	}
	email.TriggeredValue = triggeredValue
	email.Conditions = alert.Conditions

	raw, err := json.Marshal(triggeredValue)
	if err != nil {
		return fmt.Errorf("%w: failed to encode triggered value: %w", ErrPersistence, err)
	}

	entry, err := r.logs.InsertLog(ctx, models.TriggerLog{
		AlertID:        alert.ID,
		TriggeredValue: raw,
		EmailSent:      false,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: failed to insert trigger log: %w", ErrPersistence, err)
	}

	sendErr := r.notifier.SendAlertEmail(ctx, alert.NotifyAddress, email)
	if sendErr == nil {
		sent := true
		at := r.now()
		r.updateLog(ctx, logger, entry.ID, models.LogUpdate{EmailSent: &sent, EmailSentAt: &at})
		r.metrics.DeliveryResult(metrics.DeliverySent)
		logger.Infof("Alert email sent to %s", alert.NotifyAddress)
		return nil
	}

	msg := sendErr.Error()
	if msg == "" {
		msg = deliveryErrorFallback
	}
	r.updateLog(ctx, logger, entry.ID, models.LogUpdate{ErrorMessage: &msg})
	r.metrics.DeliveryResult(metrics.DeliveryFailed)
	span.SetStatus(codes.Error, msg)
	return fmt.Errorf("%w: %w", ErrDelivery, sendErr)
}

func (r *Recorder) updateLog(ctx context.Context, logger *logging.Logger, logID string, upd models.LogUpdate) {
	if err := r.logs.UpdateLog(ctx, logID, upd); err != nil {
		logger.Errorf("Failed to update trigger log %s: %v", logID, err)
	}
}

// resolveMetadata fills the display fields of the e-mail. On error the
// returned e-mail still carries whatever was resolved, with placeholders
// for the rest.
func (r *Recorder) resolveMetadata(ctx context.Context, alert models.Alert) (models.AlertEmail, error) {
	email := models.AlertEmail{
		StreamName: UnknownStreamName,
		DeviceName: UnknownDeviceName,
	}

	stream, err := r.meta.GetStreamInfo(ctx, alert.KpiID)
	if err != nil {
		return email, fmt.Errorf("failed to get stream info for kpi %s: %w", alert.KpiID, err)
	}
	email.StreamName = stream.Name
	email.StreamDescription = stream.Description

	deviceID, err := r.meta.GetContextDevice(ctx, alert.ContextID)
	if err != nil {
		return email, fmt.Errorf("failed to get device for context %s: %w", alert.ContextID, err)
	}

	device, err := r.meta.GetDevice(ctx, deviceID)
	if err != nil {
		return email, fmt.Errorf("failed to get device %s: %w", deviceID, err)
	}
	email.DeviceName = device.Name
	email.DeviceLocation = device.Location

	return email, nil
}
