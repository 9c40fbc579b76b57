package alerts

import (
	"context"
	"fmt"
	"sync"

	"alert-service/internal/conditions"
	"alert-service/internal/models"
)

// fakeAlertStore mimics the Postgres query: only active alerts for the KPI.
type fakeAlertStore struct {
	alerts []models.Alert
	err    error
	calls  int
}

func (f *fakeAlertStore) LoadActiveAlertsForKpi(_ context.Context, kpiID string) ([]models.Alert, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Alert
	for _, a := range f.alerts {
		if a.KpiID == kpiID && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeLogStore keeps trigger logs in memory.
type fakeLogStore struct {
	mu        sync.Mutex
	logs      map[string]*models.TriggerLog
	inserted  []models.TriggerLog
	updates   int
	insertErr error
	updateErr error
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{logs: map[string]*models.TriggerLog{}}
}

func (f *fakeLogStore) InsertLog(_ context.Context, entry models.TriggerLog) (models.TriggerLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return models.TriggerLog{}, f.insertErr
	}
	entry.ID = fmt.Sprintf("log-%d", len(f.inserted)+1)
	f.inserted = append(f.inserted, entry)
	stored := entry
	f.logs[entry.ID] = &stored
	return entry, nil
}

func (f *fakeLogStore) UpdateLog(_ context.Context, logID string, upd models.LogUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	l, ok := f.logs[logID]
	if !ok {
		return fmt.Errorf("log %s not found", logID)
	}
	if upd.EmailSent != nil {
		l.EmailSent = *upd.EmailSent
	}
	if upd.EmailSentAt != nil {
		l.EmailSentAt = upd.EmailSentAt
	}
	if upd.ErrorMessage != nil {
		l.ErrorMessage = upd.ErrorMessage
	}
	return nil
}

func (f *fakeLogStore) get(id string) models.TriggerLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.logs[id]
}

type fakeMetadata struct {
	streams   map[string]models.StreamInfo
	contexts  map[string]string
	devices   map[string]models.Device
	streamErr error
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		streams:  map[string]models.StreamInfo{"kpi-1": {Name: "Pressure", Description: "Line pressure"}},
		contexts: map[string]string{"ctx-1": "dev-1", "ctx-2": "dev-1"},
		devices:  map[string]models.Device{"dev-1": {ID: "dev-1", Name: "Pump A", Location: "Hall 3"}},
	}
}

func (f *fakeMetadata) GetStreamInfo(_ context.Context, kpiID string) (models.StreamInfo, error) {
	if f.streamErr != nil {
		return models.StreamInfo{}, f.streamErr
	}
	s, ok := f.streams[kpiID]
	if !ok {
		return models.StreamInfo{}, fmt.Errorf("kpi %s not found", kpiID)
	}
	return s, nil
}

func (f *fakeMetadata) GetContextDevice(_ context.Context, contextID string) (string, error) {
	d, ok := f.contexts[contextID]
	if !ok {
		return "", fmt.Errorf("context %s not found", contextID)
	}
	return d, nil
}

func (f *fakeMetadata) GetDevice(_ context.Context, deviceID string) (models.Device, error) {
	d, ok := f.devices[deviceID]
	if !ok {
		return models.Device{}, fmt.Errorf("device %s not found", deviceID)
	}
	return d, nil
}

type sentEmail struct {
	address string
	email   models.AlertEmail
}

type fakeNotifier struct {
	sent []sentEmail
	err  error
}

func (f *fakeNotifier) SendAlertEmail(_ context.Context, address string, email models.AlertEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{address: address, email: email})
	return nil
}

type recordCall struct {
	alertID string
	value   any
}

// fakeRecorder stands in for Recorder in scanner tests.
type fakeRecorder struct {
	calls  []recordCall
	errFor map[string]error
	panics map[string]bool
}

func (f *fakeRecorder) Record(_ context.Context, alert models.Alert, value any) error {
	f.calls = append(f.calls, recordCall{alertID: alert.ID, value: value})
	if f.panics[alert.ID] {
		panic("recorder exploded")
	}
	return f.errFor[alert.ID]
}

type fakeScanner struct {
	err    error
	panics bool
	calls  int
	last   conditions.Measurement
}

func (f *fakeScanner) Scan(_ context.Context, _, _ string, value conditions.Measurement) error {
	f.calls++
	f.last = value
	if f.panics {
		panic("scanner exploded")
	}
	return f.err
}

type fakeTaskStore struct {
	marked []string
	err    error
}

func (f *fakeTaskStore) MarkAlertChecked(_ context.Context, taskID string) error {
	f.marked = append(f.marked, taskID)
	return f.err
}

// countingMetrics records engine events for assertions.
type countingMetrics struct {
	evaluated, triggered, scanFailed int
	deliveries                       map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{deliveries: map[string]int{}}
}

func (c *countingMetrics) AlertEvaluated(string)         { c.evaluated++ }
func (c *countingMetrics) AlertTriggered(string)         { c.triggered++ }
func (c *countingMetrics) DeliveryResult(outcome string) { c.deliveries[outcome]++ }
func (c *countingMetrics) ScanFailed()                   { c.scanFailed++ }

func ptr[T any](v T) *T { return &v }
