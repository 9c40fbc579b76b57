package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-service/internal/alerts"
	"alert-service/internal/db"
	"alert-service/internal/logging"
	"alert-service/internal/models"
)

const (
	alertOne   = "11111111-1111-4111-8111-111111111111"
	alertTwo   = "22222222-2222-4222-8222-222222222222"
	alertNew   = "33333333-3333-4333-8333-333333333333"
	alertGhost = "44444444-4444-4444-8444-444444444444"
)

type fakeRepo struct {
	alerts    map[string]models.Alert
	created   []models.AlertCreate
	toggled   map[string]bool
	filter    models.LogFilter
	logs      []models.TriggerLog
	pingErr   error
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{alerts: map[string]models.Alert{}, toggled: map[string]bool{}}
}

func (f *fakeRepo) CreateAlert(_ context.Context, in models.AlertCreate) (models.Alert, error) {
	if f.createErr != nil {
		return models.Alert{}, f.createErr
	}
	f.created = append(f.created, in)
	a := models.Alert{ID: alertNew, KpiID: in.KpiID, ContextID: in.ContextID, IsActive: true,
		NotifyAddress: in.NotifyAddress, Conditions: in.Conditions}
	f.alerts[a.ID] = a
	return a, nil
}

func (f *fakeRepo) ListAlerts(_ context.Context, kpiID, contextID string) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range f.alerts {
		if (kpiID == "" || a.KpiID == kpiID) && (contextID == "" || a.ContextID == contextID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetAlert(_ context.Context, id string) (models.Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return models.Alert{}, db.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) ToggleAlertActive(_ context.Context, id string, active bool) error {
	if _, ok := f.alerts[id]; !ok {
		return db.ErrNotFound
	}
	f.toggled[id] = active
	return nil
}

func (f *fakeRepo) DeleteAlert(_ context.Context, id string) error {
	if _, ok := f.alerts[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.alerts, id)
	return nil
}

func (f *fakeRepo) QueryLogs(_ context.Context, filter models.LogFilter) ([]models.TriggerLog, error) {
	f.filter = filter
	return f.logs, nil
}

func (f *fakeRepo) Ping(context.Context) error { return f.pingErr }

type fakeCompletions struct {
	result alerts.CompletionResult
	err    error
	ids    []string
}

func (f *fakeCompletions) Handle(_ context.Context, taskID string) (alerts.CompletionResult, error) {
	f.ids = append(f.ids, taskID)
	return f.result, f.err
}

func setupRouter(repo *fakeRepo, completions *fakeCompletions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(repo, completions, logging.Discard())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("alerts_evaluated_total 0\n"))
	})
	return NewRouter(h, logging.Discard(), "/api/v0", metrics)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAlert(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo, &fakeCompletions{})

	body := `{"kpi_id":"k1","context_id":"c1","notify_address":"ops@example.com",
		"conditions":[{"field_id":"pressure","type":"numeric","min":10,"max":20}]}`
	w := do(r, http.MethodPost, "/api/v0/alerts", body)

	require.Equal(t, http.StatusCreated, w.Code)
	var got models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, alertNew, got.ID)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.ConditionNumeric, repo.created[0].Conditions[0].Type)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestCreateAlert_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing kpi", `{"context_id":"c1","notify_address":"ops@example.com"}`},
		{"bad address", `{"kpi_id":"k1","context_id":"c1","notify_address":"nope"}`},
		{"unknown type", `{"kpi_id":"k1","context_id":"c1","notify_address":"ops@example.com","conditions":[{"field_id":"f","type":"range"}]}`},
		{"missing field", `{"kpi_id":"k1","context_id":"c1","notify_address":"ops@example.com","conditions":[{"type":"text","match_text":"x"}]}`},
		{"inverted bounds", `{"kpi_id":"k1","context_id":"c1","notify_address":"ops@example.com","conditions":[{"field_id":"f","type":"numeric","min":5,"max":1}]}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			w := do(setupRouter(repo, &fakeCompletions{}), http.MethodPost, "/api/v0/alerts", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
			assert.Empty(t, repo.created)
		})
	}
}

func TestCreateAlert_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("connection reset")
	body := `{"kpi_id":"k1","context_id":"c1","notify_address":"ops@example.com"}`
	w := do(setupRouter(repo, &fakeCompletions{}), http.MethodPost, "/api/v0/alerts", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestAlertLifecycle(t *testing.T) {
	repo := newFakeRepo()
	repo.alerts[alertOne] = models.Alert{ID: alertOne, KpiID: "k1", ContextID: "c1", IsActive: true}
	repo.alerts[alertTwo] = models.Alert{ID: alertTwo, KpiID: "k2", ContextID: "c1", IsActive: true}
	r := setupRouter(repo, &fakeCompletions{})

	w := do(r, http.MethodGet, "/api/v0/alerts?kpi_id=k1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, alertOne, list[0].ID)

	w = do(r, http.MethodGet, "/api/v0/alerts/"+alertOne, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPatch, "/api/v0/alerts/"+alertOne+"/active", `{"is_active":false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, repo.toggled[alertOne])

	w = do(r, http.MethodPatch, "/api/v0/alerts/"+alertOne+"/active", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/api/v0/alerts/"+alertOne, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v0/alerts/"+alertOne, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodDelete, "/api/v0/alerts/"+alertOne, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodPatch, "/api/v0/alerts/"+alertGhost+"/active", `{"is_active":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodGet, "/api/v0/alerts/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryLogs_Filters(t *testing.T) {
	repo := newFakeRepo()
	repo.logs = []models.TriggerLog{{ID: "l1", AlertID: alertOne, TriggeredValue: json.RawMessage(`5`)}}
	r := setupRouter(repo, &fakeCompletions{})

	w := do(r, http.MethodGet,
		"/api/v0/alerts/logs?alert_id="+alertOne+"&kpi_id=k1&context_id=c1&start_date=2024-03-01T00:00:00Z&end_date=2024-03-02&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	f := repo.filter
	assert.Equal(t, alertOne, f.AlertID)
	assert.Equal(t, "k1", f.KpiID)
	assert.Equal(t, "c1", f.ContextID)
	assert.Equal(t, 5, f.Limit)
	require.NotNil(t, f.StartDate)
	require.NotNil(t, f.EndDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), f.StartDate.UTC())
	assert.Equal(t, time.Date(2024, 3, 2, 23, 59, 59, 999999999, time.UTC), f.EndDate.UTC())

	var logs []models.TriggerLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Equal(t, "l1", logs[0].ID)
}

func TestQueryLogs_BadParams(t *testing.T) {
	r := setupRouter(newFakeRepo(), &fakeCompletions{})
	for _, q := range []string{"alert_id=a1", "start_date=yesterday", "end_date=03/02/2024", "limit=0", "limit=ten"} {
		w := do(r, http.MethodGet, "/api/v0/alerts/logs?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestTaskCompleted(t *testing.T) {
	completions := &fakeCompletions{result: alerts.CompletionResult{TaskID: "t1", Checked: true}}
	r := setupRouter(newFakeRepo(), completions)

	w := do(r, http.MethodPost, "/api/v0/tasks/t1/completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"t1"}, completions.ids)
	assert.Contains(t, w.Body.String(), `"checked":true`)

	completions.err = db.ErrNotFound
	w = do(r, http.MethodPost, "/api/v0/tasks/t9/completed", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	repo := newFakeRepo()
	r := setupRouter(repo, &fakeCompletions{})

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	repo.pingErr = errors.New("db down")
	w = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alerts_evaluated_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := setupRouter(newFakeRepo(), &fakeCompletions{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}
