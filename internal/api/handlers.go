package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alert-service/internal/alerts"
	"alert-service/internal/db"
	"alert-service/internal/logging"
	"alert-service/internal/models"
)

// AlertRepository is the storage the API manages alerts and reads logs through.
type AlertRepository interface {
	CreateAlert(ctx context.Context, in models.AlertCreate) (models.Alert, error)
	ListAlerts(ctx context.Context, kpiID, contextID string) ([]models.Alert, error)
	GetAlert(ctx context.Context, id string) (models.Alert, error)
	ToggleAlertActive(ctx context.Context, id string, active bool) error
	DeleteAlert(ctx context.Context, id string) error
	QueryLogs(ctx context.Context, f models.LogFilter) ([]models.TriggerLog, error)
	Ping(ctx context.Context) error
}

// TaskCompletionHandler runs the alert check for a completed task.
type TaskCompletionHandler interface {
	Handle(ctx context.Context, taskID string) (alerts.CompletionResult, error)
}

type Handler struct {
	repo        AlertRepository
	completions TaskCompletionHandler
	logger      *logging.Logger
}

func NewHandler(repo AlertRepository, completions TaskCompletionHandler, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, completions: completions, logger: logger}
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var in models.AlertCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Errorf("Invalid request body for alert: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateConditions(in.Conditions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.repo.CreateAlert(c.Request.Context(), in)
	if err != nil {
		h.logger.Errorf("Failed to create alert: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	h.logger.Infof("Created alert %s for kpi %s", alert.ID, alert.KpiID)
	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	kpiID := c.Query("kpi_id")
	contextID := c.Query("context_id")

	list, err := h.repo.ListAlerts(c.Request.Context(), kpiID, contextID)
	if err != nil {
		h.logger.Errorf("Failed to list alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	alert, err := h.repo.GetAlert(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, "alert", id, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) ToggleAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	var in models.AlertToggle
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.ToggleAlertActive(c.Request.Context(), id, *in.IsActive); err != nil {
		h.respondLookupError(c, "alert", id, err)
		return
	}

	h.logger.Infof("Alert %s is_active=%t", id, *in.IsActive)
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *in.IsActive})
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteAlert(c.Request.Context(), id); err != nil {
		h.respondLookupError(c, "alert", id, err)
		return
	}

	h.logger.Infof("Deleted alert %s", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) QueryLogs(c *gin.Context) {
	filter, err := parseLogFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logs, err := h.repo.QueryLogs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Errorf("Failed to query trigger logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query trigger logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// TaskCompleted is called by the checklist application after a task's
// status and value are saved. It answers 200 whatever the alert check
// outcome; only an unknown task is reported.
func (h *Handler) TaskCompleted(c *gin.Context) {
	id := c.Param("id")
	res, err := h.completions.Handle(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, "task", id, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.repo.Ping(c.Request.Context()); err != nil {
		h.logger.Errorf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) respondLookupError(c *gin.Context, kind, id string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s not found", kind)})
		return
	}
	h.logger.Errorf("Request on %s %s failed: %v", kind, id, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// alertID reads the :id path parameter. Alert ids are UUIDs, so anything
// else cannot exist and is answered with 404 without a query.
func alertID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return "", false
	}
	return id, true
}

func validateConditions(conds []models.Condition) error {
	for i, cond := range conds {
		if cond.FieldID == "" {
			return fmt.Errorf("conditions[%d]: field_id is required", i)
		}
		if !cond.Type.Valid() {
			return fmt.Errorf("conditions[%d]: unknown type %q", i, cond.Type)
		}
		if cond.Min != nil && cond.Max != nil && *cond.Min > *cond.Max {
			return fmt.Errorf("conditions[%d]: min is greater than max", i)
		}
	}
	return nil
}

func parseLogFilter(c *gin.Context) (models.LogFilter, error) {
	f := models.LogFilter{
		AlertID:   c.Query("alert_id"),
		KpiID:     c.Query("kpi_id"),
		ContextID: c.Query("context_id"),
	}

	if f.AlertID != "" {
		if _, err := uuid.Parse(f.AlertID); err != nil {
			return f, fmt.Errorf("invalid alert_id %q", f.AlertID)
		}
	}

	if v := c.Query("start_date"); v != "" {
		t, _, err := parseTime(v)
		if err != nil {
			return f, fmt.Errorf("invalid start_date: %w", err)
		}
		f.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, dateOnly, err := parseTime(v)
		if err != nil {
			return f, fmt.Errorf("invalid end_date: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.EndDate = &t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = n
	}
	return f, nil
}

// parseTime accepts RFC 3339 timestamps and bare dates. A bare date is
// reported so an end date can cover the whole day.
func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
