package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"alert-service/internal/models"
)

const (
	alertInsertColumns = `id, kpi_id, context_id, is_active, notify_address, conditions, created_at, updated_at`
	alertColumns       = `id::text, kpi_id, context_id, is_active, notify_address, conditions, created_at, updated_at`
)

// CreateAlert inserts a new alert with a generated id. Conditions are stored
// as a JSON array so their order survives the round trip.
func (d *DB) CreateAlert(ctx context.Context, in models.AlertCreate) (models.Alert, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	conds := in.Conditions
	if conds == nil {
		conds = []models.Condition{}
	}
	raw, err := json.Marshal(conds)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to encode conditions: %w", err)
	}

	now := time.Now().UTC()
	alert := models.Alert{
		ID:            uuid.New().String(),
		KpiID:         in.KpiID,
		ContextID:     in.ContextID,
		IsActive:      active,
		NotifyAddress: in.NotifyAddress,
		Conditions:    conds,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
	INSERT INTO alerts (` + alertInsertColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = d.Pool.Exec(ctx, query,
		alert.ID, alert.KpiID, alert.ContextID, alert.IsActive,
		alert.NotifyAddress, string(raw), alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}
	return alert, nil
}

// LoadActiveAlertsForKpi returns the active alerts watching kpiID, oldest first.
func (d *DB) LoadActiveAlertsForKpi(ctx context.Context, kpiID string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE kpi_id = $1 AND is_active = TRUE ORDER BY created_at ASC`
	return d.queryAlerts(ctx, query, kpiID)
}

// ListAlerts returns alerts filtered by KPI and/or context, newest first.
func (d *DB) ListAlerts(ctx context.Context, kpiID, contextID string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	args := []any{}
	if kpiID != "" {
		args = append(args, kpiID)
		query += fmt.Sprintf(" AND kpi_id = $%d", len(args))
	}
	if contextID != "" {
		args = append(args, contextID)
		query += fmt.Sprintf(" AND context_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	return d.queryAlerts(ctx, query, args...)
}

// GetAlert fetches one alert by id.
func (d *DB) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	row := d.Pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	alert, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return alert, nil
}

// ToggleAlertActive switches an alert on or off.
func (d *DB) ToggleAlertActive(ctx context.Context, id string, active bool) error {
	tag, err := d.Pool.Exec(ctx,
		`UPDATE alerts SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to toggle alert %s: %w", id, err)
	}
	return expectOneRow(tag, "alert", id)
}

// DeleteAlert removes an alert. Its trigger logs are kept.
func (d *DB) DeleteAlert(ctx context.Context, id string) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert %s: %w", id, err)
	}
	return expectOneRow(tag, "alert", id)
}

func (d *DB) queryAlerts(ctx context.Context, query string, args ...any) ([]models.Alert, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	list := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return list, nil
}

func scanAlert(row pgx.Row) (models.Alert, error) {
	var (
		a   models.Alert
		raw []byte
	)
	if err := row.Scan(&a.ID, &a.KpiID, &a.ContextID, &a.IsActive, &a.NotifyAddress, &raw, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Alert{}, err
	}
	a.Conditions = []models.Condition{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Conditions); err != nil {
			return models.Alert{}, fmt.Errorf("failed to decode conditions of alert %s: %w", a.ID, err)
		}
	}
	return a, nil
}

func expectOneRow(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
