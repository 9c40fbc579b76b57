package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"alert-service/internal/models"
)

const (
	DefaultLogLimit = 100
	MaxLogLimit     = 1000
)

// InsertLog stores a new trigger log entry and returns it with its id and
// creation time set.
func (d *DB) InsertLog(ctx context.Context, entry models.TriggerLog) (models.TriggerLog, error) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now().UTC()

	var value any
	if len(entry.TriggeredValue) > 0 {
		value = string(entry.TriggeredValue)
	}

	query := `
	INSERT INTO alert_trigger_logs (id, alert_id, triggered_value, error_message, email_sent, email_sent_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := d.Pool.Exec(ctx, query,
		entry.ID, entry.AlertID, value, entry.ErrorMessage, entry.EmailSent, entry.EmailSentAt, entry.CreatedAt,
	)
	if err != nil {
		return models.TriggerLog{}, fmt.Errorf("failed to insert trigger log: %w", err)
	}
	return entry, nil
}

// UpdateLog sets the non-nil fields of upd on one entry.
func (d *DB) UpdateLog(ctx context.Context, logID string, upd models.LogUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.EmailSent != nil {
		add("email_sent", *upd.EmailSent)
	}
	if upd.EmailSentAt != nil {
		add("email_sent_at", *upd.EmailSentAt)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, logID)
	query := fmt.Sprintf("UPDATE alert_trigger_logs SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := d.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update trigger log %s: %w", logID, err)
	}
	return expectOneRow(tag, "trigger log", logID)
}

// QueryLogs returns trigger logs matching f, newest first. A zero limit
// means DefaultLogLimit; larger limits are capped at MaxLogLimit.
func (d *DB) QueryLogs(ctx context.Context, f models.LogFilter) ([]models.TriggerLog, error) {
	query := `
	SELECT l.id::text, l.alert_id::text, l.triggered_value, l.error_message, l.email_sent, l.email_sent_at, l.created_at,
	       COALESCE(a.kpi_id, ''), COALESCE(a.context_id, '')
	FROM alert_trigger_logs l
	LEFT JOIN alerts a ON a.id = l.alert_id
	WHERE 1=1`
	args := []any{}
	where := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if f.AlertID != "" {
		where("l.alert_id = $%d", f.AlertID)
	}
	if f.KpiID != "" {
		where("a.kpi_id = $%d", f.KpiID)
	}
	if f.ContextID != "" {
		where("a.context_id = $%d", f.ContextID)
	}
	if f.StartDate != nil {
		where("l.created_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		where("l.created_at <= $%d", *f.EndDate)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY l.created_at DESC LIMIT $%d", len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger logs: %w", err)
	}
	defer rows.Close()

	logs := []models.TriggerLog{}
	for rows.Next() {
		var (
			l       models.TriggerLog
			alertID *string
			value   []byte
		)
		if err := rows.Scan(&l.ID, &alertID, &value, &l.ErrorMessage, &l.EmailSent, &l.EmailSentAt, &l.CreatedAt, &l.KpiID, &l.ContextID); err != nil {
			return nil, fmt.Errorf("failed to scan trigger log: %w", err)
		}
		if alertID != nil {
			l.AlertID = *alertID
		}
		if len(value) > 0 {
			l.TriggeredValue = value
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trigger logs: %w", err)
	}
	return logs, nil
}
