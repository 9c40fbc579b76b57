package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-service/internal/models"
)

// GetTask reads the fields of a checklist task the alert check needs.
func (d *DB) GetTask(ctx context.Context, id string) (models.Task, error) {
	var (
		t     models.Task
		value []byte
	)
	err := d.Pool.QueryRow(ctx,
		`SELECT id::text, kpi_id::text, todolist_id::text, status, value, alert_checked FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.KpiID, &t.ContextID, &t.Status, &value, &t.AlertChecked)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	t.Value = value
	return t, nil
}

// MarkAlertChecked sets the flag that stops a task from being checked again.
func (d *DB) MarkAlertChecked(ctx context.Context, id string) error {
	tag, err := d.Pool.Exec(ctx, `UPDATE tasks SET alert_checked = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark task %s alert-checked: %w", id, err)
	}
	return expectOneRow(tag, "task", id)
}
