package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-service/internal/models"
)

// GetStreamInfo returns the display name and description of a KPI.
func (d *DB) GetStreamInfo(ctx context.Context, kpiID string) (models.StreamInfo, error) {
	var info models.StreamInfo
	err := d.Pool.QueryRow(ctx,
		`SELECT name, COALESCE(description, '') FROM kpis WHERE id = $1`, kpiID,
	).Scan(&info.Name, &info.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StreamInfo{}, fmt.Errorf("kpi %s: %w", kpiID, ErrNotFound)
	}
	if err != nil {
		return models.StreamInfo{}, fmt.Errorf("failed to get kpi %s: %w", kpiID, err)
	}
	return info, nil
}

// GetContextDevice returns the id of the device a todolist belongs to.
func (d *DB) GetContextDevice(ctx context.Context, contextID string) (string, error) {
	var deviceID *string
	err := d.Pool.QueryRow(ctx,
		`SELECT device_id::text FROM todolists WHERE id = $1`, contextID,
	).Scan(&deviceID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && deviceID == nil) {
		return "", fmt.Errorf("device of todolist %s: %w", contextID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get todolist %s: %w", contextID, err)
	}
	return *deviceID, nil
}

// GetDevice returns the display data of a device.
func (d *DB) GetDevice(ctx context.Context, deviceID string) (models.Device, error) {
	var dev models.Device
	err := d.Pool.QueryRow(ctx,
		`SELECT id::text, name, COALESCE(location, '') FROM devices WHERE id = $1`, deviceID,
	).Scan(&dev.ID, &dev.Name, &dev.Location)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Device{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	if err != nil {
		return models.Device{}, fmt.Errorf("failed to get device %s: %w", deviceID, err)
	}
	return dev, nil
}
