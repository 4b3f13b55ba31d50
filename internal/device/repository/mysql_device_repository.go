package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	apperrors "github.com/allisson/streamgate/internal/errors"
)

// MySQLDeviceRepository implements Device persistence for MySQL.
// The DSN must set parseTime=true so DATETIME columns scan into time.Time.
type MySQLDeviceRepository struct {
	db *sql.DB
}

// Upsert inserts a device or replaces its token, expiry and revoked flag.
func (m *MySQLDeviceRepository) Upsert(ctx context.Context, device *deviceDomain.Device) error {
	query := `INSERT INTO devices (id, token, expires_at, revoked, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  token = VALUES(token),
				  expires_at = VALUES(expires_at),
				  revoked = VALUES(revoked),
				  updated_at = VALUES(updated_at)`

	_, err := m.db.ExecContext(
		ctx,
		query,
		device.ID,
		device.Token,
		device.ExpiresAt.Unix(),
		device.Revoked,
		device.CreatedAt,
		device.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert device")
	}
	return nil
}

// Get retrieves a Device by ID from the MySQL database.
func (m *MySQLDeviceRepository) Get(ctx context.Context, deviceID string) (*deviceDomain.Device, error) {
	query := `SELECT id, token, expires_at, revoked, created_at, updated_at FROM devices WHERE id = ?`

	var device deviceDomain.Device
	var expiresAt int64

	err := m.db.QueryRowContext(ctx, query, deviceID).Scan(
		&device.ID,
		&device.Token,
		&expiresAt,
		&device.Revoked,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deviceDomain.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get device")
	}

	device.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &device, nil
}

// Revoke marks a device revoked. Missing devices are left untouched.
func (m *MySQLDeviceRepository) Revoke(ctx context.Context, deviceID string, revokedAt time.Time) error {
	query := `UPDATE devices SET revoked = TRUE, updated_at = ? WHERE id = ?`

	if _, err := m.db.ExecContext(ctx, query, revokedAt, deviceID); err != nil {
		return apperrors.Wrap(err, "failed to revoke device")
	}
	return nil
}

// List retrieves every device ordered by ID.
func (m *MySQLDeviceRepository) List(ctx context.Context) ([]*deviceDomain.Device, error) {
	query := `SELECT id, token, expires_at, revoked, created_at, updated_at FROM devices ORDER BY id`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list devices")
	}
	defer func() { _ = rows.Close() }()

	devices := make([]*deviceDomain.Device, 0)
	for rows.Next() {
		var device deviceDomain.Device
		var expiresAt int64

		if err := rows.Scan(
			&device.ID,
			&device.Token,
			&expiresAt,
			&device.Revoked,
			&device.CreatedAt,
			&device.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan device")
		}

		device.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		devices = append(devices, &device)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate devices")
	}

	return devices, nil
}

// Delete removes a device by ID.
func (m *MySQLDeviceRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, deviceID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete device")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return deviceDomain.ErrDeviceNotFound
	}

	return nil
}

// NewMySQLDeviceRepository creates a new MySQL Device repository.
func NewMySQLDeviceRepository(db *sql.DB) *MySQLDeviceRepository {
	return &MySQLDeviceRepository{db: db}
}
