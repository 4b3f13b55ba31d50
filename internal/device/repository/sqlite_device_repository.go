package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	apperrors "github.com/allisson/streamgate/internal/errors"
)

// SQLiteDeviceRepository implements Device persistence for an embedded SQLite file.
// All timestamps are stored as Unix seconds.
type SQLiteDeviceRepository struct {
	db *sql.DB
}

type sqliteDeviceRow struct {
	device    deviceDomain.Device
	expiresAt int64
	revoked   int64
	createdAt int64
	updatedAt int64
}

func (r *sqliteDeviceRow) dest() []any {
	return []any{&r.device.ID, &r.device.Token, &r.expiresAt, &r.revoked, &r.createdAt, &r.updatedAt}
}

func (r *sqliteDeviceRow) toDomain() *deviceDomain.Device {
	device := r.device
	device.ExpiresAt = time.Unix(r.expiresAt, 0).UTC()
	device.Revoked = r.revoked != 0
	device.CreatedAt = time.Unix(r.createdAt, 0).UTC()
	device.UpdatedAt = time.Unix(r.updatedAt, 0).UTC()
	return &device
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Upsert inserts a device or replaces its token, expiry and revoked flag.
func (s *SQLiteDeviceRepository) Upsert(ctx context.Context, device *deviceDomain.Device) error {
	query := `INSERT INTO devices (id, token, expires_at, revoked, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT (id) DO UPDATE
			  SET token = excluded.token,
				  expires_at = excluded.expires_at,
				  revoked = excluded.revoked,
				  updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(
		ctx,
		query,
		device.ID,
		device.Token,
		device.ExpiresAt.Unix(),
		boolToInt(device.Revoked),
		device.CreatedAt.Unix(),
		device.UpdatedAt.Unix(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert device")
	}
	return nil
}

// Get retrieves a Device by ID.
func (s *SQLiteDeviceRepository) Get(ctx context.Context, deviceID string) (*deviceDomain.Device, error) {
	query := `SELECT id, token, expires_at, revoked, created_at, updated_at FROM devices WHERE id = ?`

	var row sqliteDeviceRow
	if err := s.db.QueryRowContext(ctx, query, deviceID).Scan(row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deviceDomain.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get device")
	}

	return row.toDomain(), nil
}

// Revoke marks a device revoked. Missing devices are left untouched.
func (s *SQLiteDeviceRepository) Revoke(ctx context.Context, deviceID string, revokedAt time.Time) error {
	query := `UPDATE devices SET revoked = 1, updated_at = ? WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, revokedAt.Unix(), deviceID); err != nil {
		return apperrors.Wrap(err, "failed to revoke device")
	}
	return nil
}

// List retrieves every device ordered by ID.
func (s *SQLiteDeviceRepository) List(ctx context.Context) ([]*deviceDomain.Device, error) {
	query := `SELECT id, token, expires_at, revoked, created_at, updated_at FROM devices ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list devices")
	}
	defer func() { _ = rows.Close() }()

	devices := make([]*deviceDomain.Device, 0)
	for rows.Next() {
		var row sqliteDeviceRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan device")
		}
		devices = append(devices, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate devices")
	}

	return devices, nil
}

// Delete removes a device by ID.
func (s *SQLiteDeviceRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, deviceID)
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

// NewSQLiteDeviceRepository creates a new SQLite Device repository.
func NewSQLiteDeviceRepository(db *sql.DB) *SQLiteDeviceRepository {
	return &SQLiteDeviceRepository{db: db}
}
