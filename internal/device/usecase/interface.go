// Package usecase defines the device token authority operations and their storage contract.
package usecase

import (
	"context"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// DeviceRepository defines persistence operations for the device registry.
// Implementations must be safe for concurrent use.
type DeviceRepository interface {
	// Upsert creates the device or replaces its token, expiry and revoked flag.
	// CreatedAt is kept from the existing record on replace.
	Upsert(ctx context.Context, device *deviceDomain.Device) error

	// Get retrieves a device by ID. Returns ErrDeviceNotFound if not found.
	Get(ctx context.Context, deviceID string) (*deviceDomain.Device, error)

	// Revoke marks a device revoked. It is a no-op when the device does not exist.
	Revoke(ctx context.Context, deviceID string, revokedAt time.Time) error

	// List returns every device ordered by ID.
	List(ctx context.Context) ([]*deviceDomain.Device, error)

	// Delete removes a device. Returns ErrDeviceNotFound if not found.
	Delete(ctx context.Context, deviceID string) error
}

// DeviceUseCase is the token authority: it issues, verifies and revokes device tokens.
type DeviceUseCase interface {
	// Issue signs a new token for the device and upserts the registry entry.
	// Re-issuing a revoked device un-revokes it and supersedes its previous token.
	// The returned token is a bearer credential and must never be logged.
	Issue(ctx context.Context, input *deviceDomain.IssueTokenInput) (*deviceDomain.IssueTokenOutput, error)

	// Verify reports whether token is currently accepted for deviceID. It never returns an error.
	Verify(ctx context.Context, token, deviceID string) bool

	// Authenticate runs the same checks as Verify and returns the device on success.
	// Rejections wrap ErrUnauthorized; storage failures are returned as is.
	Authenticate(ctx context.Context, token, deviceID string) (*deviceDomain.Device, error)

	// Revoke is idempotent and takes effect for every later verification.
	Revoke(ctx context.Context, deviceID string) error

	// List returns all registered devices, including their current tokens.
	List(ctx context.Context) ([]*deviceDomain.Device, error)

	// Delete removes a device from the registry. Returns ErrDeviceNotFound if not found.
	Delete(ctx context.Context, deviceID string) error
}
