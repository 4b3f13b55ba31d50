package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	validation "github.com/jellydator/validation"

	"github.com/allisson/streamgate/internal/config"
	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	deviceService "github.com/allisson/streamgate/internal/device/service"
	customValidation "github.com/allisson/streamgate/internal/validation"
)

// deviceUseCase implements DeviceUseCase on top of a DeviceRepository and a TokenSigner.
type deviceUseCase struct {
	deviceRepo    DeviceRepository
	tokenSigner   deviceService.TokenSigner
	clock         clock.Clock
	defaultTTL    int
	enforceLatest bool
}

// Issue computes expiresAt = now + ttl minutes at second precision and upserts the device
// with the new token and revoked=false.
func (d *deviceUseCase) Issue(
	ctx context.Context,
	input *deviceDomain.IssueTokenInput,
) (*deviceDomain.IssueTokenOutput, error) {
	if err := validation.Validate(
		input.DeviceID,
		validation.Required,
		customValidation.DeviceID,
	); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}

	ttl := input.TTLMinutes
	if ttl <= 0 {
		ttl = d.defaultTTL
	}
	ttl = min(ttl, deviceDomain.MaxTTLMinutes)

	now := time.Unix(d.clock.Now().Unix(), 0).UTC()
	expiresAt := now.Add(time.Duration(ttl) * time.Minute)
	token := d.tokenSigner.Sign(input.DeviceID, expiresAt)

	device := &deviceDomain.Device{
		ID:        input.DeviceID,
		Token:     token,
		ExpiresAt: expiresAt,
		Revoked:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.deviceRepo.Upsert(ctx, device); err != nil {
		return nil, err
	}

	return &deviceDomain.IssueTokenOutput{
		DeviceID:  device.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify reports whether Authenticate accepts the pair.
func (d *deviceUseCase) Verify(ctx context.Context, token, deviceID string) bool {
	_, err := d.Authenticate(ctx, token, deviceID)
	return err == nil
}

// Authenticate checks, in order: token structure and signature, embedded device ID,
// expiry, registry presence, revocation and (when enforced) that the token is the latest one.
func (d *deviceUseCase) Authenticate(
	ctx context.Context,
	token, deviceID string,
) (*deviceDomain.Device, error) {
	if token == "" || deviceID == "" {
		return nil, deviceDomain.ErrTokenMissing
	}

	claims, err := d.tokenSigner.Parse(token)
	if err != nil {
		return nil, err
	}

	if claims.DeviceID != deviceID {
		return nil, deviceDomain.ErrDeviceMismatch
	}

	if d.clock.Now().Unix() >= claims.ExpiresAt.Unix() {
		return nil, deviceDomain.ErrTokenExpired
	}

	device, err := d.deviceRepo.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, deviceDomain.ErrDeviceNotFound) {
			return nil, deviceDomain.ErrDeviceUnknown
		}
		return nil, err
	}

	if device.Revoked {
		return nil, deviceDomain.ErrDeviceRevoked
	}

	if d.enforceLatest && subtle.ConstantTimeCompare([]byte(token), []byte(device.Token)) != 1 {
		return nil, deviceDomain.ErrTokenSuperseded
	}

	return device, nil
}

// Revoke marks the device revoked. Unknown devices are ignored.
func (d *deviceUseCase) Revoke(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return nil
	}
	return d.deviceRepo.Revoke(ctx, deviceID, d.clock.Now().UTC())
}

// List returns all registered devices.
func (d *deviceUseCase) List(ctx context.Context) ([]*deviceDomain.Device, error) {
	return d.deviceRepo.List(ctx)
}

// Delete removes a device from the registry.
func (d *deviceUseCase) Delete(ctx context.Context, deviceID string) error {
	return d.deviceRepo.Delete(ctx, deviceID)
}

// NewDeviceUseCase creates a DeviceUseCase.
// TOKEN_DEFAULT_TTL_MINUTES and TOKEN_ENFORCE_LATEST are read from cfg.
func NewDeviceUseCase(
	cfg *config.Config,
	deviceRepo DeviceRepository,
	tokenSigner deviceService.TokenSigner,
	clk clock.Clock,
) DeviceUseCase {
	defaultTTL := cfg.TokenDefaultTTLMinutes
	if defaultTTL <= 0 {
		defaultTTL = deviceDomain.DefaultTTLMinutes
	}
	defaultTTL = min(defaultTTL, deviceDomain.MaxTTLMinutes)

	return &deviceUseCase{
		deviceRepo:    deviceRepo,
		tokenSigner:   tokenSigner,
		clock:         clk,
		defaultTTL:    defaultTTL,
		enforceLatest: cfg.TokenEnforceLatest,
	}
}
