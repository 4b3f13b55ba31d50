package domain

import (
	"github.com/allisson/streamgate/internal/errors"
)

// Device registry errors.
var (
	// ErrDeviceNotFound indicates a device with the specified ID was not found.
	ErrDeviceNotFound = errors.Wrap(errors.ErrNotFound, "device not found")
)

// Token rejection reasons. All of them map to 401 and are only ever logged at debug level.
var (
	ErrTokenMissing      = errors.Wrap(errors.ErrUnauthorized, "token missing")
	ErrTokenMalformed    = errors.Wrap(errors.ErrUnauthorized, "token malformed")
	ErrSignatureMismatch = errors.Wrap(errors.ErrUnauthorized, "token signature mismatch")
	ErrDeviceMismatch    = errors.Wrap(errors.ErrUnauthorized, "token issued for another device")
	ErrTokenExpired      = errors.Wrap(errors.ErrUnauthorized, "token expired")
	ErrDeviceUnknown     = errors.Wrap(errors.ErrUnauthorized, "device not registered")
	ErrDeviceRevoked     = errors.Wrap(errors.ErrUnauthorized, "device revoked")
	ErrTokenSuperseded   = errors.Wrap(errors.ErrUnauthorized, "token superseded by a newer one")
)

// ErrIdentificationMalformed indicates the identification string does not end in ";device:token)".
var ErrIdentificationMalformed = errors.Wrap(errors.ErrBadRequest, "malformed identification string")
