// Package http provides the device admin API and the middleware that gates relay routes
// behind device tokens.
package http

import (
	"context"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// deviceKey is a context key type for storing authenticated devices.
type deviceKey struct{}

// WithDevice stores an authenticated device in the context.
func WithDevice(ctx context.Context, device *deviceDomain.Device) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}

// GetDevice retrieves the authenticated device from the context.
func GetDevice(ctx context.Context) (*deviceDomain.Device, bool) {
	device, ok := ctx.Value(deviceKey{}).(*deviceDomain.Device)
	return device, ok
}
