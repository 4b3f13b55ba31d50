// Package dto provides data transfer objects for the device admin API.
package dto

import (
	validation "github.com/jellydator/validation"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	customValidation "github.com/allisson/streamgate/internal/validation"
)

// CreateDeviceRequest contains the parameters for creating or re-issuing a device token.
type CreateDeviceRequest struct {
	DeviceID string `json:"device_id"`
	// TTLMinutes falls back to the configured default when zero or negative.
	TTLMinutes int `json:"ttl_minutes"`
}

// Validate checks if the create device request is valid.
func (r *CreateDeviceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DeviceID,
			validation.Required,
			customValidation.DeviceID,
		),
		validation.Field(&r.TTLMinutes,
			validation.Max(deviceDomain.MaxTTLMinutes),
		),
	)
}
