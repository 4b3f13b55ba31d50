package dto

import (
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// CreateDeviceResponse contains the issued token. Expiry is in Unix seconds.
type CreateDeviceResponse struct {
	DeviceID  string `json:"device_id"`
	Token     string `json:"token"` //nolint:gosec // returned to the admin on issuance
	ExpiresAt int64  `json:"expires_at"`
}

// MapIssueOutputToResponse converts an issuance result to an API response.
func MapIssueOutputToResponse(output *deviceDomain.IssueTokenOutput) CreateDeviceResponse {
	return CreateDeviceResponse{
		DeviceID:  output.DeviceID,
		Token:     output.Token,
		ExpiresAt: output.ExpiresAt.Unix(),
	}
}

// RevokeDeviceResponse acknowledges a revocation.
type RevokeDeviceResponse struct {
	Success bool `json:"success"`
}

// DeviceResponse represents one registry entry on the admin API.
type DeviceResponse struct {
	ExpiresAt int64     `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	Token     string    `json:"token"` //nolint:gosec // admin-only listing
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListDevicesResponse maps device IDs to their registry entries.
type ListDevicesResponse struct {
	Devices map[string]DeviceResponse `json:"devices"`
}

// MapDevicesToListResponse converts domain devices to a list API response.
func MapDevicesToListResponse(devices []*deviceDomain.Device) ListDevicesResponse {
	response := ListDevicesResponse{Devices: make(map[string]DeviceResponse, len(devices))}
	for _, device := range devices {
		response.Devices[device.ID] = DeviceResponse{
			ExpiresAt: device.ExpiresAt.Unix(),
			Revoked:   device.Revoked,
			Token:     device.Token,
			CreatedAt: device.CreatedAt,
			UpdatedAt: device.UpdatedAt,
		}
	}
	return response
}
