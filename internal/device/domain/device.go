package domain

import "time"

// Device is a registry entry identifying one client allowed to hold a token.
// The registry keeps at most one live token per device.
type Device struct {
	ID        string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired reports whether the device's current token is past its deadline at now.
func (d *Device) IsExpired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// Claims holds the decoded, signature-checked content of a token.
type Claims struct {
	DeviceID  string
	ExpiresAt time.Time
}

// IssueTokenInput contains the parameters for creating or re-issuing a device token.
type IssueTokenInput struct {
	DeviceID string
	// TTLMinutes falls back to the configured default when zero or negative.
	TTLMinutes int
}

// IssueTokenOutput is returned once per issuance and carries the plain token.
type IssueTokenOutput struct {
	DeviceID  string
	Token     string
	ExpiresAt time.Time
}
