// Package domain defines the device registry and signed device token models.
//
// A device token is a bearer credential with the wire format
//
//	base64(deviceID + "|" + expiresAtUnix) + "." + hex(HMAC-SHA256(secret, base64Payload))
//
// Revocation is enforced by the registry, never by the token string itself.
package domain

const (
	// TokenDelimiter separates the encoded payload from the signature.
	TokenDelimiter = "."

	// PayloadDelimiter separates the device ID from the expiry inside the payload.
	PayloadDelimiter = "|"

	// DefaultTTLMinutes is used when an issue request carries no positive TTL.
	DefaultTTLMinutes = 60

	// MaxTTLMinutes caps token lifetime at one year.
	MaxTTLMinutes = 366 * 24 * 60
)
