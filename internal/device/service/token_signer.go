package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// hmacTokenSigner implements TokenSigner with HMAC-SHA256 over the base64 payload.
type hmacTokenSigner struct {
	secret []byte
}

// NewTokenSigner creates a TokenSigner keyed with secret.
func NewTokenSigner(secret []byte) (TokenSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing key must not be empty")
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &hmacTokenSigner{secret: key}, nil
}

// Sign builds payload "deviceID|expiresAt", base64-encodes it and appends the hex signature.
func (s *hmacTokenSigner) Sign(deviceID string, expiresAt time.Time) string {
	payload := deviceID + deviceDomain.PayloadDelimiter + strconv.FormatInt(expiresAt.Unix(), 10)
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))
	return encoded + deviceDomain.TokenDelimiter + s.signature(encoded)
}

// Parse rejects any token whose split does not yield exactly the expected parts.
// The signature is checked before the payload is decoded.
func (s *hmacTokenSigner) Parse(token string) (*deviceDomain.Claims, error) {
	if token == "" {
		return nil, deviceDomain.ErrTokenMissing
	}

	parts := strings.Split(token, deviceDomain.TokenDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, deviceDomain.ErrTokenMalformed
	}

	expected := s.signature(parts[0])
	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return nil, deviceDomain.ErrSignatureMismatch
	}

	raw, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, deviceDomain.ErrTokenMalformed
	}

	fields := strings.Split(string(raw), deviceDomain.PayloadDelimiter)
	if len(fields) != 2 || fields[0] == "" {
		return nil, deviceDomain.ErrTokenMalformed
	}

	expiresAt, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, deviceDomain.ErrTokenMalformed
	}

	return &deviceDomain.Claims{
		DeviceID:  fields[0],
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
	}, nil
}

// signature returns the lowercase hex HMAC-SHA256 of the encoded payload.
func (s *hmacTokenSigner) signature(encodedPayload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encodedPayload))
	return hex.EncodeToString(mac.Sum(nil))
}
