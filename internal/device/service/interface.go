// Package service provides the cryptographic building blocks of the device token authority.
//
// It signs and parses device tokens, hashes and checks the admin key, and
// loads the token signing key from plain configuration or a KMS ciphertext.
package service

import (
	"context"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// TokenSigner encodes and decodes device tokens.
// Parse only checks structure and signature; expiry and registry state are the caller's job.
type TokenSigner interface {
	// Sign builds a token for deviceID that expires at expiresAt (second precision).
	Sign(deviceID string, expiresAt time.Time) string

	// Parse verifies the token signature in constant time and decodes its claims.
	// Returns an error wrapping ErrUnauthorized for any malformed or forged token.
	Parse(token string) (*deviceDomain.Claims, error)
}

// AdminKeyService defines operations for admin key generation and validation.
// Only the hash of the admin key is ever stored in configuration.
type AdminKeyService interface {
	// GenerateKey creates a new random admin key and returns it with its hash.
	// The plain key must be displayed once and never logged.
	GenerateKey() (plainKey string, keyHash string, err error)

	// HashKey hashes a plain admin key.
	HashKey(plainKey string) (keyHash string, err error)

	// CompareKey compares a plain key against a hash in constant time.
	CompareKey(plainKey string, keyHash string) bool
}

// Keeper encrypts and decrypts small secrets with a KMS key.
// *secrets.Keeper from gocloud.dev implements it.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens keepers for a KMS key URI.
type KMSService interface {
	// OpenKeeper opens a Keeper for keyURI.
	// Supports gcpkms://, awskms://, azurekeyvault://, hashivault:// and base64key://.
	OpenKeeper(ctx context.Context, keyURI string) (Keeper, error)
}
