package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/streamgate/internal/errors"
)

// adminKeyService implements AdminKeyService using Argon2id for key hashing.
type adminKeyService struct {
	hasher *pwdhash.PasswordHasher
}

// GenerateKey creates a new cryptographically secure 32-byte random admin key.
// The key is base64 URL-encoded so it can travel in an Authorization header.
func (s *adminKeyService) GenerateKey() (plainKey string, keyHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random admin key")
	}

	plainKey = base64.URLEncoding.EncodeToString(randomBytes)

	keyHash, err = s.HashKey(plainKey)
	if err != nil {
		return "", "", err
	}

	return plainKey, keyHash, nil
}

// HashKey hashes a plain admin key using Argon2id.
func (s *adminKeyService) HashKey(plainKey string) (string, error) {
	keyHash, err := s.hasher.Hash([]byte(plainKey))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash admin key")
	}
	return keyHash, nil
}

// CompareKey performs a constant-time comparison between a plain key and its hash.
func (s *adminKeyService) CompareKey(plainKey string, keyHash string) bool {
	if plainKey == "" || keyHash == "" {
		return false
	}
	ok, err := s.hasher.Verify([]byte(plainKey), keyHash)
	if err != nil {
		return false
	}
	return ok
}

// NewAdminKeyService creates a new AdminKeyService instance using Argon2id hashing.
// Uses the Moderate policy for a balance between security and performance.
func NewAdminKeyService() AdminKeyService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &adminKeyService{
		hasher: hasher,
	}
}
