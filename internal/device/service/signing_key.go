package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"gocloud.dev/secrets"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens a secrets.Keeper for the configured KMS provider using the keyURI.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// LoadSigningKey resolves the token signing key.
// A base64 ciphertext is decrypted with the keeper at keyURI and wins over the plain key.
func LoadSigningKey(
	ctx context.Context,
	kms KMSService,
	keyURI string,
	plainKey string,
	ciphertext string,
) ([]byte, error) {
	if ciphertext == "" {
		if plainKey == "" {
			return nil, errors.New("token signing key is not configured")
		}
		return []byte(plainKey), nil
	}

	if keyURI == "" {
		return nil, errors.New("KMS key URI is required to decrypt the token signing key")
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("token signing key ciphertext is not valid base64: %w", err)
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	defer func() { _ = keeper.Close() }()

	key, err := keeper.Decrypt(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token signing key: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("decrypted token signing key is empty")
	}

	return key, nil
}

// EncryptSigningKey encrypts a plain signing key with the keeper at keyURI
// and returns the base64 ciphertext expected by LoadSigningKey.
func EncryptSigningKey(ctx context.Context, kms KMSService, keyURI string, plainKey string) (string, error) {
	if plainKey == "" {
		return "", errors.New("signing key must not be empty")
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", err
	}
	defer func() { _ = keeper.Close() }()

	ciphertext, err := keeper.Encrypt(ctx, []byte(plainKey))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token signing key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
