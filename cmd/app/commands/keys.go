package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	deviceService "github.com/allisson/streamgate/internal/device/service"
)

// signingKeySize is the number of random bytes in a generated signing key.
const signingKeySize = 32

// RunCreateAdminKey generates a random admin key and prints it with its hash.
// Only ADMIN_KEY_HASH goes into configuration; the plain key is shown once.
func RunCreateAdminKey(service deviceService.AdminKeyService, logger *slog.Logger, writer io.Writer) error {
	plainKey, keyHash, err := service.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate admin key: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Admin key. Send it as \"Authorization: Bearer <key>\" on /v1/devices.")
	_, _ = fmt.Fprintln(writer, "# It is shown only once and is not stored anywhere.")
	_, _ = fmt.Fprintf(writer, "ADMIN_KEY=\"%s\"\n", plainKey)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# Copy this to your .env file or secrets manager")
	_, _ = fmt.Fprintf(writer, "ADMIN_KEY_HASH='%s'\n", keyHash)

	logger.Info("admin key generated")
	return nil
}

// RunCreateSigningKey prints a token signing key configuration.
//
// When plainKey is empty a random key is generated. Without kmsKeyURI the key is
// printed as TOKEN_SIGNING_KEY; with it the key is encrypted and printed as
// TOKEN_SIGNING_KEY_CIPHERTEXT. For local development use kmsKeyURI="base64key://...".
func RunCreateSigningKey(
	ctx context.Context,
	kms deviceService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	plainKey string,
	kmsKeyURI string,
) error {
	if plainKey == "" {
		raw := make([]byte, signingKeySize)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("failed to generate signing key: %w", err)
		}
		plainKey = base64.RawURLEncoding.EncodeToString(raw)
	}

	if kmsKeyURI == "" {
		_, _ = fmt.Fprintln(writer, "# Token signing key. Changing it invalidates every issued token.")
		_, _ = fmt.Fprintf(writer, "TOKEN_SIGNING_KEY=\"%s\"\n", plainKey)
		logger.Info("signing key generated")
		return nil
	}

	ciphertext, err := deviceService.EncryptSigningKey(ctx, kms, kmsKeyURI, plainKey)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(writer, "# Token signing key encrypted with KMS. Changing it invalidates every issued token.")
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "TOKEN_SIGNING_KEY_CIPHERTEXT=\"%s\"\n", ciphertext)

	logger.Info("signing key encrypted with KMS")
	return nil
}
