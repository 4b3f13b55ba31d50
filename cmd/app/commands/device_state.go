package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
)

// RunRevokeDevice revokes deviceID. Revoking an unknown or already revoked device succeeds.
func RunRevokeDevice(
	ctx context.Context,
	useCase deviceUseCase.DeviceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	deviceID string,
) error {
	if err := useCase.Revoke(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to revoke device: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Device %s revoked.\n", deviceID)
	logger.Info("device revoked", slog.String("device_id", deviceID))
	return nil
}

// RunDeleteDevice removes deviceID from the registry.
func RunDeleteDevice(
	ctx context.Context,
	useCase deviceUseCase.DeviceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	deviceID string,
) error {
	if err := useCase.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Device %s deleted.\n", deviceID)
	logger.Info("device deleted", slog.String("device_id", deviceID))
	return nil
}

// RunVerifyDeviceToken checks a token against the registry and reports whether the
// relay would accept it. A rejected token is reported as an error so the exit code is non-zero.
func RunVerifyDeviceToken(
	ctx context.Context,
	useCase deviceUseCase.DeviceUseCase,
	writer io.Writer,
	deviceID string,
	token string,
) error {
	if !useCase.Verify(ctx, token, deviceID) {
		_, _ = fmt.Fprintln(writer, "invalid")
		return fmt.Errorf("token is not valid for device %s", deviceID)
	}

	_, _ = fmt.Fprintln(writer, "valid")
	return nil
}
