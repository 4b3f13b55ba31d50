package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
)

// identificationTemplate is the client identification string a player sends as User-Agent.
const identificationTemplate = "OTT TV/1.7.2.2 (Linux;Android 13; en; %s:%s)"

// RunCreateDevice issues a token for deviceID, creating the device or superseding its
// previous token. A revoked device is re-enabled. ttlMinutes <= 0 uses the default TTL.
//
// The token is printed together with the identification string clients send.
// enforceLatest mirrors TOKEN_ENFORCE_LATEST and only changes the closing note.
func RunCreateDevice(
	ctx context.Context,
	useCase deviceUseCase.DeviceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	deviceID string,
	ttlMinutes int,
	enforceLatest bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("issuing device token", slog.String("device_id", deviceID))

	output, err := useCase.Issue(ctx, &deviceDomain.IssueTokenInput{
		DeviceID:   deviceID,
		TTLMinutes: ttlMinutes,
	})
	if err != nil {
		return fmt.Errorf("failed to issue device token: %w", err)
	}

	identification := fmt.Sprintf(identificationTemplate, output.DeviceID, output.Token)

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"device_id":      output.DeviceID,
			"token":          output.Token,
			"expires_at":     output.ExpiresAt.Unix(),
			"identification": identification,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(writer, "\nDevice token issued successfully!")
		_, _ = fmt.Fprintf(writer, "Device ID: %s\n", output.DeviceID)
		_, _ = fmt.Fprintf(writer, "Token: %s\n", output.Token)
		_, _ = fmt.Fprintf(writer, "Expires At: %s\n", output.ExpiresAt.UTC().Format(time.RFC3339))
		_, _ = fmt.Fprintf(writer, "User-Agent: %s\n", identification)
		if enforceLatest {
			_, _ = fmt.Fprintln(writer, "\nNOTE: Any previously issued token for this device is no longer valid.")
		} else {
			_, _ = fmt.Fprintln(writer, "\nNOTE: Previously issued tokens for this device stay valid until they expire.")
		}
	}

	logger.Info("device token issued",
		slog.String("device_id", output.DeviceID),
		slog.Time("expires_at", output.ExpiresAt),
	)

	return nil
}
