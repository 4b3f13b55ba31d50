package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
)

type deviceListEntry struct {
	DeviceID  string `json:"device_id"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	Expired   bool   `json:"expired"`
	Revoked   bool   `json:"revoked"`
}

// RunListDevices prints the device registry ordered by device ID.
// Text output omits tokens; JSON output includes them.
func RunListDevices(
	ctx context.Context,
	useCase deviceUseCase.DeviceUseCase,
	logger *slog.Logger,
	writer io.Writer,
	now time.Time,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	devices, err := useCase.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	logger.Debug("listed devices", slog.Int("count", len(devices)))

	if format == "json" {
		entries := make([]deviceListEntry, 0, len(devices))
		for _, device := range devices {
			entries = append(entries, deviceListEntry{
				DeviceID:  device.ID,
				Token:     device.Token,
				ExpiresAt: device.ExpiresAt.Unix(),
				Expired:   device.IsExpired(now),
				Revoked:   device.Revoked,
			})
		}
		return writeJSON(writer, map[string]any{"devices": entries})
	}

	if len(devices) == 0 {
		_, _ = fmt.Fprintln(writer, "No devices registered.")
		return nil
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DEVICE ID\tEXPIRES AT\tSTATUS")
	for _, device := range devices {
		status := "active"
		switch {
		case device.Revoked:
			status = "revoked"
		case device.IsExpired(now):
			status = "expired"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n",
			device.ID,
			device.ExpiresAt.UTC().Format(time.RFC3339),
			status,
		)
	}
	return tw.Flush()
}
