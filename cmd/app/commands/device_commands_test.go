package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	"github.com/allisson/streamgate/internal/device/usecase/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCreateDevice(t *testing.T) {
	ctx := context.Background()
	expiresAt := time.Unix(1_900_000_000, 0).UTC()
	output := &deviceDomain.IssueTokenOutput{
		DeviceID:  "tv-01",
		Token:     "dHYtMDF8MTkwMDAwMDAwMA==.abcdef",
		ExpiresAt: expiresAt,
	}

	t.Run("text", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("Issue", ctx, &deviceDomain.IssueTokenInput{DeviceID: "tv-01", TTLMinutes: 30}).
			Return(output, nil)

		var out bytes.Buffer
		err := RunCreateDevice(ctx, mockUseCase, discardLogger(), &out, "tv-01", 30, true, "text")
		require.NoError(t, err)

		assert.Contains(t, out.String(), "Token: dHYtMDF8MTkwMDAwMDAwMA==.abcdef")
		assert.Contains(t, out.String(), "2030-03-17T17:46:40Z")
		assert.Contains(t, out.String(), "; en; tv-01:dHYtMDF8MTkwMDAwMDAwMA==.abcdef)")
		assert.Contains(t, out.String(), "previously issued token for this device is no longer valid")
		assert.NotContains(t, out.String(), "shown only once")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("text without latest-token enforcement", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("Issue", ctx, mock.Anything).Return(output, nil)

		var out bytes.Buffer
		require.NoError(t, RunCreateDevice(ctx, mockUseCase, discardLogger(), &out, "tv-01", 0, false, "text"))

		assert.Contains(t, out.String(), "stay valid until they expire")
		assert.NotContains(t, out.String(), "no longer valid")
	})

	t.Run("json", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("Issue", ctx, mock.Anything).Return(output, nil)

		var out bytes.Buffer
		err := RunCreateDevice(ctx, mockUseCase, discardLogger(), &out, "tv-01", 0, true, "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, "tv-01", result["device_id"])
		assert.Equal(t, output.Token, result["token"])
		assert.InDelta(t, float64(expiresAt.Unix()), result["expires_at"], 0)
	})

	t.Run("identification is parseable", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("Issue", ctx, mock.Anything).Return(output, nil)

		var out bytes.Buffer
		require.NoError(t, RunCreateDevice(ctx, mockUseCase, discardLogger(), &out, "tv-01", 0, true, "json"))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))

		deviceID, token, ok := deviceDomain.ParseIdentification(result["identification"].(string))
		require.True(t, ok)
		assert.Equal(t, "tv-01", deviceID)
		assert.Equal(t, output.Token, token)
	})

	t.Run("use case error", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("Issue", ctx, mock.Anything).Return(nil, errors.New("boom"))

		err := RunCreateDevice(ctx, mockUseCase, discardLogger(), io.Discard, "tv-01", 0, true, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to issue device token")
	})

	t.Run("invalid format", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}

		err := RunCreateDevice(ctx, mockUseCase, discardLogger(), io.Discard, "tv-01", 0, true, "yaml")
		require.Error(t, err)
		mockUseCase.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	})
}

func TestRunListDevices(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_800_000_000, 0)
	devices := []*deviceDomain.Device{
		{ID: "a", Token: "tok-a", ExpiresAt: now.Add(time.Hour)},
		{ID: "b", Token: "tok-b", ExpiresAt: now.Add(-time.Hour)},
		{ID: "c", Token: "tok-c", ExpiresAt: now.Add(time.Hour), Revoked: true},
	}

	t.Run("text", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("List", ctx).Return(devices, nil)

		var out bytes.Buffer
		require.NoError(t, RunListDevices(ctx, mockUseCase, discardLogger(), &out, now, "text"))

		lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
		require.Len(t, lines, 4)
		assert.Contains(t, string(lines[1]), "active")
		assert.Contains(t, string(lines[2]), "expired")
		assert.Contains(t, string(lines[3]), "revoked")
		assert.NotContains(t, out.String(), "tok-a")
	})

	t.Run("json", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("List", ctx).Return(devices, nil)

		var out bytes.Buffer
		require.NoError(t, RunListDevices(ctx, mockUseCase, discardLogger(), &out, now, "json"))

		var result struct {
			Devices []deviceListEntry `json:"devices"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Len(t, result.Devices, 3)
		assert.Equal(t, "tok-a", result.Devices[0].Token)
		assert.True(t, result.Devices[1].Expired)
		assert.True(t, result.Devices[2].Revoked)
	})

	t.Run("empty", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("List", ctx).Return([]*deviceDomain.Device{}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListDevices(ctx, mockUseCase, discardLogger(), &out, now, "text"))
		assert.Contains(t, out.String(), "No devices registered")
	})
}

func TestRunRevokeDevice(t *testing.T) {
	ctx := context.Background()

	mockUseCase := &mocks.MockDeviceUseCase{}
	mockUseCase.On("Revoke", ctx, "tv-01").Return(nil)

	var out bytes.Buffer
	require.NoError(t, RunRevokeDevice(ctx, mockUseCase, discardLogger(), &out, "tv-01"))
	assert.Contains(t, out.String(), "tv-01 revoked")
	mockUseCase.AssertExpectations(t)
}

func TestRunDeleteDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("Delete", ctx, "tv-01").Return(nil)

		var out bytes.Buffer
		require.NoError(t, RunDeleteDevice(ctx, mockUseCase, discardLogger(), &out, "tv-01"))
		assert.Contains(t, out.String(), "tv-01 deleted")
	})

	t.Run("not found", func(t *testing.T) {
		mockUseCase := &mocks.MockDeviceUseCase{}
		mockUseCase.On("Delete", ctx, "ghost").Return(deviceDomain.ErrDeviceNotFound)

		err := RunDeleteDevice(ctx, mockUseCase, discardLogger(), io.Discard, "ghost")
		require.ErrorIs(t, err, deviceDomain.ErrDeviceNotFound)
	})
}

func TestRunVerifyDeviceToken(t *testing.T) {
	ctx := context.Background()

	mockUseCase := &mocks.MockDeviceUseCase{}
	mockUseCase.On("Verify", ctx, "good", "tv-01").Return(true)
	mockUseCase.On("Verify", ctx, "bad", "tv-01").Return(false)

	var out bytes.Buffer
	require.NoError(t, RunVerifyDeviceToken(ctx, mockUseCase, &out, "tv-01", "good"))
	assert.Equal(t, "valid\n", out.String())

	out.Reset()
	require.Error(t, RunVerifyDeviceToken(ctx, mockUseCase, &out, "tv-01", "bad"))
	assert.Equal(t, "invalid\n", out.String())
}

func TestRequirePersistentRegistry(t *testing.T) {
	assert.Error(t, RequirePersistentRegistry("memory"))
	assert.NoError(t, RequirePersistentRegistry("sqlite"))
}
