package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/streamgate/internal/config"
	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	deviceRepository "github.com/allisson/streamgate/internal/device/repository"
	deviceService "github.com/allisson/streamgate/internal/device/service"
	"github.com/allisson/streamgate/internal/device/usecase/mocks"
	apperrors "github.com/allisson/streamgate/internal/errors"
)

var testEpoch = time.Unix(1_700_000_000, 0).UTC()

type testAuthority struct {
	useCase DeviceUseCase
	clock   *clock.Mock
	repo    DeviceRepository
}

func newTestAuthority(t *testing.T, enforceLatest bool) *testAuthority {
	t.Helper()

	signer, err := deviceService.NewTokenSigner([]byte("test-signing-key"))
	require.NoError(t, err)

	mockClock := clock.NewMock()
	mockClock.Set(testEpoch)

	repo := deviceRepository.NewMemoryDeviceRepository()
	cfg := &config.Config{TokenDefaultTTLMinutes: 60, TokenEnforceLatest: enforceLatest}

	return &testAuthority{
		useCase: NewDeviceUseCase(cfg, repo, signer, mockClock),
		clock:   mockClock,
		repo:    repo,
	}
}

func (a *testAuthority) issue(t *testing.T, deviceID string, ttlMinutes int) *deviceDomain.IssueTokenOutput {
	t.Helper()
	output, err := a.useCase.Issue(context.Background(), &deviceDomain.IssueTokenInput{
		DeviceID:   deviceID,
		TTLMinutes: ttlMinutes,
	})
	require.NoError(t, err)
	return output
}

func TestDeviceUseCase_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ExplicitTTL", func(t *testing.T) {
		authority := newTestAuthority(t, true)

		output := authority.issue(t, "dev1", 5)
		assert.Equal(t, "dev1", output.DeviceID)
		assert.Equal(t, testEpoch.Add(5*time.Minute), output.ExpiresAt)
		assert.NotEmpty(t, output.Token)

		device, err := authority.repo.Get(ctx, "dev1")
		require.NoError(t, err)
		assert.Equal(t, output.Token, device.Token)
		assert.Equal(t, output.ExpiresAt, device.ExpiresAt)
		assert.False(t, device.Revoked)
	})

	t.Run("Success_DefaultTTL", func(t *testing.T) {
		authority := newTestAuthority(t, true)

		for _, ttl := range []int{0, -10} {
			output := authority.issue(t, "dev1", ttl)
			assert.Equal(t, testEpoch.Add(60*time.Minute), output.ExpiresAt)
		}
	})

	t.Run("Success_OversizedTTLClamped", func(t *testing.T) {
		authority := newTestAuthority(t, true)

		output := authority.issue(t, "dev1", 200_000_000)
		assert.Equal(t, testEpoch.Add(deviceDomain.MaxTTLMinutes*time.Minute), output.ExpiresAt)
		assert.True(t, output.ExpiresAt.After(testEpoch))
		assert.True(t, authority.useCase.Verify(ctx, output.Token, "dev1"))
	})

	t.Run("Success_OversizedDefaultTTLClamped", func(t *testing.T) {
		signer, err := deviceService.NewTokenSigner([]byte("test-signing-key"))
		require.NoError(t, err)

		mockClock := clock.NewMock()
		mockClock.Set(testEpoch)
		cfg := &config.Config{TokenDefaultTTLMinutes: 1 << 40, TokenEnforceLatest: true}
		useCase := NewDeviceUseCase(cfg, deviceRepository.NewMemoryDeviceRepository(), signer, mockClock)

		output, err := useCase.Issue(ctx, &deviceDomain.IssueTokenInput{DeviceID: "dev1"})
		require.NoError(t, err)
		assert.Equal(t, testEpoch.Add(deviceDomain.MaxTTLMinutes*time.Minute), output.ExpiresAt)
		assert.True(t, useCase.Verify(ctx, output.Token, "dev1"))
	})

	t.Run("Success_ExpirySecondPrecision", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		authority.clock.Add(750 * time.Millisecond)

		output := authority.issue(t, "dev1", 1)
		assert.Equal(t, testEpoch.Add(time.Minute), output.ExpiresAt)
	})

	t.Run("Success_ReissueUnrevokes", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		authority.issue(t, "dev1", 10)
		require.NoError(t, authority.useCase.Revoke(ctx, "dev1"))

		output := authority.issue(t, "dev1", 10)
		assert.True(t, authority.useCase.Verify(ctx, output.Token, "dev1"))
	})

	t.Run("Error_InvalidDeviceID", func(t *testing.T) {
		authority := newTestAuthority(t, true)

		for _, deviceID := range []string{"", "has space", "a|b", "a:b", "a;b", "(a)", strings.Repeat("x", 129)} {
			_, err := authority.useCase.Issue(ctx, &deviceDomain.IssueTokenInput{DeviceID: deviceID, TTLMinutes: 1})
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput, deviceID)
		}
	})

	t.Run("Error_RepositoryFailure", func(t *testing.T) {
		signer, err := deviceService.NewTokenSigner([]byte("k"))
		require.NoError(t, err)

		repo := &mocks.MockDeviceRepository{}
		repo.On("Upsert", ctx, mock.AnythingOfType("*domain.Device")).Return(errors.New("db down")).Once()

		useCase := NewDeviceUseCase(&config.Config{}, repo, signer, clock.NewMock())
		output, err := useCase.Issue(ctx, &deviceDomain.IssueTokenInput{DeviceID: "dev1"})
		assert.Error(t, err)
		assert.Nil(t, output)
		repo.AssertExpectations(t)
	})
}

func TestDeviceUseCase_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ImmediatelyAfterIssue", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		for _, deviceID := range []string{"dev1", "abc123", "A-very_long.device~id"} {
			output := authority.issue(t, deviceID, 30)
			assert.True(t, authority.useCase.Verify(ctx, output.Token, deviceID), deviceID)
		}
	})

	t.Run("Rejected_AfterRevoke", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 30)

		require.NoError(t, authority.useCase.Revoke(ctx, "dev1"))

		assert.False(t, authority.useCase.Verify(ctx, output.Token, "dev1"))
		_, err := authority.useCase.Authenticate(ctx, output.Token, "dev1")
		assert.ErrorIs(t, err, deviceDomain.ErrDeviceRevoked)
	})

	t.Run("Rejected_AfterExpiry", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 1)

		assert.True(t, authority.useCase.Verify(ctx, output.Token, "dev1"))

		authority.clock.Add(59 * time.Second)
		assert.True(t, authority.useCase.Verify(ctx, output.Token, "dev1"))

		authority.clock.Add(2 * time.Second)
		assert.False(t, authority.useCase.Verify(ctx, output.Token, "dev1"))
		_, err := authority.useCase.Authenticate(ctx, output.Token, "dev1")
		assert.ErrorIs(t, err, deviceDomain.ErrTokenExpired)
	})

	t.Run("Rejected_AtExactExpiry", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 1)

		authority.clock.Add(time.Minute)
		assert.False(t, authority.useCase.Verify(ctx, output.Token, "dev1"))
	})

	t.Run("Rejected_CrossDevice", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 30)
		authority.issue(t, "dev2", 30)

		assert.False(t, authority.useCase.Verify(ctx, output.Token, "dev2"))
		_, err := authority.useCase.Authenticate(ctx, output.Token, "dev2")
		assert.ErrorIs(t, err, deviceDomain.ErrDeviceMismatch)
	})

	t.Run("Rejected_Tampered", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 30)

		for i := range output.Token {
			if output.Token[i] == '.' {
				continue
			}
			tampered := []byte(output.Token)
			if tampered[i] == 'a' {
				tampered[i] = 'b'
			} else {
				tampered[i] = 'a'
			}
			assert.False(t, authority.useCase.Verify(ctx, string(tampered), "dev1"), "position %d", i)
		}
	})

	t.Run("Rejected_EmptyInputs", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 30)

		assert.False(t, authority.useCase.Verify(ctx, "", "dev1"))
		assert.False(t, authority.useCase.Verify(ctx, output.Token, ""))
	})

	t.Run("Rejected_UnknownDevice", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 30)
		require.NoError(t, authority.repo.Delete(ctx, "dev1"))

		_, err := authority.useCase.Authenticate(ctx, output.Token, "dev1")
		assert.ErrorIs(t, err, deviceDomain.ErrDeviceUnknown)
	})

	t.Run("Rejected_SupersededWhenEnforcingLatest", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		first := authority.issue(t, "dev1", 30)
		authority.clock.Add(time.Second)
		second := authority.issue(t, "dev1", 30)

		_, err := authority.useCase.Authenticate(ctx, first.Token, "dev1")
		assert.ErrorIs(t, err, deviceDomain.ErrTokenSuperseded)
		assert.True(t, authority.useCase.Verify(ctx, second.Token, "dev1"))
	})

	t.Run("Success_OlderTokenWhenNotEnforcingLatest", func(t *testing.T) {
		authority := newTestAuthority(t, false)
		first := authority.issue(t, "dev1", 30)
		authority.clock.Add(time.Second)
		authority.issue(t, "dev1", 30)

		assert.True(t, authority.useCase.Verify(ctx, first.Token, "dev1"))
	})

	t.Run("Scenario_OneMinuteToken", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		output := authority.issue(t, "dev1", 1)

		assert.True(t, authority.useCase.Verify(ctx, output.Token, "dev1"))
		authority.clock.Add(61 * time.Second)
		assert.False(t, authority.useCase.Verify(ctx, output.Token, "dev1"))
	})
}

func TestDeviceUseCase_Authenticate_RepositoryFailure(t *testing.T) {
	ctx := context.Background()

	signer, err := deviceService.NewTokenSigner([]byte("k"))
	require.NoError(t, err)

	mockClock := clock.NewMock()
	mockClock.Set(testEpoch)
	token := signer.Sign("dev1", testEpoch.Add(time.Hour))

	dbErr := errors.New("db down")
	repo := &mocks.MockDeviceRepository{}
	repo.On("Get", ctx, "dev1").Return(nil, dbErr).Once()

	useCase := NewDeviceUseCase(&config.Config{TokenEnforceLatest: true}, repo, signer, mockClock)

	device, err := useCase.Authenticate(ctx, token, "dev1")
	assert.ErrorIs(t, err, dbErr)
	assert.False(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	assert.Nil(t, device)
	repo.AssertExpectations(t)
}

func TestDeviceUseCase_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Idempotent", func(t *testing.T) {
		authority := newTestAuthority(t, true)
		authority.issue(t, "dev1", 30)

		require.NoError(t, authority.useCase.Revoke(ctx, "dev1"))
		require.NoError(t, authority.useCase.Revoke(ctx, "dev1"))

		device, err := authority.repo.Get(ctx, "dev1")
		require.NoError(t, err)
		assert.True(t, device.Revoked)
	})

	t.Run("Success_UnknownDeviceIsNoop", func(t *testing.T) {
		authority := newTestAuthority(t, true)

		require.NoError(t, authority.useCase.Revoke(ctx, "ghost"))

		_, err := authority.repo.Get(ctx, "ghost")
		assert.ErrorIs(t, err, deviceDomain.ErrDeviceNotFound)
	})
}

func TestDeviceUseCase_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	authority := newTestAuthority(t, true)

	authority.issue(t, "dev2", 30)
	authority.issue(t, "dev1", 30)
	require.NoError(t, authority.useCase.Revoke(ctx, "dev2"))

	devices, err := authority.useCase.List(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "dev1", devices[0].ID)
	assert.False(t, devices[0].Revoked)
	assert.Equal(t, "dev2", devices[1].ID)
	assert.True(t, devices[1].Revoked)

	require.NoError(t, authority.useCase.Delete(ctx, "dev1"))
	assert.ErrorIs(t, authority.useCase.Delete(ctx, "dev1"), deviceDomain.ErrDeviceNotFound)

	devices, err = authority.useCase.List(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}
