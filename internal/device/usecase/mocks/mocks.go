// Package mocks provides mock implementations of the device use case contracts for testing.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// MockDeviceUseCase is a mock implementation of DeviceUseCase for testing.
type MockDeviceUseCase struct {
	mock.Mock
}

// Issue mocks the Issue method of DeviceUseCase.
func (m *MockDeviceUseCase) Issue(
	ctx context.Context,
	input *deviceDomain.IssueTokenInput,
) (*deviceDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deviceDomain.IssueTokenOutput), args.Error(1)
}

// Verify mocks the Verify method of DeviceUseCase.
func (m *MockDeviceUseCase) Verify(ctx context.Context, token, deviceID string) bool {
	args := m.Called(ctx, token, deviceID)
	return args.Bool(0)
}

// Authenticate mocks the Authenticate method of DeviceUseCase.
func (m *MockDeviceUseCase) Authenticate(
	ctx context.Context,
	token, deviceID string,
) (*deviceDomain.Device, error) {
	args := m.Called(ctx, token, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deviceDomain.Device), args.Error(1)
}

// Revoke mocks the Revoke method of DeviceUseCase.
func (m *MockDeviceUseCase) Revoke(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// List mocks the List method of DeviceUseCase.
func (m *MockDeviceUseCase) List(ctx context.Context) ([]*deviceDomain.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deviceDomain.Device), args.Error(1)
}

// Delete mocks the Delete method of DeviceUseCase.
func (m *MockDeviceUseCase) Delete(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

// MockDeviceRepository is a mock implementation of DeviceRepository for testing.
type MockDeviceRepository struct {
	mock.Mock
}

// Upsert mocks the Upsert method of DeviceRepository.
func (m *MockDeviceRepository) Upsert(ctx context.Context, device *deviceDomain.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

// Get mocks the Get method of DeviceRepository.
func (m *MockDeviceRepository) Get(ctx context.Context, deviceID string) (*deviceDomain.Device, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deviceDomain.Device), args.Error(1)
}

// Revoke mocks the Revoke method of DeviceRepository.
func (m *MockDeviceRepository) Revoke(ctx context.Context, deviceID string, revokedAt time.Time) error {
	args := m.Called(ctx, deviceID, revokedAt)
	return args.Error(0)
}

// List mocks the List method of DeviceRepository.
func (m *MockDeviceRepository) List(ctx context.Context) ([]*deviceDomain.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deviceDomain.Device), args.Error(1)
}

// Delete mocks the Delete method of DeviceRepository.
func (m *MockDeviceRepository) Delete(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}
