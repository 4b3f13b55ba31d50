// Package mocks provides mock implementations of the relay use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	relayDomain "github.com/allisson/streamgate/internal/relay/domain"
)

// MockRelayUseCase is a mock implementation of RelayUseCase for testing.
type MockRelayUseCase struct {
	mock.Mock
}

// Relay mocks the Relay method of RelayUseCase.
func (m *MockRelayUseCase) Relay(
	ctx context.Context,
	req *relayDomain.Request,
	sink relayDomain.Sink,
) (*relayDomain.Outcome, error) {
	args := m.Called(ctx, req, sink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*relayDomain.Outcome), args.Error(1)
}
