package usecase

import (
	"context"
	"time"

	"github.com/allisson/streamgate/internal/metrics"
	relayDomain "github.com/allisson/streamgate/internal/relay/domain"
)

// relayUseCaseWithMetrics decorates RelayUseCase with business and streaming metrics.
type relayUseCaseWithMetrics struct {
	next     RelayUseCase
	business metrics.BusinessMetrics
	relay    metrics.RelayMetrics
}

// NewRelayUseCaseWithMetrics wraps a RelayUseCase with metrics recording.
func NewRelayUseCaseWithMetrics(
	useCase RelayUseCase,
	business metrics.BusinessMetrics,
	relay metrics.RelayMetrics,
) RelayUseCase {
	return &relayUseCaseWithMetrics{
		next:     useCase,
		business: business,
		relay:    relay,
	}
}

// Relay records the in-flight gauge, relayed bytes and the terminal state.
// A client leaving mid-stream is counted as "client_gone" rather than "error".
func (r *relayUseCaseWithMetrics) Relay(
	ctx context.Context,
	req *relayDomain.Request,
	sink relayDomain.Sink,
) (*relayDomain.Outcome, error) {
	start := time.Now()
	r.relay.StreamStarted(ctx)

	outcome, err := r.next.Relay(ctx, req, sink)

	status := "success"
	switch {
	case err == nil:
	case relayDomain.IsClientGone(err):
		status = "client_gone"
	default:
		status = "error"
	}

	// The request context may already be cancelled; metrics must still be recorded.
	mctx := context.WithoutCancel(ctx)
	if outcome != nil {
		r.relay.BytesRelayed(mctx, outcome.BytesWritten)
		r.relay.StreamFinished(mctx, outcome.State.String(), outcome.StatusCode)
	} else {
		r.relay.StreamFinished(mctx, relayDomain.StateAborted.String(), 0)
	}
	r.business.RecordOperation(mctx, "relay", "relay_stream", status)
	r.business.RecordDuration(mctx, "relay", "relay_stream", time.Since(start), status)

	return outcome, err
}
