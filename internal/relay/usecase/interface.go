// Package usecase implements the streaming relay between one upstream response and one client.
package usecase

import (
	"context"
	"net/http"

	relayDomain "github.com/allisson/streamgate/internal/relay/domain"
)

// HTTPDoer sends the outbound request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RelayUseCase streams one upstream response into a sink.
type RelayUseCase interface {
	// Relay fetches req.TargetURL and copies the response to sink until the body
	// ends, the client leaves or the upstream fails. The returned error is the
	// outcome's Err and is nil only when the outcome is Completed. No retries are made.
	Relay(ctx context.Context, req *relayDomain.Request, sink relayDomain.Sink) (*relayDomain.Outcome, error)
}
