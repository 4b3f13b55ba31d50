package domain

import (
	"github.com/allisson/streamgate/internal/errors"
)

// Relay errors.
var (
	// ErrInvalidTarget is returned when the target is not an absolute http(s) URL.
	ErrInvalidTarget = errors.Wrap(errors.ErrBadRequest, "invalid relay target")

	// ErrTargetMissing is returned when the request names no target.
	ErrTargetMissing = errors.Wrap(errors.ErrBadRequest, "relay target missing")

	// ErrChannelNotFound is returned for an unknown static channel name.
	ErrChannelNotFound = errors.Wrap(errors.ErrNotFound, "channel not found")

	// ErrAgentNotAllowed is returned when the client User-Agent is not on the allow-list.
	ErrAgentNotAllowed = errors.Wrap(errors.ErrForbidden, "user agent not allowed")

	// ErrUpstreamUnreachable is returned when dialing or the request itself failed before headers.
	ErrUpstreamUnreachable = errors.Wrap(errors.ErrUpstreamUnreachable, "upstream unreachable")

	// ErrUpstreamTimeout is returned when no response headers arrived before the connect deadline.
	ErrUpstreamTimeout = errors.Wrap(errors.ErrGatewayTimeout, "upstream timeout")

	// ErrRelayBusy is returned when no relay slot frees up before the connect deadline.
	ErrRelayBusy = errors.Wrap(errors.ErrUnavailable, "relay capacity exhausted")

	// ErrMidStreamFailure is reported when the upstream body fails after headers were committed.
	ErrMidStreamFailure = errors.New("upstream failed mid-stream")

	// ErrClientGone is reported when the client disconnected or a write to it failed.
	ErrClientGone = errors.New("client gone")
)

// IsClientGone reports whether err means the client went away.
func IsClientGone(err error) bool {
	return errors.Is(err, ErrClientGone)
}
