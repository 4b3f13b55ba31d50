// Package domain defines the types of a single upstream-to-client relay.
package domain

import (
	"net/http"
	"time"
)

// State is the lifecycle position of one relay call.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateHeadersReceived
	StateStreaming
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateHeadersReceived:
		return "HeadersReceived"
	case StateStreaming:
		return "Streaming"
	case StateCompleted:
		return "Completed"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Request describes the outbound fetch. Header is sent as-is.
type Request struct {
	TargetURL string
	Header    http.Header
}

// Outcome is the terminal report of a relay call.
//
// StatusCode is zero when no upstream response was received. Err is nil only
// for StateCompleted.
type Outcome struct {
	State        State
	StatusCode   int
	BytesWritten int64
	Duration     time.Duration
	Err          error
}

// HeadersCommitted reports whether a status line was sent to the client, after
// which no error response can be written.
func (o *Outcome) HeadersCommitted() bool {
	return o.State == StateStreaming || o.State == StateCompleted ||
		(o.State == StateAborted && o.StatusCode != 0)
}

// Sink is the client side of a relay.
//
// WriteHeader is called at most once and before any Write. Done is closed when
// the client goes away. Abort drops the client connection without completing the
// response and must be safe to call after Done is closed.
type Sink interface {
	WriteHeader(statusCode int, header http.Header)
	Write(p []byte) (int, error)
	Flush() error
	Done() <-chan struct{}
	Abort()
}
