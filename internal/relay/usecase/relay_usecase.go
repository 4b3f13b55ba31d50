package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/allisson/streamgate/internal/config"
	relayDomain "github.com/allisson/streamgate/internal/relay/domain"
)

const (
	defaultBufferSize     = 32 * 1024
	defaultConnectTimeout = 15 * time.Second
)

type relayUseCase struct {
	client         HTTPDoer
	slots          *semaphore.Weighted
	connectTimeout time.Duration
	readTimeout    time.Duration
	buffers        sync.Pool
}

// call carries the cancellation state of a single relay.
type call struct {
	cancel     context.CancelFunc
	clientGone atomic.Bool
	timedOut   atomic.Bool
	idle       atomic.Bool
}

func (r *relayUseCase) Relay(
	ctx context.Context,
	req *relayDomain.Request,
	sink relayDomain.Sink,
) (*relayDomain.Outcome, error) {
	start := time.Now()
	outcome := &relayDomain.Outcome{State: relayDomain.StateIdle}

	abort := func(err error) (*relayDomain.Outcome, error) {
		outcome.State = relayDomain.StateAborted
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome, err
	}

	target, err := relayDomain.ParseTarget(req.TargetURL)
	if err != nil {
		return abort(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &call{cancel: cancel}
	go c.watch(ctx, sink)

	outcome.State = relayDomain.StateConnecting

	// The connect deadline covers slot acquisition, dialing and response headers.
	connectTimer := time.AfterFunc(r.connectTimeout, func() {
		c.timedOut.Store(true)
		cancel()
	})
	defer connectTimer.Stop()

	if err := r.slots.Acquire(ctx, 1); err != nil {
		if c.timedOut.Load() {
			return abort(relayDomain.ErrRelayBusy)
		}
		return abort(relayDomain.ErrClientGone)
	}
	defer r.slots.Release(1)

	upstreamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return abort(fmt.Errorf("%w: %v", relayDomain.ErrInvalidTarget, err))
	}
	if req.Header != nil {
		upstreamReq.Header = req.Header.Clone()
	}

	resp, err := r.client.Do(upstreamReq)
	if !connectTimer.Stop() && c.timedOut.Load() {
		if err == nil {
			_ = resp.Body.Close()
		}
		return abort(relayDomain.ErrUpstreamTimeout)
	}
	if err != nil {
		return abort(c.classifyConnectError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	outcome.State = relayDomain.StateHeadersReceived
	outcome.StatusCode = resp.StatusCode

	sink.WriteHeader(resp.StatusCode, relayDomain.FilterHeaders(resp.Header, resp.Uncompressed))
	if err := sink.Flush(); err != nil {
		cancel()
		sink.Abort()
		return abort(fmt.Errorf("%w: %v", relayDomain.ErrClientGone, err))
	}

	outcome.State = relayDomain.StateStreaming

	if err := r.stream(ctx, c, resp.Body, sink, outcome); err != nil {
		cancel()
		sink.Abort()
		return abort(err)
	}

	outcome.State = relayDomain.StateCompleted
	outcome.Duration = time.Since(start)
	return outcome, nil
}

// stream copies body to sink one buffer at a time. The next read starts only once
// the previous chunk was written and flushed, so a slow client slows the upstream.
func (r *relayUseCase) stream(
	ctx context.Context,
	c *call,
	body io.Reader,
	sink relayDomain.Sink,
	outcome *relayDomain.Outcome,
) error {
	bufPtr := r.buffers.Get().(*[]byte)
	defer r.buffers.Put(bufPtr)
	buf := *bufPtr

	var idleTimer *time.Timer
	if r.readTimeout > 0 {
		idleTimer = time.AfterFunc(r.readTimeout, func() {
			c.idle.Store(true)
			c.cancel()
		})
		defer idleTimer.Stop()
	}

	for {
		select {
		case <-sink.Done():
			c.clientGone.Store(true)
			return relayDomain.ErrClientGone
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			// Time spent blocked on the client is not upstream idleness.
			if idleTimer != nil && !idleTimer.Stop() {
				return c.classifyStreamError(ctx, readErr, r.readTimeout)
			}

			written, writeErr := sink.Write(buf[:n])
			outcome.BytesWritten += int64(written)
			if writeErr == nil && written < n {
				writeErr = io.ErrShortWrite
			}
			if writeErr == nil {
				writeErr = sink.Flush()
			}
			if writeErr != nil {
				c.clientGone.Store(true)
				return fmt.Errorf("%w: %v", relayDomain.ErrClientGone, writeErr)
			}

			if idleTimer != nil {
				idleTimer.Reset(r.readTimeout)
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return c.classifyStreamError(ctx, readErr, r.readTimeout)
		}
	}
}

// watch cancels the call as soon as the client goes away.
func (c *call) watch(ctx context.Context, sink relayDomain.Sink) {
	select {
	case <-sink.Done():
		c.clientGone.Store(true)
		c.cancel()
	case <-ctx.Done():
	}
}

func (c *call) classifyConnectError(err error) error {
	switch {
	case c.clientGone.Load():
		return relayDomain.ErrClientGone
	case errors.Is(err, context.Canceled):
		return relayDomain.ErrClientGone
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", relayDomain.ErrUpstreamTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", relayDomain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", relayDomain.ErrUpstreamUnreachable, err)
}

func (c *call) classifyStreamError(ctx context.Context, err error, readTimeout time.Duration) error {
	switch {
	case c.clientGone.Load():
		return relayDomain.ErrClientGone
	case c.idle.Load():
		return fmt.Errorf("%w: no data for %s", relayDomain.ErrMidStreamFailure, readTimeout)
	case err == nil && ctx.Err() != nil:
		return fmt.Errorf("%w: %v", relayDomain.ErrMidStreamFailure, ctx.Err())
	case err == nil:
		return relayDomain.ErrMidStreamFailure
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		// The parent context ended, which is the inbound request going away.
		return fmt.Errorf("%w: %v", relayDomain.ErrClientGone, err)
	default:
		return fmt.Errorf("%w: %v", relayDomain.ErrMidStreamFailure, err)
	}
}

// NewRelayUseCase creates a RelayUseCase. At most cfg.RelayMaxConcurrent relays run
// at once; callers beyond that wait up to the connect timeout for a slot.
func NewRelayUseCase(cfg *config.Config, client HTTPDoer) RelayUseCase {
	bufferSize := cfg.RelayBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	connectTimeout := cfg.RelayConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	maxConcurrent := int64(cfg.RelayMaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &relayUseCase{
		client:         client,
		slots:          semaphore.NewWeighted(maxConcurrent),
		connectTimeout: connectTimeout,
		readTimeout:    cfg.RelayReadTimeout,
		buffers: sync.Pool{
			New: func() any {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}
