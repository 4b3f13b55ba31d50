// Package http exposes the relay over gin.
package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/allisson/streamgate/internal/httputil"
	relayDomain "github.com/allisson/streamgate/internal/relay/domain"
	relayUseCase "github.com/allisson/streamgate/internal/relay/usecase"
)

// RelayHandler serves relay routes.
type RelayHandler struct {
	relayUseCase relayUseCase.RelayUseCase
	selector     *Selector
	logger       *slog.Logger
}

// NewRelayHandler creates a new relay handler.
func NewRelayHandler(
	relayUseCase relayUseCase.RelayUseCase,
	selector *Selector,
	logger *slog.Logger,
) *RelayHandler {
	return &RelayHandler{
		relayUseCase: relayUseCase,
		selector:     selector,
		logger:       logger,
	}
}

// ProxyHandler relays the target given in the url query parameter.
// GET /v1/proxy?url=<absolute http(s) url>
func (h *RelayHandler) ProxyHandler(c *gin.Context) {
	req, err := h.selector.ProxyRequest(c.Query("url"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	h.relay(c, req)
}

// ListChannelsHandler lists the channel names configured in RELAY_CHANNELS.
// GET /v1/channels
func (h *RelayHandler) ListChannelsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.selector.Channels()})
}

// ChannelHandler relays a channel configured in RELAY_CHANNELS.
// GET /v1/channels/:name
func (h *RelayHandler) ChannelHandler(c *gin.Context) {
	req, err := h.selector.ChannelRequest(c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	h.relay(c, req)
}

func (h *RelayHandler) relay(c *gin.Context, req *relayDomain.Request) {
	if err := h.selector.Authorize(c.GetHeader("User-Agent")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	sink := newGinSink(c)
	outcome, err := h.relayUseCase.Relay(c.Request.Context(), req, sink)
	if outcome == nil {
		outcome = &relayDomain.Outcome{State: relayDomain.StateAborted, Err: err}
	}

	logger := h.logger.With(
		slog.String("request_id", requestid.Get(c)),
		slog.String("upstream_host", upstreamHost(req.TargetURL)),
		slog.String("state", outcome.State.String()),
		slog.Int("upstream_status", outcome.StatusCode),
		slog.Int64("bytes", outcome.BytesWritten),
		slog.Duration("duration", outcome.Duration),
	)

	switch {
	case err == nil:
		logger.Debug("relay completed")

	case relayDomain.IsClientGone(err):
		logger.Debug("client left during relay")
		c.Abort()

	case !outcome.HeadersCommitted():
		httputil.HandleErrorGin(c, err, logger)

	default:
		logger.Error("relay failed mid-stream", slog.Any("error", err))
	}

	sink.finish()
}

// upstreamHost keeps query strings, which may carry upstream credentials, out of logs.
func upstreamHost(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Host
}
