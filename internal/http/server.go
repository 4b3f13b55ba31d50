// Package http provides the public gin server, its router and the metrics server.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/streamgate/internal/config"
	deviceHTTP "github.com/allisson/streamgate/internal/device/http"
	deviceService "github.com/allisson/streamgate/internal/device/service"
	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
	"github.com/allisson/streamgate/internal/metrics"
	relayHTTP "github.com/allisson/streamgate/internal/relay/http"
)

// Server is the public HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates the public server. db may be nil when the registry is in memory.
//
// No read or write timeout is set: relay responses are long-lived streams, whose
// deadlines are enforced by the relay itself.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	readHeaderTimeout time.Duration,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// RouterDeps groups the feature handlers and services mounted by SetupRouter.
type RouterDeps struct {
	DeviceHandler   *deviceHTTP.DeviceHandler
	DeviceUseCase   deviceUseCase.DeviceUseCase
	AdminKeyService deviceService.AdminKeyService
	RelayHandler    *relayHTTP.RelayHandler
	MetricsProvider *metrics.Provider
}

// SetupRouter builds the gin engine. ctx bounds the lifetime of the rate limiter
// cleanup goroutines.
//
// Admin routes are only mounted when cfg.AdminKeyHash is set.
func (s *Server) SetupRouter(ctx context.Context, cfg *config.Config, deps RouterDeps) {
	router := gin.New()

	router.Use(RecoveryMiddleware(s.logger))
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	relay := v1.Group("")
	if cfg.RelayRequireDeviceToken {
		relay.Use(deviceHTTP.DeviceAuthMiddleware(deps.DeviceUseCase, s.logger))
		if cfg.RateLimitEnabled {
			relay.Use(deviceHTTP.DeviceRateLimitMiddleware(
				ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger,
			))
		}
	} else {
		s.logger.Warn("device tokens are not required on relay routes")
		if cfg.RateLimitEnabled {
			relay.Use(deviceHTTP.ClientIPRateLimitMiddleware(
				ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger,
			))
		}
	}
	relay.GET("/proxy", deps.RelayHandler.ProxyHandler)
	relay.GET("/channels", deps.RelayHandler.ListChannelsHandler)
	relay.GET("/channels/:name", deps.RelayHandler.ChannelHandler)

	if cfg.AdminKeyHash == "" {
		s.logger.Warn("ADMIN_KEY_HASH is empty, device admin routes are disabled")
	} else {
		devices := v1.Group("/devices")
		if cfg.RateLimitAdminEnabled {
			devices.Use(deviceHTTP.ClientIPRateLimitMiddleware(
				ctx, cfg.RateLimitAdminRequestsPerSec, cfg.RateLimitAdminBurst, s.logger,
			))
		}
		devices.Use(deviceHTTP.AdminAuthMiddleware(deps.AdminKeyService, cfg.AdminKeyHash, s.logger))

		devices.POST("", deps.DeviceHandler.CreateHandler)
		devices.GET("", deps.DeviceHandler.ListHandler)
		devices.POST("/:id/revoke", deps.DeviceHandler.RevokeHandler)
		devices.DELETE("/:id", deps.DeviceHandler.DeleteHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx
// expires. Open relays are then cut by closing their connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
		return err
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler pings the registry database. The in-memory registry is always ready.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"components": gin.H{"database": "memory"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
