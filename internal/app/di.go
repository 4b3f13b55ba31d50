// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/allisson/streamgate/internal/config"
	"github.com/allisson/streamgate/internal/database"
	"github.com/allisson/streamgate/internal/http"
	"github.com/allisson/streamgate/internal/metrics"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	clock           clock.Clock
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	relayMetrics    metrics.RelayMetrics

	// Device components
	deviceComponents

	// Relay components
	relayComponents

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	clockInit           sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	relayMetricsInit    sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// Clock returns the wall clock used for token expiry.
func (c *Container) Clock() clock.Clock {
	c.clockInit.Do(func() {
		c.clock = clock.New()
	})
	return c.clock
}

// DB returns the database connection.
// It returns a nil connection without error when DB_DRIVER is "memory".
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		var err error
		c.db, err = c.initDB()
		c.recordError("db", err)
	})
	return c.db, c.storedError("db")
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		var err error
		c.metricsProvider, err = c.initMetricsProvider()
		c.recordError("metricsProvider", err)
	})
	return c.metricsProvider, c.storedError("metricsProvider")
}

// BusinessMetrics returns the operation counters shared by the use case decorators.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		var err error
		c.businessMetrics, err = c.initBusinessMetrics()
		c.recordError("businessMetrics", err)
	})
	return c.businessMetrics, c.storedError("businessMetrics")
}

// RelayMetrics returns the stream level relay instruments.
func (c *Container) RelayMetrics() (metrics.RelayMetrics, error) {
	c.relayMetricsInit.Do(func() {
		var err error
		c.relayMetrics, err = c.initRelayMetrics()
		c.recordError("relayMetrics", err)
	})
	return c.relayMetrics, c.storedError("relayMetrics")
}

// HTTPServer returns the public HTTP server. The router is mounted by the caller
// through SetupRouter so rate limiter goroutines share the server context.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		var err error
		c.httpServer, err = c.initHTTPServer()
		c.recordError("httpServer", err)
	})
	return c.httpServer, c.storedError("httpServer")
}

// RouterDeps gathers every handler the public router mounts.
func (c *Container) RouterDeps() (http.RouterDeps, error) {
	deviceHandler, err := c.DeviceHandler()
	if err != nil {
		return http.RouterDeps{}, fmt.Errorf("failed to get device handler for router: %w", err)
	}

	deviceUseCase, err := c.DeviceUseCase()
	if err != nil {
		return http.RouterDeps{}, fmt.Errorf("failed to get device use case for router: %w", err)
	}

	relayHandler, err := c.RelayHandler()
	if err != nil {
		return http.RouterDeps{}, fmt.Errorf("failed to get relay handler for router: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return http.RouterDeps{}, fmt.Errorf("failed to get metrics provider for router: %w", err)
	}

	return http.RouterDeps{
		DeviceHandler:   deviceHandler,
		DeviceUseCase:   deviceUseCase,
		AdminKeyService: c.AdminKeyService(),
		RelayHandler:    relayHandler,
		MetricsProvider: metricsProvider,
	}, nil
}

// MetricsServer returns the metrics server.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		var err error
		c.metricsServer, err = c.initMetricsServer()
		c.recordError("metricsServer", err)
	})
	return c.metricsServer, c.storedError("metricsServer")
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// recordError keeps the first initialization error of key.
func (c *Container) recordError(key string, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[key] = err
}

// storedError returns the error recorded by the first initialization of key.
func (c *Container) storedError(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[key]
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	if c.config.DBDriver == "memory" {
		return nil, nil
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initRelayMetrics() (metrics.RelayMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpRelayMetrics(), nil
	}
	return metrics.NewRelayMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initHTTPServer creates the HTTP server. Readiness pings the database when one is configured.
func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	return http.NewServer(
		db,
		c.config.ServerHost,
		c.config.ServerPort,
		c.config.ServerReadHeaderTimeout,
		c.Logger(),
	), nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
