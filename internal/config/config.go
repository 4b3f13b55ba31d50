// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int
	// ServerReadHeaderTimeout bounds how long a client may take to send request headers.
	ServerReadHeaderTimeout time.Duration
	// ServerShutdownTimeout bounds graceful shutdown. Open relays are cut when it expires.
	ServerShutdownTimeout time.Duration

	// DBDriver is the device registry backend ("memory", "postgres", "mysql", "sqlite").
	DBDriver string
	// DBConnectionString is the connection string for the database.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// TokenSigningKey is the shared HMAC secret used to sign device tokens.
	TokenSigningKey string
	// TokenSigningKeyCiphertext is a base64 KMS ciphertext of the signing key.
	// When set it takes precedence over TokenSigningKey.
	TokenSigningKeyCiphertext string
	// TokenDefaultTTLMinutes is used when a create request has no positive TTL.
	TokenDefaultTTLMinutes int
	// TokenEnforceLatest rejects tokens that are not the most recently issued one for the device.
	TokenEnforceLatest bool

	// AdminKeyHash is the Argon2id hash of the admin key. Admin routes are disabled when empty.
	AdminKeyHash string

	// RelayRequireDeviceToken gates relay routes behind device token verification.
	RelayRequireDeviceToken bool
	// RelayConnectTimeout bounds pool acquisition, dialing and waiting for upstream headers.
	RelayConnectTimeout time.Duration
	// RelayReadTimeout bounds the gap between two upstream body reads. Zero disables it.
	RelayReadTimeout time.Duration
	// RelayMaxConnsPerHost limits outbound connections per upstream host.
	RelayMaxConnsPerHost int
	// RelayMaxIdleConnsPerHost limits idle keep-alive connections per upstream host.
	RelayMaxIdleConnsPerHost int
	// RelayIdleConnTimeout is how long an idle upstream connection is kept.
	RelayIdleConnTimeout time.Duration
	// RelayMaxConcurrent limits relays in flight across all upstream hosts.
	RelayMaxConcurrent int
	// RelayBufferSize is the copy buffer size in bytes.
	RelayBufferSize int
	// RelayLocalAddressV4 optionally binds connections to IPv4 upstreams to a local IP.
	RelayLocalAddressV4 string
	// RelayLocalAddressV6 optionally binds connections to IPv6 upstreams to a local IP.
	RelayLocalAddressV6 string
	// RelayUserAgent is sent upstream as User-Agent.
	RelayUserAgent string
	// RelayReferer is sent upstream as Referer when not empty.
	RelayReferer string
	// RelayOrigin is sent upstream as Origin when not empty.
	RelayOrigin string
	// RelayAccept is sent upstream as Accept.
	RelayAccept string
	// RelayAllowedAgents is a comma-separated list of User-Agent substrings allowed to relay.
	// An empty list allows every agent.
	RelayAllowedAgents string
	// RelayChannels is a comma-separated list of name=url pairs served under /v1/channels/:name.
	RelayChannels string

	// RateLimitEnabled indicates whether per-device rate limiting for relay endpoints is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of relay requests allowed per second per device.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for relay rate limiting.
	RateLimitBurst int

	// RateLimitAdminEnabled indicates whether per-IP rate limiting for admin endpoints is enabled.
	RateLimitAdminEnabled bool
	// RateLimitAdminRequestsPerSec is the number of admin requests allowed per second per IP.
	RateLimitAdminRequestsPerSec float64
	// RateLimitAdminBurst is the burst size for admin rate limiting.
	RateLimitAdminBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS, or "*".
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// KMSKeyURI is the URI of the key used to decrypt TokenSigningKeyCiphertext.
	KMSKeyURI string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost:              env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort:              env.GetInt("SERVER_PORT", 3000),
		ServerReadHeaderTimeout: env.GetDuration("SERVER_READ_HEADER_TIMEOUT_SECONDS", 15, time.Second),
		ServerShutdownTimeout:   env.GetDuration("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30, time.Second),

		// Database configuration
		DBDriver:             env.GetString("DB_DRIVER", "memory"),
		DBConnectionString:   env.GetString("DB_CONNECTION_STRING", ""),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Device tokens
		TokenSigningKey:           env.GetString("TOKEN_SIGNING_KEY", ""),
		TokenSigningKeyCiphertext: env.GetString("TOKEN_SIGNING_KEY_CIPHERTEXT", ""),
		TokenDefaultTTLMinutes:    env.GetInt("TOKEN_DEFAULT_TTL_MINUTES", 60),
		TokenEnforceLatest:        env.GetBool("TOKEN_ENFORCE_LATEST", true),

		// Admin
		AdminKeyHash: env.GetString("ADMIN_KEY_HASH", ""),

		// Relay
		RelayRequireDeviceToken:  env.GetBool("RELAY_REQUIRE_DEVICE_TOKEN", true),
		RelayConnectTimeout:      env.GetDuration("RELAY_CONNECT_TIMEOUT_SECONDS", 15, time.Second),
		RelayReadTimeout:         env.GetDuration("RELAY_READ_TIMEOUT_SECONDS", 15, time.Second),
		RelayMaxConnsPerHost:     env.GetInt("RELAY_MAX_CONNS_PER_HOST", 200),
		RelayMaxIdleConnsPerHost: env.GetInt("RELAY_MAX_IDLE_CONNS_PER_HOST", 50),
		RelayIdleConnTimeout:     env.GetDuration("RELAY_IDLE_CONN_TIMEOUT_SECONDS", 90, time.Second),
		RelayMaxConcurrent:       env.GetInt("RELAY_MAX_CONCURRENT", 300),
		RelayBufferSize:          env.GetInt("RELAY_BUFFER_SIZE", 32*1024),
		RelayLocalAddressV4:      env.GetString("RELAY_LOCAL_ADDRESS_V4", ""),
		RelayLocalAddressV6:      env.GetString("RELAY_LOCAL_ADDRESS_V6", ""),
		RelayUserAgent: env.GetString(
			"RELAY_USER_AGENT",
			"Mozilla/5.0 (Android 13; Mobile) AppleWebKit/537.36 Chrome/120",
		),
		RelayReferer:       env.GetString("RELAY_REFERER", ""),
		RelayOrigin:        env.GetString("RELAY_ORIGIN", ""),
		RelayAccept:        env.GetString("RELAY_ACCEPT", "*/*"),
		RelayAllowedAgents: env.GetString("RELAY_ALLOWED_AGENTS", ""),
		RelayChannels:      env.GetString("RELAY_CHANNELS", ""),

		// Rate Limiting (relay endpoints, keyed by device)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 20.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 40),

		// Rate Limiting for admin endpoints (IP-based)
		RateLimitAdminEnabled:        env.GetBool("RATE_LIMIT_ADMIN_ENABLED", true),
		RateLimitAdminRequestsPerSec: env.GetFloat64("RATE_LIMIT_ADMIN_REQUESTS_PER_SEC", 2.0),
		RateLimitAdminBurst:          env.GetInt("RATE_LIMIT_ADMIN_BURST", 5),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", true),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", "*"),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "streamgate"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// KMS configuration
		KMSKeyURI: env.GetString("KMS_KEY_URI", ""),
	}
}

// Validate rejects settings that would otherwise be silently clamped or overflow.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TokenDefaultTTLMinutes,
			validation.Min(1),
			validation.Max(deviceDomain.MaxTTLMinutes),
		),
	)
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
