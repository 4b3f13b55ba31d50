package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/streamgate/internal/errors"
	"github.com/allisson/streamgate/internal/httputil"
)

// rateLimiterStore holds keyed token-bucket limiters with periodic cleanup.
type rateLimiterStore struct {
	limiters sync.Map // map[string]*rateLimiterEntry
	rps      float64
	burst    int
}

// rateLimiterEntry holds a rate limiter and last access time for cleanup.
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

func newRateLimiterStore(ctx context.Context, rps float64, burst int) *rateLimiterStore {
	store := &rateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	// Stale limiters are swept every 5 minutes until ctx is done.
	go store.cleanupStale(ctx, 5*time.Minute, time.Hour)

	return store
}

// DeviceRateLimitMiddleware enforces per-device rate limiting on relay routes.
// MUST be used after DeviceAuthMiddleware.
//
// Returns 429 Too Many Requests with a Retry-After header when the limit is exceeded.
func DeviceRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(ctx, rps, burst)

	return func(c *gin.Context) {
		device, ok := GetDevice(c.Request.Context())
		if !ok || device == nil {
			logger.Error("rate limit middleware: no authenticated device in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !store.allow(c, device.ID) {
			logger.Debug("device rate limit exceeded", slog.String("device_id", device.ID))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClientIPRateLimitMiddleware enforces per-IP rate limiting. It guards the admin API
// against key guessing, and relay routes when device tokens are not required.
//
// c.ClientIP() honours X-Forwarded-For and X-Real-IP according to the engine's trusted proxies.
func ClientIPRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(ctx, rps, burst)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !store.allow(c, clientIP) {
			logger.Debug("client ip rate limit exceeded", slog.String("client_ip", clientIP))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests from this IP. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// allow consumes one token for key, setting Retry-After when the bucket is empty.
func (s *rateLimiterStore) allow(c *gin.Context, key string) bool {
	limiter := s.getLimiter(key)
	if limiter.Allow() {
		return true
	}

	reservation := limiter.Reserve()
	retryAfter := int(reservation.Delay().Seconds())
	reservation.Cancel()

	c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	return false
}

// getLimiter retrieves or creates the rate limiter for key.
func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	if val, ok := s.limiters.Load(key); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &rateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: time.Now(),
	}

	actual, _ := s.limiters.LoadOrStore(key, entry)
	return actual.(*rateLimiterEntry).limiter
}

// cleanupStale removes limiters not accessed within maxIdle.
func (s *rateLimiterStore) cleanupStale(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now().Add(-maxIdle))
		}
	}
}

func (s *rateLimiterStore) sweep(threshold time.Time) {
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*rateLimiterEntry)
		entry.mu.Lock()
		shouldDelete := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if shouldDelete {
			s.limiters.Delete(key)
		}
		return true
	})
}
