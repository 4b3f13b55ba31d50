package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// CustomLoggerMiddleware logs one line per request. The query string is left out
// because relay targets may carry upstream credentials. Relays that end with
// http.ErrAbortHandler are logged with aborted=true before the panic moves on.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		defer func() {
			rec := recover()
			if rec != nil && rec != http.ErrAbortHandler {
				panic(rec)
			}
			logRequest(logger, c, start, rec != nil)
			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

func logRequest(logger *slog.Logger, c *gin.Context, start time.Time, aborted bool) {
	attrs := []any{
		slog.String("request_id", requestid.Get(c)),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", c.Writer.Status()),
		slog.Int("bytes", c.Writer.Size()),
		slog.Duration("duration", time.Since(start)),
		slog.String("client_ip", c.ClientIP()),
	}
	if aborted {
		attrs = append(attrs, slog.Bool("aborted", true))
	}
	if len(c.Errors) > 0 {
		attrs = append(attrs, slog.String("errors", c.Errors.String()))
	}

	logger.Info("http request", attrs...)
}

// RecoveryMiddleware turns panics into 500 responses. http.ErrAbortHandler is
// re-raised so net/http drops the connection of an aborted relay.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error("panic recovered",
				slog.Any("error", rec),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "An internal error occurred",
			})
		}()

		c.Next()
	}
}
