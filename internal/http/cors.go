package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// createCORSMiddleware returns nil when CORS is disabled or no origin is configured.
// "*" allows any origin without credentials, which is what browser players need to
// fetch relayed playlists and segments.
func createCORSMiddleware(enabled bool, allowOriginsStr string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOriginsStr)
	if len(origins) == 0 {
		logger.Warn("CORS enabled but no origins configured - CORS will not be applied")
		return nil
	}

	config := cors.Config{
		AllowMethods: []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "Range"},
		ExposeHeaders: []string{
			"X-Request-Id",
			"Content-Length",
			"Content-Range",
		},
		MaxAge: 12 * time.Hour,
	}

	if len(origins) == 1 && origins[0] == "*" {
		config.AllowAllOrigins = true
		logger.Info("CORS enabled for all origins")
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
		logger.Info("CORS enabled",
			slog.Int("origin_count", len(origins)),
			slog.Any("origins", origins))
	}

	return cors.New(config)
}

// parseOrigins splits a comma-separated origin list, dropping blanks.
func parseOrigins(originsStr string) []string {
	var origins []string
	for _, part := range strings.Split(originsStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
