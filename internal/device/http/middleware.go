package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	deviceService "github.com/allisson/streamgate/internal/device/service"
	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
	apperrors "github.com/allisson/streamgate/internal/errors"
	"github.com/allisson/streamgate/internal/httputil"
)

// AdminAuthMiddleware requires "Authorization: Bearer <admin key>" matching the configured
// Argon2id hash. The "Bearer" prefix is case-insensitive.
func AdminAuthMiddleware(
	adminKeyService deviceService.AdminKeyService,
	adminKeyHash string,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("admin authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("admin authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainKey := authHeader[len(bearerPrefix):]
		if !adminKeyService.CompareKey(plainKey, adminKeyHash) {
			logger.Debug("admin authentication failed: key mismatch",
				slog.String("client_ip", c.ClientIP()))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// DeviceAuthMiddleware authenticates relay requests from the identification string
// carried in the User-Agent header.
//
// Error handling:
//   - User-Agent not ending in ";device:token)" → 400 Bad Request
//   - Invalid, expired, revoked or superseded token → 401 Unauthorized
//   - Registry failure → 500 Internal Server Error
//
// Token values are never logged.
func DeviceAuthMiddleware(deviceUseCase deviceUseCase.DeviceUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, token, ok := deviceDomain.ParseIdentification(c.GetHeader("User-Agent"))
		if !ok {
			logger.Debug("device authentication failed: malformed identification string")
			httputil.HandleErrorGin(c, deviceDomain.ErrIdentificationMalformed, logger)
			c.Abort()
			return
		}

		device, err := deviceUseCase.Authenticate(c.Request.Context(), token, deviceID)
		if err != nil {
			logger.Debug("device authentication failed",
				slog.String("device_id", deviceID),
				slog.String("reason", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithDevice(c.Request.Context(), device))
		c.Next()
	}
}
