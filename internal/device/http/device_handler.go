package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	deviceDomain "github.com/allisson/streamgate/internal/device/domain"
	"github.com/allisson/streamgate/internal/device/http/dto"
	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
	"github.com/allisson/streamgate/internal/httputil"
	customValidation "github.com/allisson/streamgate/internal/validation"
)

// DeviceHandler handles the device admin API.
type DeviceHandler struct {
	deviceUseCase deviceUseCase.DeviceUseCase
	logger        *slog.Logger
}

// NewDeviceHandler creates a new device handler.
func NewDeviceHandler(deviceUseCase deviceUseCase.DeviceUseCase, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{
		deviceUseCase: deviceUseCase,
		logger:        logger,
	}
}

// CreateHandler creates a device or re-issues its token.
// POST /v1/devices - Returns 201 Created with the token and its Unix expiry.
func (h *DeviceHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateDeviceRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.deviceUseCase.Issue(c.Request.Context(), &deviceDomain.IssueTokenInput{
		DeviceID:   req.DeviceID,
		TTLMinutes: req.TTLMinutes,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("device token issued",
		slog.String("device_id", output.DeviceID),
		slog.Int64("expires_at", output.ExpiresAt.Unix()))

	c.JSON(http.StatusCreated, dto.MapIssueOutputToResponse(output))
}

// RevokeHandler revokes a device. Unknown devices are acknowledged as well.
// POST /v1/devices/:id/revoke - Returns 200 OK with {"success": true}.
func (h *DeviceHandler) RevokeHandler(c *gin.Context) {
	deviceID := c.Param("id")

	if err := h.deviceUseCase.Revoke(c.Request.Context(), deviceID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("device revoked", slog.String("device_id", deviceID))

	c.JSON(http.StatusOK, dto.RevokeDeviceResponse{Success: true})
}

// ListHandler lists the registry.
// GET /v1/devices - Returns 200 OK with {"devices": {id: {...}}}.
func (h *DeviceHandler) ListHandler(c *gin.Context) {
	devices, err := h.deviceUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDevicesToListResponse(devices))
}

// DeleteHandler removes a device from the registry.
// DELETE /v1/devices/:id - Returns 204 No Content, or 404 when the device is unknown.
func (h *DeviceHandler) DeleteHandler(c *gin.Context) {
	deviceID := c.Param("id")

	if err := h.deviceUseCase.Delete(c.Request.Context(), deviceID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("device deleted", slog.String("device_id", deviceID))

	c.Status(http.StatusNoContent)
}
