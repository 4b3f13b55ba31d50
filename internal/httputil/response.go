// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/streamgate/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorStatus maps a domain error to its HTTP status code and client-facing body.
// The body never carries err.Error() for caller or upstream faults, so secrets,
// tokens and upstream error text cannot reach the client.
func ErrorStatus(err error) (int, ErrorResponse) {
	switch {
	case apperrors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "The request is malformed",
		}

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication is required",
		}

	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "You don't have permission to access this resource",
		}

	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		}

	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: "A conflict occurred with existing data",
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrUpstreamUnreachable):
		return http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_unreachable",
			Message: "Proxy fetch failed",
		}

	case apperrors.Is(err, apperrors.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "The service is busy, retry later",
		}

	case apperrors.Is(err, apperrors.ErrGatewayTimeout):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error:   "upstream_timeout",
			Message: "Upstream did not respond in time",
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}
}

// HandleErrorGin maps domain errors to HTTP status codes and returns a JSON response using Gin.
// Client errors are logged at debug level, upstream faults at warn and internal faults at error.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := ErrorStatus(err)

	if logger != nil {
		attrs := []any{
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		}
		switch {
		case statusCode >= http.StatusInternalServerError && statusCode != http.StatusInternalServerError:
			logger.Warn("request failed", attrs...)
		case statusCode >= http.StatusInternalServerError:
			logger.Error("request failed", attrs...)
		default:
			logger.Debug("request failed", attrs...)
		}
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	errorResponse := ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	}

	c.JSON(http.StatusBadRequest, errorResponse)
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors using Gin.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	errorResponse := ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	}

	c.JSON(http.StatusUnprocessableEntity, errorResponse)
}
