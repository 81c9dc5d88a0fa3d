package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"admin-dashboard/internal/http/middleware"
	"admin-dashboard/internal/ratelimit"
	apperrors "admin-dashboard/pkg/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NewErrorHandler maps sentinel errors to status codes, hides internal
// details and logs with the request ID.
func NewErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := classify(err)

		var rl *apperrors.RateLimitError
		if errors.As(err, &rl) {
			c.Response().Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(rl.RetryAfter)))
		}

		requestID := middleware.GetRequestID(c)
		if requestID == "" {
			requestID = "unknown"
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			log.Error("internal_server_error", fields...)
			if code == http.StatusInternalServerError {
				message = "Internal server error"
			}
		} else {
			log.Debug("client_error", fields...)
		}

		var sendErr error
		if c.Request().Method == http.MethodHead {
			sendErr = c.NoContent(code)
		} else {
			sendErr = c.JSON(code, map[string]interface{}{
				"error":      message,
				"request_id": requestID,
			})
		}
		if sendErr != nil {
			log.Error("write error response", zap.Error(sendErr))
		}
	}
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	code := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, apperrors.ErrRateLimited):
		var rl *apperrors.RateLimitError
		if errors.As(err, &rl) {
			return http.StatusTooManyRequests, ratelimit.WaitMessage(rl.RetryAfter)
		}
		code, message = http.StatusTooManyRequests, "Too many attempts"
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		code, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, apperrors.ErrInvalidOTP):
		code, message = http.StatusUnauthorized, "Invalid verification code"
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		code, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrInsufficientPerms):
		code, message = http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, apperrors.ErrBadRequest):
		code, message = http.StatusBadRequest, "Bad request"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = http.StatusBadRequest, "Invalid input"
	case errors.Is(err, apperrors.ErrValidation):
		code, message = http.StatusBadRequest, "Validation error"
	case errors.Is(err, apperrors.ErrConflict):
		code, message = http.StatusConflict, "Resource already exists"
	case errors.Is(err, apperrors.ErrUpstream):
		code, message = http.StatusBadGateway, "Upstream service error"
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && code < http.StatusInternalServerError {
		message = appErr.Message
	}
	return code, message
}
