package handler

import (
	"errors"
	"net/http"

	apperrors "admin-dashboard/pkg/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MapToPublicError maps upstream and internal errors to public-facing HTTP
// status codes and messages.
func MapToPublicError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, apperrors.ErrInvalidOTP):
		return http.StatusUnauthorized, msgInvalidOTP
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, msgAccessDenied
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "resource conflict"
	case errors.Is(err, apperrors.ErrValidation):
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			return http.StatusBadRequest, appErr.Message
		}
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "dashboard service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondWithMappedError responds with a mapped error and logs anything the
// client does not get to see.
func RespondWithMappedError(c echo.Context, log *zap.Logger, err error) error {
	status, msg := MapToPublicError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	return respondError(c, status, msg)
}
