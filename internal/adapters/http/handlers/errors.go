package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"transport-billing/internal/core/domain"
	"transport-billing/internal/pkg/response"
)

// respondError maps a service error onto the response envelope
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.ValidationFailed(c, verr.Fields)
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenRevoked):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrUserInactive),
		errors.Is(err, domain.ErrCannotDeleteSelf),
		errors.Is(err, domain.ErrCannotChangeOwnRole):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrBillNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrOldPasswordWrong):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrExportFailed):
		log.Error("export failed", zap.String("path", c.Path()), zap.Error(err))
		return response.InternalServerError(c, "Failed to generate the bill document")
	case errors.Is(err, domain.ErrDuplicateBillNumber):
		log.Error("bill number conflict", zap.String("path", c.Path()), zap.Error(err))
		return response.InternalServerError(c, "Could not issue a bill number, please retry")
	case errors.Is(err, domain.ErrStorageUnavailable):
		log.Error("storage unavailable", zap.String("path", c.Path()), zap.Error(err))
		return response.InternalServerError(c, "Storage is temporarily unavailable")
	default:
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return response.InternalServerError(c, "Internal Server Error")
	}
}
