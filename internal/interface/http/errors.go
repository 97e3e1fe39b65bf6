package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rumbleroad/pokerrun-api/internal/application"
	"github.com/rumbleroad/pokerrun-api/internal/domain/registration"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
	"github.com/rumbleroad/pokerrun-api/pkg/response"
)

// writeDomainError translates service and registration errors into the
// API envelope. Rejection messages surface verbatim; unknown errors do not.
func writeDomainError(c *gin.Context, err error) {
	if fe, ok := registration.AsFieldErrors(err); ok {
		response.Error[any](c, http.StatusBadRequest, "validation failed", map[string]string(fe))
		return
	}
	switch {
	case errors.Is(err, registration.ErrNotFound),
		errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, registration.ErrForbidden):
		response.Error[any](c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, registration.ErrRegistrationClosed),
		errors.Is(err, registration.ErrEventFull),
		errors.Is(err, registration.ErrAlreadyRegistered),
		errors.Is(err, registration.ErrNotRegistered),
		errors.Is(err, registration.ErrCancellationWindowClosed),
		errors.Is(err, application.ErrInvalidEventID),
		errors.Is(err, application.ErrInvalidTransition):
		response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, registration.ErrUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
