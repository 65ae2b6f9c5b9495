package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://gatherhub.app/errors/validation"
	ErrorTypeNotFound     = "https://gatherhub.app/errors/not-found"
	ErrorTypeUnauthorized = "https://gatherhub.app/errors/unauthorized"
	ErrorTypeConflict     = "https://gatherhub.app/errors/conflict"
	ErrorTypeUnavailable  = "https://gatherhub.app/errors/unavailable"
	ErrorTypeInternal     = "https://gatherhub.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, ProblemDetails{
		Type:     ErrorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusConflict, ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewServiceUnavailableError creates a service unavailable response for remote failures and timeouts
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
		Type:     ErrorTypeUnavailable,
		Title:    "Service Unavailable",
		Status:   http.StatusServiceUnavailable,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// fieldFor names the form field a domain error belongs to
func fieldFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNicknameTaken), errors.Is(err, domain.ErrInvalidNickname):
		return "nickname"
	case errors.Is(err, domain.ErrTooManyTechStacks):
		return "techStacks"
	case errors.Is(err, domain.ErrNoVerifiableEmail):
		return "email"
	}
	return ""
}

// respondError maps a domain error to its problem details response.
// Unclassified errors are logged and reported as internal errors with fallback as detail.
func respondError(c echo.Context, err error, fallback string) error {
	var fieldErrors []ValidationError
	if field := fieldFor(err); field != "" {
		fieldErrors = []ValidationError{{Field: field, Message: err.Error()}}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError(c, "Authentication required")
	case errors.Is(err, domain.ErrProfileNotFound):
		return NewNotFoundError(c, "Profile not found")
	case errors.Is(err, domain.ErrMemberNotFound):
		return NewNotFoundError(c, "Member not found")
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, "Resource not found")
	case errors.Is(err, domain.ErrNicknameTaken):
		return NewConflictError(c, "Nickname already in use", fieldErrors)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		return NewConflictError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidNickname),
		errors.Is(err, domain.ErrTooManyTechStacks),
		errors.Is(err, domain.ErrNoVerifiableEmail),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), fieldErrors)
	case errors.Is(err, domain.ErrTransient):
		return NewServiceUnavailableError(c, "Directory service unavailable, please retry")
	}

	log.Error().Err(err).Str("path", c.Path()).Msg(fallback)
	return NewInternalError(c, fallback)
}
