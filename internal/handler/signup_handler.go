package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/coordinator"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SignupHandler drives the signup wizard of the session
type SignupHandler struct{}

// NewSignupHandler creates a new SignupHandler
func NewSignupHandler() *SignupHandler {
	return &SignupHandler{}
}

// SetFieldRequest represents the body of a wizard field update
type SetFieldRequest struct {
	Value string `json:"value" validate:"max=200"`
}

// SubmitRequest represents the final signup confirmation
type SubmitRequest struct {
	Nickname     string `json:"nickname"`
	Availability string `json:"availability" validate:"omitempty,oneof=unknown available taken"`
}

func (h *SignupHandler) wizard(c echo.Context, coord *coordinator.Coordinator) error {
	return c.JSON(http.StatusOK, coord.Snapshot().Wizard)
}

// SetField handles PUT /api/v1/signup/fields/:field.
// Setting the nickname also feeds the debounced availability checker.
func (h *SignupHandler) SetField(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req SetFieldRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	field := domain.WizardField(c.Param("field"))
	if err := coord.SetField(field, req.Value); err != nil {
		return NewValidationError(c, "Unknown signup field", []ValidationError{
			{Field: "field", Message: err.Error()},
		})
	}
	if field == domain.FieldNickname {
		coord.Nickname().Update(req.Value)
	}

	return h.wizard(c, coord)
}

// Next handles POST /api/v1/signup/next
func (h *SignupHandler) Next(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	coord.AdvanceStep()
	return h.wizard(c, coord)
}

// Prev handles POST /api/v1/signup/prev
func (h *SignupHandler) Prev(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	coord.RetreatStep()
	return h.wizard(c, coord)
}

// Reset handles POST /api/v1/signup/reset
func (h *SignupHandler) Reset(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	coord.ResetWizard()
	return h.wizard(c, coord)
}

// Submit handles POST /api/v1/signup/submit
func (h *SignupHandler) Submit(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req SubmitRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	if err := coord.FetchProfile(ctx); err != nil {
		return respondError(c, err, "Failed to load profile")
	}

	fieldErr := coord.SubmitProfile(ctx, coordinator.SubmitInput{
		Nickname:     req.Nickname,
		Availability: domain.Availability(req.Availability),
	})
	if fieldErr != nil {
		log.Debug().Err(fieldErr).Str("user_id", middleware.GetUserID(c)).Msg("Signup submission rejected")
		return respondFieldError(c, fieldErr)
	}

	return c.JSON(http.StatusOK, sessionResponse(coord))
}

// respondFieldError reports a submission failure inline against its form field
func respondFieldError(c echo.Context, fe *coordinator.FieldError) error {
	errs := []ValidationError{{Field: fe.Field, Message: fe.Err.Error()}}
	switch fe.Field {
	case "session":
		return NewUnauthorizedError(c, fe.Err.Error())
	case "nickname":
		if errors.Is(fe.Err, domain.ErrNicknameTaken) {
			return NewConflictError(c, "Nickname already in use", errs)
		}
		if errors.Is(fe.Err, domain.ErrTransient) {
			return NewServiceUnavailableError(c, "Could not verify nickname, please retry")
		}
		return NewValidationError(c, "Validation failed", errs)
	case "email":
		return NewValidationError(c, "Validation failed", errs)
	}
	return respondError(c, fe.Err, "Failed to save profile")
}
