package handler

import (
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// NicknameHandler answers nickname availability queries
type NicknameHandler struct{}

// NewNicknameHandler creates a new NicknameHandler
func NewNicknameHandler() *NicknameHandler {
	return &NicknameHandler{}
}

// NicknameCheckResponse is the availability of one candidate
type NicknameCheckResponse struct {
	Nickname     string              `json:"nickname"`
	Availability domain.Availability `json:"availability"`
	Message      string              `json:"message,omitempty"` // local validation failure
	Stale        bool                `json:"stale"`             // a newer candidate superseded this one
}

// Check handles GET /api/v1/nickname/check?nickname=.
// A remote failure is reported as unknown availability rather than an error.
func (h *NicknameHandler) Check(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	nickname := c.QueryParam("nickname")
	resp := NicknameCheckResponse{Nickname: nickname}
	if err := domain.ValidateNickname(nickname); err != nil {
		resp.Message = err.Error()
	}

	availability, current, err := coord.Nickname().Resolve(c.Request().Context(), nickname)
	if err != nil {
		availability = domain.AvailabilityUnknown
	}
	resp.Availability = availability
	resp.Stale = !current

	return c.JSON(http.StatusOK, resp)
}
