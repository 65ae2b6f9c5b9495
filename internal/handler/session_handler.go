package handler

import (
	"net/http"
	"sort"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/coordinator"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// SessionResponse is the session snapshot served to the presentation layer
type SessionResponse struct {
	Identity *domain.Identity   `json:"identity"`
	Profile  *domain.Profile    `json:"profile"`
	Wizard   domain.WizardState `json:"wizard"`
	Liked    []string           `json:"liked"` // nicknames, sorted
	Loading  bool               `json:"loading"`
	Nickname NicknameStatus     `json:"nickname"`
}

// NicknameStatus is the availability of the nickname being typed in the signup form.
// Settled results are also pushed as nickname.checked events.
type NicknameStatus struct {
	Candidate    string              `json:"candidate"`
	Availability domain.Availability `json:"availability"`
}

func sessionResponse(coord *coordinator.Coordinator) SessionResponse {
	resp := toSessionResponse(coord.Snapshot())
	resp.Nickname.Candidate, resp.Nickname.Availability = coord.Nickname().Result()
	return resp
}

func toSessionResponse(s coordinator.State) SessionResponse {
	liked := make([]string, 0, len(s.Liked))
	for nickname, ok := range s.Liked {
		if ok {
			liked = append(liked, nickname)
		}
	}
	sort.Strings(liked)

	return SessionResponse{
		Identity: s.Identity,
		Profile:  s.Profile,
		Wizard:   s.Wizard,
		Liked:    liked,
		Loading:  s.Loading,
	}
}

// SessionHandler serves the session snapshot
type SessionHandler struct{}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Me handles GET /api/v1/me
func (h *SessionHandler) Me(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	// A profile that failed to load at restore time gets another chance here
	if err := coord.FetchProfile(c.Request().Context()); err != nil {
		return respondError(c, err, "Failed to load profile")
	}

	return c.JSON(http.StatusOK, sessionResponse(coord))
}
