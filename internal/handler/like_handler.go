package handler

import (
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles the liked-members relation of the session
type LikeHandler struct{}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler() *LikeHandler {
	return &LikeHandler{}
}

// ToggleLikeResponse is the liked state after a toggle
type ToggleLikeResponse struct {
	Nickname string `json:"nickname"`
	Liked    bool   `json:"liked"`
}

// LikedMembersResponse lists the members liked by the session's identity
type LikedMembersResponse struct {
	Members []domain.Profile `json:"members"`
}

// Toggle handles POST /api/v1/likes/:nickname/toggle
func (h *LikeHandler) Toggle(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	nickname := c.Param("nickname")
	if nickname == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "nickname", Message: "is required"},
		})
	}

	ctx := c.Request().Context()
	// The like notification carries the liker's card
	if err := coord.FetchProfile(ctx); err != nil {
		return respondError(c, err, "Failed to load profile")
	}

	liked, err := coord.ToggleLiked(ctx, nickname)
	if err != nil {
		return respondError(c, err, "Failed to toggle like")
	}

	return c.JSON(http.StatusOK, ToggleLikeResponse{Nickname: nickname, Liked: liked})
}

// List handles GET /api/v1/likes
func (h *LikeHandler) List(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	members, err := coord.LikedMembers(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to load liked members")
	}
	if members == nil {
		members = []domain.Profile{}
	}

	return c.JSON(http.StatusOK, LikedMembersResponse{Members: members})
}
