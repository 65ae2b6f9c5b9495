package handler

import (
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct{}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// UpdateProfileRequest represents the partial profile update request body
type UpdateProfileRequest struct {
	Nickname           *string   `json:"nickname"`
	JobTitle           *string   `json:"jobTitle" validate:"omitempty,max=50"`
	Experience         *string   `json:"experience" validate:"omitempty,max=20"`
	Description        *string   `json:"description" validate:"omitempty,max=500"`
	Blog               *string   `json:"blog" validate:"omitempty,url"`
	FirstLinkType      *string   `json:"firstLinkType" validate:"omitempty,max=30"`
	FirstLink          *string   `json:"firstLink" validate:"omitempty,url"`
	SecondLinkType     *string   `json:"secondLinkType" validate:"omitempty,max=30"`
	SecondLink         *string   `json:"secondLink" validate:"omitempty,url"`
	Answer1            *string   `json:"answer1"`
	Answer2            *string   `json:"answer2"`
	Answer3            *string   `json:"answer3"`
	TechStacks         *[]string `json:"techStacks" validate:"omitempty,dive,min=1,max=30"`
	HubCard            *bool     `json:"hubCard"`
	BackgroundImageURL *string   `json:"backgroundImageUrl" validate:"omitempty,url"`
	ProfileImageURL    *string   `json:"profileImageUrl" validate:"omitempty,url"`
}

func (r UpdateProfileRequest) toPatch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Nickname:           r.Nickname,
		JobTitle:           r.JobTitle,
		Experience:         r.Experience,
		Description:        r.Description,
		Blog:               r.Blog,
		FirstLinkType:      r.FirstLinkType,
		FirstLink:          r.FirstLink,
		SecondLinkType:     r.SecondLinkType,
		SecondLink:         r.SecondLink,
		Answer1:            r.Answer1,
		Answer2:            r.Answer2,
		Answer3:            r.Answer3,
		TechStacks:         r.TechStacks,
		HubCard:            r.HubCard,
		BackgroundImageURL: r.BackgroundImageURL,
		ProfileImageURL:    r.ProfileImageURL,
	}
}

// UpdateProfile handles PATCH /api/v1/profile
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req UpdateProfileRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	if err := coord.FetchProfile(ctx); err != nil {
		return respondError(c, err, "Failed to load profile")
	}
	if err := coord.UpdateProfile(ctx, req.toPatch()); err != nil {
		return respondError(c, err, "Failed to update profile")
	}

	return c.JSON(http.StatusOK, coord.Snapshot().Profile)
}

// RefreshProfile handles POST /api/v1/profile/refresh
func (h *ProfileHandler) RefreshProfile(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	if coord == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if err := coord.RefreshProfile(c.Request().Context()); err != nil {
		return respondError(c, err, "Failed to refresh profile")
	}

	profile := coord.Snapshot().Profile
	if profile == nil {
		return NewNotFoundError(c, "Profile not found")
	}
	return c.JSON(http.StatusOK, profile)
}
