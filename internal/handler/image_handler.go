package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ImageHandler handles member image uploads
type ImageHandler struct {
	imageService *service.ImageService
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(imageService *service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// UploadImageResponse represents the upload response
type UploadImageResponse struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

// UploadImage handles POST /api/v1/profile/images/:kind.
// The stored URL is written to the profile, and for a profile image also to the signup wizard.
func (h *ImageHandler) UploadImage(c echo.Context) error {
	coord := middleware.GetCoordinator(c)
	userID := middleware.GetUserID(c)
	if coord == nil || userID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	// If storage isn't configured, don't attempt to process/upload
	if h.imageService == nil || !h.imageService.IsEnabled() {
		return NewServiceUnavailableError(c, "Image uploads are disabled (storage not configured)")
	}

	kind, err := service.ParseImageKind(c.Param("kind"))
	if err != nil {
		return NewValidationError(c, "Invalid image kind", []ValidationError{
			{Field: "kind", Message: "Must be one of: profile, background"},
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxImageSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	ctx := c.Request().Context()
	url, err := h.imageService.Upload(ctx, userID, kind, data, file.Filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageTooLarge),
			errors.Is(err, service.ErrInvalidFormat),
			errors.Is(err, service.ErrImageTooSmall),
			errors.Is(err, service.ErrInvalidImageData):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: err.Error()},
			})
		default:
			log.Error().Err(err).Str("user_id", userID).Str("kind", string(kind)).Msg("Failed to upload image")
			return NewInternalError(c, "Failed to upload image")
		}
	}

	patch := domain.ProfilePatch{BackgroundImageURL: &url}
	if kind == service.ImageKindProfile {
		patch = domain.ProfilePatch{ProfileImageURL: &url}
		coord.SetProfileImageURL(url)
	}
	if err := coord.FetchProfile(ctx); err != nil {
		return respondError(c, err, "Failed to load profile")
	}
	if err := coord.UpdateProfile(ctx, patch); err != nil {
		return respondError(c, err, "Failed to save image URL")
	}

	log.Info().
		Str("user_id", userID).
		Str("kind", string(kind)).
		Msg("Image uploaded")

	return c.JSON(http.StatusCreated, UploadImageResponse{Kind: string(kind), URL: url})
}
