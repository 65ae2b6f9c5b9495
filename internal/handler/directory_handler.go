package handler

import (
	"net/http"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// DirectoryHandler serves the public hub directory
type DirectoryHandler struct {
	directoryService *service.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(directoryService *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directoryService: directoryService}
}

// DirectoryRequest holds the directory query parameters
type DirectoryRequest struct {
	Page  int    `query:"page" validate:"omitempty,min=1,max=10000"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=50"`
	Job   string `query:"job" validate:"omitempty,max=50"`
}

// List handles GET /api/gatherHub?page=&limit=&job=
func (h *DirectoryHandler) List(c echo.Context) error {
	var req DirectoryRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	page, err := h.directoryService.ListMembers(c.Request().Context(), service.DirectoryQuery{
		Job:   req.Job,
		Page:  req.Page,
		Limit: req.Limit,
	})
	if err != nil {
		return respondError(c, err, "Failed to list members")
	}

	return c.JSON(http.StatusOK, page)
}
