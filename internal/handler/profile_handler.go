package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, professionalID string) (*models.Professional, error)
	Update(ctx context.Context, professionalID string, req service.UpdateProfileRequest) (*models.Professional, error)
}

// ProfileHandler exposes the tenant account endpoints.
type ProfileHandler struct {
	profile profileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profile profileService) *ProfileHandler {
	return &ProfileHandler{profile: profile}
}

// Get godoc
// @Summary Get the professional profile
// @Tags Profile
// @Produce json
// @Param id path string true "Professional ID"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	professional, err := h.profile.Get(c.Request.Context(), professionalID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professional, nil)
}

// Put godoc
// @Summary Update the professional profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/profile [put]
func (h *ProfileHandler) Put(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	professional, err := h.profile.Update(c.Request.Context(), professionalID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professional, nil)
}
