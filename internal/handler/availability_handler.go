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

type availabilityService interface {
	GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, []string, error)
	SaveDocument(ctx context.Context, professionalID string, req service.SaveAvailabilityRequest) (*models.AvailabilityDocument, error)
}

// AvailabilityHandler exposes the availability aggregate endpoints.
type AvailabilityHandler struct {
	availability availabilityService
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Get godoc
// @Summary Get the availability document
// @Tags Availability
// @Produce json
// @Param id path string true "Professional ID"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	doc, warnings, err := h.availability.GetDocument(c.Request.Context(), professionalID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if len(warnings) > 0 {
		meta = map[string]interface{}{"warnings": warnings}
	}
	response.JSON(c, http.StatusOK, doc, nil, meta)
}

// Put godoc
// @Summary Replace the availability document
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.SaveAvailabilityRequest true "Weekly schedule, exceptions and policy"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/availability [put]
func (h *AvailabilityHandler) Put(c *gin.Context) {
	var req service.SaveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, err := h.availability.SaveDocument(c.Request.Context(), professionalID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
