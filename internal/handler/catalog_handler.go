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

type catalogService interface {
	List(ctx context.Context, professionalID string, activeOnly bool) ([]models.Service, error)
	Create(ctx context.Context, professionalID string, req service.ServiceRequest) (*models.Service, error)
	Update(ctx context.Context, professionalID, serviceID string, req service.ServiceRequest) (*models.Service, error)
	Deactivate(ctx context.Context, professionalID, serviceID string) error
}

// CatalogHandler exposes the bookable service catalog.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List godoc
// @Summary List services
// @Tags Services
// @Produce json
// @Param id path string true "Professional ID"
// @Param active query bool false "Only active services"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/services [get]
func (h *CatalogHandler) List(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context(), professionalID(c), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, services, nil)
}

// Create godoc
// @Summary Create service
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.ServiceRequest true "Service payload"
// @Success 201 {object} response.Envelope
// @Router /professionals/{id}/services [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	var req service.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.catalog.Create(c.Request.Context(), professionalID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// Update godoc
// @Summary Update service
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param serviceId path string true "Service ID"
// @Param payload body service.ServiceRequest true "Service payload"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/services/{serviceId} [patch]
func (h *CatalogHandler) Update(c *gin.Context) {
	var req service.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.catalog.Update(c.Request.Context(), professionalID(c), c.Param("serviceId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Deactivate godoc
// @Summary Deactivate service
// @Tags Services
// @Param id path string true "Professional ID"
// @Param serviceId path string true "Service ID"
// @Success 204
// @Router /professionals/{id}/services/{serviceId} [delete]
func (h *CatalogHandler) Deactivate(c *gin.Context) {
	if err := h.catalog.Deactivate(c.Request.Context(), professionalID(c), c.Param("serviceId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
