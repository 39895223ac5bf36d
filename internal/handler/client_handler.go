package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/response"
)

type clientService interface {
	List(ctx context.Context, professionalID string, filter models.ClientFilter) ([]models.Client, *models.Pagination, error)
	Get(ctx context.Context, professionalID, clientID string) (*models.Client, error)
	Create(ctx context.Context, professionalID string, req service.ClientRequest) (*models.Client, error)
	Update(ctx context.Context, professionalID, clientID string, req service.ClientRequest) (*models.Client, error)
	Archive(ctx context.Context, professionalID, clientID string) error
	ExportHistoryCSV(ctx context.Context, professionalID, clientID string) ([]byte, error)
}

// ClientHandler exposes client roster endpoints.
type ClientHandler struct {
	clients clientService
}

// NewClientHandler constructs ClientHandler.
func NewClientHandler(clients clientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param id path string true "Professional ID"
// @Param search query string false "Search by name or email"
// @Param archived query bool false "Filter by archived state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	var filter models.ClientFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if archived := c.Query("archived"); archived != "" {
		v := archived == "true"
		filter.Archived = &v
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	clients, pagination, err := h.clients.List(c.Request.Context(), professionalID(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clients, pagination)
}

// Get godoc
// @Summary Get client detail
// @Tags Clients
// @Produce json
// @Param id path string true "Professional ID"
// @Param clientId path string true "Client ID"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/clients/{clientId} [get]
func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.clients.Get(c.Request.Context(), professionalID(c), c.Param("clientId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, client, nil)
}

// Create godoc
// @Summary Create client
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.ClientRequest true "Client payload"
// @Success 201 {object} response.Envelope
// @Router /professionals/{id}/clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req service.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	client, err := h.clients.Create(c.Request.Context(), professionalID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, client)
}

// Update godoc
// @Summary Update client
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param clientId path string true "Client ID"
// @Param payload body service.ClientRequest true "Client payload"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/clients/{clientId} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	var req service.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	client, err := h.clients.Update(c.Request.Context(), professionalID(c), c.Param("clientId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, client, nil)
}

// Archive godoc
// @Summary Archive client
// @Tags Clients
// @Param id path string true "Professional ID"
// @Param clientId path string true "Client ID"
// @Success 204
// @Router /professionals/{id}/clients/{clientId} [delete]
func (h *ClientHandler) Archive(c *gin.Context) {
	if err := h.clients.Archive(c.Request.Context(), professionalID(c), c.Param("clientId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportHistory godoc
// @Summary Export a client's appointment history as CSV
// @Tags Clients
// @Produce text/csv
// @Param id path string true "Professional ID"
// @Param clientId path string true "Client ID"
// @Success 200 {string} string "CSV content"
// @Router /professionals/{id}/clients/{clientId}/appointments/export [get]
func (h *ClientHandler) ExportHistory(c *gin.Context) {
	data, err := h.clients.ExportHistoryCSV(c.Request.Context(), professionalID(c), c.Param("clientId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("appointments-%s.csv", c.Param("clientId"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
