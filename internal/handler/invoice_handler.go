package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/response"
)

type invoiceService interface {
	List(ctx context.Context, professionalID string, filter models.InvoiceFilter) ([]models.Invoice, *models.Pagination, error)
	Get(ctx context.Context, professionalID, invoiceID string) (*models.Invoice, error)
	Create(ctx context.Context, professionalID string, req service.CreateInvoiceRequest) (*models.Invoice, error)
	Transition(ctx context.Context, professionalID, invoiceID string, target models.InvoiceStatus) (*models.Invoice, error)
	Delete(ctx context.Context, professionalID, invoiceID string) error
	ExportCSV(ctx context.Context, professionalID string, filter models.InvoiceFilter) ([]byte, error)
}

// InvoiceHandler exposes invoice endpoints.
type InvoiceHandler struct {
	invoices invoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(invoices invoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type patchInvoiceRequest struct {
	Status models.InvoiceStatus `json:"status" binding:"required"`
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param id path string true "Professional ID"
// @Param status query string false "Filter by status"
// @Param clientId query string false "Filter by client"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	filter, err := invoiceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	invoices, pagination, err := h.invoices.List(c.Request.Context(), professionalID(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get invoice detail with items
// @Tags Invoices
// @Produce json
// @Param id path string true "Professional ID"
// @Param invoiceId path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/invoices/{invoiceId} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), professionalID(c), c.Param("invoiceId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Create godoc
// @Summary Create a draft invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.CreateInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Router /professionals/{id}/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.invoices.Create(c.Request.Context(), professionalID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// Patch godoc
// @Summary Transition invoice status
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param invoiceId path string true "Invoice ID"
// @Param payload body patchInvoiceRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/invoices/{invoiceId} [patch]
func (h *InvoiceHandler) Patch(c *gin.Context) {
	var req patchInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.invoices.Transition(c.Request.Context(), professionalID(c), c.Param("invoiceId"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Delete godoc
// @Summary Delete a draft invoice
// @Tags Invoices
// @Param id path string true "Professional ID"
// @Param invoiceId path string true "Invoice ID"
// @Success 204
// @Router /professionals/{id}/invoices/{invoiceId} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.invoices.Delete(c.Request.Context(), professionalID(c), c.Param("invoiceId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export invoices as CSV
// @Tags Invoices
// @Produce text/csv
// @Param id path string true "Professional ID"
// @Param status query string false "Filter by status"
// @Success 200 {string} string "CSV content"
// @Router /professionals/{id}/invoices/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	filter, err := invoiceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.invoices.ExportCSV(c.Request.Context(), professionalID(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("invoices-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

func invoiceFilterFromQuery(c *gin.Context) (models.InvoiceFilter, error) {
	var filter models.InvoiceFilter
	filter.ClientID = c.Query("clientId")
	filter.Status = models.InvoiceStatus(c.Query("status"))
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from, expected RFC3339")
		}
		filter.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to, expected RFC3339")
		}
		filter.To = &parsed
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter, nil
}
