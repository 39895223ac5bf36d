package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/export"
)

type invoiceRepository interface {
	List(ctx context.Context, professionalID string, filter models.InvoiceFilter) ([]models.Invoice, int, error)
	FindByID(ctx context.Context, professionalID, invoiceID string) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	UpdateStatus(ctx context.Context, professionalID, invoiceID string, status models.InvoiceStatus) error
	Delete(ctx context.Context, professionalID, invoiceID string) error
}

// CreateInvoiceRequest is the invoice creation payload. Line amounts are
// derived; subtotal, tax and total are computed server-side.
type CreateInvoiceRequest struct {
	ClientID string               `json:"client_id" validate:"required"`
	TaxCents int64                `json:"tax_cents" validate:"min=0"`
	DueAt    *time.Time           `json:"due_at"`
	Items    []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// InvoiceItemRequest is one billed line in the payload.
type InvoiceItemRequest struct {
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	UnitCents   int64  `json:"unit_cents" validate:"min=0"`
}

// invoiceTransitions lists the allowed status moves.
var invoiceTransitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceDraft: {models.InvoiceSent, models.InvoiceVoid},
	models.InvoiceSent:  {models.InvoicePaid, models.InvoiceVoid},
}

// InvoiceService manages billing documents with per-professional sequential
// numbering and the subtotal + tax = total invariant.
type InvoiceService struct {
	repo      invoiceRepository
	clients   clientReader
	exporter  *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInvoiceService constructs InvoiceService.
func NewInvoiceService(repo invoiceRepository, clients clientReader, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{repo: repo, clients: clients, exporter: export.NewCSVExporter(), validator: validate, logger: logger}
}

// List returns invoices with pagination metadata.
func (s *InvoiceService) List(ctx context.Context, professionalID string, filter models.InvoiceFilter) ([]models.Invoice, *models.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, professionalID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one invoice with its items.
func (s *InvoiceService) Get(ctx context.Context, professionalID, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, professionalID, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// Create computes the totals and stores the invoice as a draft.
func (s *InvoiceService) Create(ctx context.Context, professionalID string, req CreateInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	if _, err := s.clients.FindByID(ctx, professionalID, req.ClientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}

	items := make([]models.InvoiceItem, 0, len(req.Items))
	var subtotal int64
	for _, item := range req.Items {
		amount := int64(item.Quantity) * item.UnitCents
		subtotal += amount
		items = append(items, models.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitCents:   item.UnitCents,
			AmountCents: amount,
		})
	}

	invoice := &models.Invoice{
		ProfessionalID: professionalID,
		ClientID:       req.ClientID,
		Status:         models.InvoiceDraft,
		SubtotalCents:  subtotal,
		TaxCents:       req.TaxCents,
		TotalCents:     subtotal + req.TaxCents,
		IssuedAt:       time.Now().UTC(),
		DueAt:          req.DueAt,
		Items:          items,
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
	}
	s.logger.Info("invoice created",
		zap.String("professional_id", professionalID),
		zap.String("invoice_id", invoice.ID),
		zap.Int("number", invoice.Number))
	return invoice, nil
}

// Transition applies a status change (send, mark paid, void).
func (s *InvoiceService) Transition(ctx context.Context, professionalID, invoiceID string, target models.InvoiceStatus) (*models.Invoice, error) {
	invoice, err := s.Get(ctx, professionalID, invoiceID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range invoiceTransitions[invoice.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot move invoice from %s to %s", invoice.Status, target))
	}

	if err := s.repo.UpdateStatus(ctx, professionalID, invoiceID, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update invoice status")
	}
	invoice.Status = target
	return invoice, nil
}

// Delete removes a draft. Sent, paid and void invoices are immutable records.
func (s *InvoiceService) Delete(ctx context.Context, professionalID, invoiceID string) error {
	invoice, err := s.Get(ctx, professionalID, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status != models.InvoiceDraft {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only draft invoices can be deleted")
	}
	if err := s.repo.Delete(ctx, professionalID, invoiceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete invoice")
	}
	return nil
}

// ExportCSV renders the filtered invoice list as CSV.
func (s *InvoiceService) ExportCSV(ctx context.Context, professionalID string, filter models.InvoiceFilter) ([]byte, error) {
	filter.Page = 1
	filter.PageSize = 100
	var rows []map[string]string
	for {
		invoices, _, err := s.repo.List(ctx, professionalID, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
		}
		for _, inv := range invoices {
			rows = append(rows, map[string]string{
				"number":         strconv.Itoa(inv.Number),
				"client_id":      inv.ClientID,
				"status":         string(inv.Status),
				"subtotal_cents": strconv.FormatInt(inv.SubtotalCents, 10),
				"tax_cents":      strconv.FormatInt(inv.TaxCents, 10),
				"total_cents":    strconv.FormatInt(inv.TotalCents, 10),
				"issued_at":      inv.IssuedAt.Format(time.RFC3339),
			})
		}
		if len(invoices) < filter.PageSize {
			break
		}
		filter.Page++
	}

	return s.exporter.Render(export.Dataset{
		Headers: []string{"number", "client_id", "status", "subtotal_cents", "tax_cents", "total_cents", "issued_at"},
		Rows:    rows,
	})
}
