package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velora-app/velora-api/internal/models"
)

// InvoiceRepository persists invoices and their line items.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = "id, professional_id, client_id, number, status, subtotal_cents, tax_cents, total_cents, issued_at, due_at, created_at, updated_at"

// List returns invoices for a professional with optional filters.
func (r *InvoiceRepository) List(ctx context.Context, professionalID string, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	base := "FROM invoices WHERE professional_id = $1"
	args := []interface{}{professionalID}
	idx := 2

	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filter.Status)
		idx++
	}
	if filter.ClientID != "" {
		base += fmt.Sprintf(" AND client_id = $%d", idx)
		args = append(args, filter.ClientID)
		idx++
	}
	if filter.From != nil {
		base += fmt.Sprintf(" AND issued_at >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		base += fmt.Sprintf(" AND issued_at < $%d", idx)
		args = append(args, *filter.To)
		idx++
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY number DESC LIMIT %d OFFSET %d", invoiceColumns, base, pageSize, offset)
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// FindByID loads an invoice and its items scoped to a professional.
func (r *InvoiceRepository) FindByID(ctx context.Context, professionalID, invoiceID string) (*models.Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices WHERE professional_id = $1 AND id = $2", invoiceColumns)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, professionalID, invoiceID); err != nil {
		return nil, err
	}

	const itemsQuery = `SELECT id, invoice_id, description, quantity, unit_cents, amount_cents FROM invoice_items WHERE invoice_id = $1 ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &invoice.Items, itemsQuery, invoiceID); err != nil {
		return nil, fmt.Errorf("load invoice items: %w", err)
	}
	return &invoice, nil
}

// Create stores an invoice with its items, assigning the next sequential
// number for the professional inside the same transaction.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create invoice: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serializes per-professional numbering against concurrent inserts by
	// locking the tenant row; UNIQUE (professional_id, number) backstops it.
	var lockedID string
	if err := tx.GetContext(ctx, &lockedID,
		`SELECT id FROM professionals WHERE id = $1 FOR UPDATE`,
		invoice.ProfessionalID); err != nil {
		return fmt.Errorf("lock professional for invoice numbering: %w", err)
	}
	if err := tx.GetContext(ctx, &invoice.Number,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM invoices WHERE professional_id = $1`,
		invoice.ProfessionalID); err != nil {
		return fmt.Errorf("next invoice number: %w", err)
	}

	const insert = `INSERT INTO invoices (id, professional_id, client_id, number, status, subtotal_cents, tax_cents, total_cents, issued_at, due_at, created_at, updated_at)
VALUES (:id, :professional_id, :client_id, :number, :status, :subtotal_cents, :tax_cents, :total_cents, :issued_at, :due_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, invoice); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	const insertItem = `INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_cents, amount_cents)
VALUES (:id, :invoice_id, :description, :quantity, :unit_cents, :amount_cents)`
	for i := range invoice.Items {
		item := &invoice.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.InvoiceID = invoice.ID
		if _, err := tx.NamedExecContext(ctx, insertItem, item); err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create invoice: %w", err)
	}
	return nil
}

// UpdateStatus moves an invoice to a new status.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, professionalID, invoiceID string, status models.InvoiceStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = $1, updated_at = $2 WHERE professional_id = $3 AND id = $4`,
		status, time.Now().UTC(), professionalID, invoiceID)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a draft invoice and its items.
func (r *InvoiceRepository) Delete(ctx context.Context, professionalID, invoiceID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE professional_id = $1 AND id = $2 AND status = 'draft'`,
		professionalID, invoiceID)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
