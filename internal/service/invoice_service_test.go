package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type mockInvoiceRepo struct {
	invoices map[string]models.Invoice
	nextNum  int
	deleted  []string
}

func (m *mockInvoiceRepo) List(ctx context.Context, professionalID string, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	if filter.Page > 1 {
		return nil, len(m.invoices), nil
	}
	var out []models.Invoice
	for _, inv := range m.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, professionalID, invoiceID string) (*models.Invoice, error) {
	if inv, ok := m.invoices[invoiceID]; ok {
		return &inv, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	if m.invoices == nil {
		m.invoices = map[string]models.Invoice{}
	}
	m.nextNum++
	invoice.ID = "inv-new"
	invoice.Number = m.nextNum
	m.invoices[invoice.ID] = *invoice
	return nil
}

func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, professionalID, invoiceID string, status models.InvoiceStatus) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return sql.ErrNoRows
	}
	inv.Status = status
	m.invoices[invoiceID] = inv
	return nil
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, professionalID, invoiceID string) error {
	if _, ok := m.invoices[invoiceID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.invoices, invoiceID)
	m.deleted = append(m.deleted, invoiceID)
	return nil
}

func newInvoiceService(repo *mockInvoiceRepo) *InvoiceService {
	clients := &mockClientReader{clients: map[string]*models.Client{
		"cli-1": {ID: "cli-1", FullName: "Alice Martin", Email: "alice@example.com"},
	}}
	return NewInvoiceService(repo, clients, nil, nil)
}

func TestInvoiceServiceCreateComputesTotals(t *testing.T) {
	repo := &mockInvoiceRepo{nextNum: 7}
	svc := newInvoiceService(repo)

	invoice, err := svc.Create(context.Background(), "pro-1", CreateInvoiceRequest{
		ClientID: "cli-1",
		TaxCents: 500,
		Items: []InvoiceItemRequest{
			{Description: "Massage session", Quantity: 2, UnitCents: 4500},
			{Description: "Oil supplement", Quantity: 1, UnitCents: 1000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceDraft, invoice.Status)
	assert.Equal(t, 8, invoice.Number)
	assert.Equal(t, int64(10000), invoice.SubtotalCents)
	assert.Equal(t, int64(10500), invoice.TotalCents)
	require.Len(t, invoice.Items, 2)
	assert.Equal(t, int64(9000), invoice.Items[0].AmountCents)
}

func TestInvoiceServiceCreateRequiresItems(t *testing.T) {
	svc := newInvoiceService(&mockInvoiceRepo{})

	_, err := svc.Create(context.Background(), "pro-1", CreateInvoiceRequest{ClientID: "cli-1"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestInvoiceServiceCreateUnknownClient(t *testing.T) {
	svc := newInvoiceService(&mockInvoiceRepo{})

	_, err := svc.Create(context.Background(), "pro-1", CreateInvoiceRequest{
		ClientID: "cli-missing",
		Items:    []InvoiceItemRequest{{Description: "Session", Quantity: 1, UnitCents: 100}},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestInvoiceServiceTransitions(t *testing.T) {
	repo := &mockInvoiceRepo{invoices: map[string]models.Invoice{
		"inv-1": {ID: "inv-1", Status: models.InvoiceDraft},
	}}
	svc := newInvoiceService(repo)

	// draft cannot jump straight to paid
	_, err := svc.Transition(context.Background(), "pro-1", "inv-1", models.InvoicePaid)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)

	inv, err := svc.Transition(context.Background(), "pro-1", "inv-1", models.InvoiceSent)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceSent, inv.Status)

	inv, err = svc.Transition(context.Background(), "pro-1", "inv-1", models.InvoicePaid)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, inv.Status)

	// paid is terminal
	_, err = svc.Transition(context.Background(), "pro-1", "inv-1", models.InvoiceVoid)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestInvoiceServiceDeleteDraftOnly(t *testing.T) {
	repo := &mockInvoiceRepo{invoices: map[string]models.Invoice{
		"inv-1": {ID: "inv-1", Status: models.InvoiceSent},
		"inv-2": {ID: "inv-2", Status: models.InvoiceDraft},
	}}
	svc := newInvoiceService(repo)

	err := svc.Delete(context.Background(), "pro-1", "inv-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)

	require.NoError(t, svc.Delete(context.Background(), "pro-1", "inv-2"))
	assert.Equal(t, []string{"inv-2"}, repo.deleted)
}

func TestInvoiceServiceExportCSV(t *testing.T) {
	repo := &mockInvoiceRepo{invoices: map[string]models.Invoice{
		"inv-1": {ID: "inv-1", ClientID: "cli-1", Number: 12, Status: models.InvoicePaid, SubtotalCents: 10000, TaxCents: 500, TotalCents: 10500},
	}}
	svc := newInvoiceService(repo)

	data, err := svc.ExportCSV(context.Background(), "pro-1", models.InvoiceFilter{})
	require.NoError(t, err)
	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "number,client_id,status,subtotal_cents,tax_cents,total_cents,issued_at", lines[0])
	assert.Contains(t, lines[1], "12,cli-1,paid,10000,500,10500")
}
