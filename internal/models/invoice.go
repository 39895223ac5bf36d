package models

import "time"

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

// Invoice is a billing document with per-professional sequential numbering.
// Invariant: TotalCents = SubtotalCents + TaxCents.
type Invoice struct {
	ID             string        `db:"id" json:"id"`
	ProfessionalID string        `db:"professional_id" json:"professional_id"`
	ClientID       string        `db:"client_id" json:"client_id"`
	Number         int           `db:"number" json:"number"`
	Status         InvoiceStatus `db:"status" json:"status"`
	SubtotalCents  int64         `db:"subtotal_cents" json:"subtotal_cents"`
	TaxCents       int64         `db:"tax_cents" json:"tax_cents"`
	TotalCents     int64         `db:"total_cents" json:"total_cents"`
	IssuedAt       time.Time     `db:"issued_at" json:"issued_at"`
	DueAt          *time.Time    `db:"due_at" json:"due_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`

	Items []InvoiceItem `db:"-" json:"items,omitempty"`
}

// InvoiceItem is a single billed line.
type InvoiceItem struct {
	ID          string `db:"id" json:"id"`
	InvoiceID   string `db:"invoice_id" json:"invoice_id"`
	Description string `db:"description" json:"description"`
	Quantity    int    `db:"quantity" json:"quantity"`
	UnitCents   int64  `db:"unit_cents" json:"unit_cents"`
	AmountCents int64  `db:"amount_cents" json:"amount_cents"`
}

// InvoiceFilter narrows down invoice listings.
type InvoiceFilter struct {
	ClientID  string
	Status    InvoiceStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
