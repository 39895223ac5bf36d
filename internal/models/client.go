package models

import "time"

// Client is an end customer of a professional. Clients are leaf records owned
// by exactly one professional; no cross-tenant relationships exist.
type Client struct {
	ID             string    `db:"id" json:"id"`
	ProfessionalID string    `db:"professional_id" json:"professional_id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	Archived       bool      `db:"archived" json:"archived"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ClientFilter narrows down client listings.
type ClientFilter struct {
	Search    string
	Archived  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
