package models

import "time"

// Service is a bookable offering (e.g. "60 min deep-tissue massage") with a
// declared duration used to derive appointment length.
type Service struct {
	ID             string    `db:"id" json:"id"`
	ProfessionalID string    `db:"professional_id" json:"professional_id"`
	Name           string    `db:"name" json:"name"`
	Description    *string   `db:"description" json:"description,omitempty"`
	DurationMin    int       `db:"duration_min" json:"duration_min"`
	PriceCents     int64     `db:"price_cents" json:"price_cents"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
