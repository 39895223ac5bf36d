package models

import "time"

// GroupClass defines a recurring multi-participant offering. Concrete
// occurrences live in GroupClassSession.
type GroupClass struct {
	ID              string    `db:"id" json:"id"`
	ProfessionalID  string    `db:"professional_id" json:"professional_id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	Category        string    `db:"category" json:"category"`
	Location        *string   `db:"location" json:"location,omitempty"`
	MaxParticipants int       `db:"max_participants" json:"max_participants"`
	PriceCents      int64     `db:"price_cents" json:"price_cents"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// GroupClassSession is one scheduled occurrence of a class.
type GroupClassSession struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Cancelled bool      `db:"cancelled" json:"cancelled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Registrations []SessionRegistration `db:"-" json:"registrations,omitempty"`
}

// RegistrationStatus enumerates registration states.
type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// SessionRegistration links a client to a session. Active registrations for a
// session never exceed the class MaxParticipants.
type SessionRegistration struct {
	ID           string             `db:"id" json:"id"`
	SessionID    string             `db:"session_id" json:"session_id"`
	ClientID     string             `db:"client_id" json:"client_id"`
	Status       RegistrationStatus `db:"status" json:"status"`
	RegisteredAt time.Time          `db:"registered_at" json:"registered_at"`

	ClientName  string `db:"client_name" json:"client_name,omitempty"`
	ClientEmail string `db:"client_email" json:"client_email,omitempty"`
}

// Participant identifies a registrant affected by a destructive action.
type Participant struct {
	RegistrationID string `db:"registration_id" json:"registration_id"`
	ClientID       string `db:"client_id" json:"client_id"`
	ClientName     string `db:"client_name" json:"client_name"`
	ClientEmail    string `db:"client_email" json:"client_email"`
}

// NeedsConfirmationError signals the first phase of a two-phase destructive
// action: active registrations exist and the caller must retry with force.
type NeedsConfirmationError struct {
	Message      string        `json:"message"`
	Participants []Participant `json:"participants"`
}

// Error implements the error interface.
func (e *NeedsConfirmationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
