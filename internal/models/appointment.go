package models

import "time"

// AppointmentStatus enumerates the appointment lifecycle.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// BookingKind discriminates real appointments from manual unavailability.
// Blocked time shares the appointment table and conflict rules but carries no
// client or service.
type BookingKind string

const (
	KindAppointment BookingKind = "appointment"
	KindBlocked     BookingKind = "blocked"
)

// Appointment is a booking record owned by one professional. Rows with
// Kind == KindBlocked have nil ClientID/ServiceID.
type Appointment struct {
	ID             string            `db:"id" json:"id"`
	ProfessionalID string            `db:"professional_id" json:"professional_id"`
	ClientID       *string           `db:"client_id" json:"client_id,omitempty"`
	ServiceID      *string           `db:"service_id" json:"service_id,omitempty"`
	Kind           BookingKind       `db:"kind" json:"kind"`
	StartTime      time.Time         `db:"start_time" json:"start_time"`
	EndTime        time.Time         `db:"end_time" json:"end_time"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Notes          *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter describes query params for listing appointments.
type AppointmentFilter struct {
	ClientID  string
	Kind      BookingKind
	Status    AppointmentStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// BusyInterval is an occupied time range used by the conflict checker. It
// unifies appointments, blocked times and group-class sessions.
type BusyInterval struct {
	RefID  string      `db:"ref_id" json:"ref_id"`
	Source string      `db:"source" json:"source"`
	Kind   BookingKind `db:"kind" json:"kind"`
	Start  time.Time   `db:"start_time" json:"start"`
	End    time.Time   `db:"end_time" json:"end"`
}

// BookingConflictError is returned when a proposed interval overlaps an
// existing non-cancelled booking for the same professional.
type BookingConflictError struct {
	Message  string       `json:"message"`
	Conflict BusyInterval `json:"conflict"`
}

// Error implements the error interface.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
