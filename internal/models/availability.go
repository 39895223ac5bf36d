package models

import "time"

// TimeRange is an open interval within a day, expressed as "HH:MM" strings in
// the professional's timezone.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule holds the template for one weekday. Inactive days carry no
// slots.
type DaySchedule struct {
	Active bool        `json:"active"`
	Slots  []TimeRange `json:"slots"`
}

// WeeklySchedule maps day-of-week (0 = Sunday … 6 = Saturday, matching
// time.Weekday) to that day's template. Slots within a day must not overlap.
type WeeklySchedule map[int]DaySchedule

// ExceptionType distinguishes fully closed dates from custom-hour dates.
type ExceptionType string

const (
	ExceptionClosed ExceptionType = "closed"
	ExceptionCustom ExceptionType = "custom"
)

// Exception overrides the weekly template for a single date.
type Exception struct {
	ID             string        `db:"id" json:"id"`
	ProfessionalID string        `db:"professional_id" json:"professional_id"`
	Date           time.Time     `db:"date" json:"date"`
	Type           ExceptionType `db:"type" json:"type"`
	Reason         *string       `db:"reason" json:"reason,omitempty"`
	CustomSlots    []TimeRange   `db:"-" json:"custom_slots,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// BookingPolicy holds professional-scoped booking limits consumed by
// validation.
type BookingPolicy struct {
	DefaultDurationMin int `json:"default_duration_min"`
	BufferMin          int `json:"buffer_min"`
	AdvanceBookingDays int `json:"advance_booking_days"`
	MinNoticeHours     int `json:"min_notice_hours"`
}

// DefaultBookingPolicy mirrors the values applied when a professional has not
// configured limits yet.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		DefaultDurationMin: 60,
		BufferMin:          0,
		AdvanceBookingDays: 60,
		MinNoticeHours:     12,
	}
}

// DefaultWeeklySchedule is the Mon-Fri business-hours fallback used when a
// professional has no stored schedule at all.
func DefaultWeeklySchedule() WeeklySchedule {
	ws := WeeklySchedule{}
	for day := 0; day <= 6; day++ {
		if day >= 1 && day <= 5 {
			ws[day] = DaySchedule{Active: true, Slots: []TimeRange{{Start: "09:00", End: "17:00"}}}
			continue
		}
		ws[day] = DaySchedule{Active: false, Slots: nil}
	}
	return ws
}

// AvailabilityDocument is the aggregate read/written by the availability
// endpoints: weekly template, date exceptions and booking policy as one unit.
type AvailabilityDocument struct {
	Weekly     WeeklySchedule `json:"weekly_schedule"`
	Exceptions []Exception    `json:"exceptions"`
	Policy     BookingPolicy  `json:"booking_policy"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
