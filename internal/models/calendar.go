package models

import "time"

// CalendarViewMode selects the rendering granularity.
type CalendarViewMode string

const (
	ViewDay   CalendarViewMode = "day"
	ViewWeek  CalendarViewMode = "week"
	ViewMonth CalendarViewMode = "month"
)

// CalendarEventItem is a rendered entry: an appointment, a blocked interval or
// a group-class session.
type CalendarEventItem struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status,omitempty"`
	Registered int       `json:"registered,omitempty"`
	Capacity   int       `json:"capacity,omitempty"`
}

// CalendarDay is one rendered day cell: the resolved open intervals, whether
// the day is closed and the events falling on it.
type CalendarDay struct {
	Date   string              `json:"date"`
	Closed bool                `json:"closed"`
	Open   []TimeRange         `json:"open_intervals"`
	Events []CalendarEventItem `json:"events"`
}

// CalendarView is the full grid for one view mode and anchor date. Purely a
// display artefact; bookability is decided by the conflict checker alone.
type CalendarView struct {
	Mode     CalendarViewMode `json:"mode"`
	Anchor   string           `json:"anchor"`
	RangeEnd string           `json:"range_end"`
	Prev     string           `json:"prev_anchor"`
	Next     string           `json:"next_anchor"`
	Days     []CalendarDay    `json:"days"`
	Warnings []string         `json:"warnings,omitempty"`
}
