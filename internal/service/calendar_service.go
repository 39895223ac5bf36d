package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/repository"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type calendarAppointmentSource interface {
	ListForRangeDetailed(ctx context.Context, professionalID string, from, to time.Time) ([]repository.AppointmentWithNames, error)
}

type calendarSessionSource interface {
	ListSessionsForRange(ctx context.Context, professionalID string, from, to time.Time) ([]repository.SessionWithClass, error)
}

type calendarAvailabilitySource interface {
	GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, []string, error)
}

// CalendarService assembles the read-only day/week/month grid from resolved
// availability plus appointments, blocked times and group-class sessions.
// Purely presentational; it never decides bookability.
type CalendarService struct {
	appointments calendarAppointmentSource
	sessions     calendarSessionSource
	availability calendarAvailabilitySource
	logger       *zap.Logger
}

// NewCalendarService constructs CalendarService.
func NewCalendarService(appointments calendarAppointmentSource, sessions calendarSessionSource, availability calendarAvailabilitySource, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{appointments: appointments, sessions: sessions, availability: availability, logger: logger}
}

// View renders the grid for one mode anchored on a date ("YYYY-MM-DD",
// defaulting to today).
func (s *CalendarService) View(ctx context.Context, professionalID string, mode models.CalendarViewMode, anchor string) (*models.CalendarView, error) {
	anchorDate := time.Now().UTC().Truncate(24 * time.Hour)
	if anchor != "" {
		parsed, err := time.Parse(dateLayout, anchor)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid anchor date, expected YYYY-MM-DD")
		}
		anchorDate = parsed
	}

	from, to, prev, next, err := viewRange(mode, anchorDate)
	if err != nil {
		return nil, err
	}

	doc, warnings, err := s.availability.GetDocument(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	appointments, err := s.appointments.ListForRangeDetailed(ctx, professionalID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}
	sessions, err := s.sessions.ListSessionsForRange(ctx, professionalID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	eventsByDay := map[string][]models.CalendarEventItem{}
	for _, apt := range appointments {
		item := models.CalendarEventItem{
			ID:        apt.ID,
			Source:    string(apt.Kind),
			Title:     appointmentTitle(apt),
			StartTime: apt.StartTime,
			EndTime:   apt.EndTime,
			Status:    string(apt.Status),
		}
		key := apt.StartTime.UTC().Format(dateLayout)
		eventsByDay[key] = append(eventsByDay[key], item)
	}
	for _, session := range sessions {
		item := models.CalendarEventItem{
			ID:         session.ID,
			Source:     "group_class_session",
			Title:      session.ClassName,
			StartTime:  session.StartTime,
			EndTime:    session.EndTime,
			Registered: session.ActiveCount,
			Capacity:   session.MaxParticipants,
		}
		key := session.StartTime.UTC().Format(dateLayout)
		eventsByDay[key] = append(eventsByDay[key], item)
	}

	days := make([]models.CalendarDay, 0, int(to.Sub(from).Hours()/24))
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		open := ResolveFromDocument(doc, day)
		events := eventsByDay[key]
		sort.Slice(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })
		days = append(days, models.CalendarDay{
			Date:   key,
			Closed: len(open) == 0,
			Open:   open,
			Events: events,
		})
	}

	return &models.CalendarView{
		Mode:     mode,
		Anchor:   anchorDate.Format(dateLayout),
		RangeEnd: to.AddDate(0, 0, -1).Format(dateLayout),
		Prev:     prev.Format(dateLayout),
		Next:     next.Format(dateLayout),
		Days:     days,
		Warnings: warnings,
	}, nil
}

// viewRange computes [from, to) plus the prev/next anchors per granularity.
// Weeks start on Monday; month views cover the anchor's calendar month.
func viewRange(mode models.CalendarViewMode, anchor time.Time) (from, to, prev, next time.Time, err error) {
	switch mode {
	case models.ViewDay:
		from = anchor
		to = anchor.AddDate(0, 0, 1)
		prev = anchor.AddDate(0, 0, -1)
		next = to
	case models.ViewWeek:
		offset := (int(anchor.Weekday()) + 6) % 7
		from = anchor.AddDate(0, 0, -offset)
		to = from.AddDate(0, 0, 7)
		prev = from.AddDate(0, 0, -7)
		next = to
	case models.ViewMonth:
		from = time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
		prev = from.AddDate(0, -1, 0)
		next = to
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "invalid view mode, expected day, week or month")
	}
	return from, to, prev, next, err
}

func appointmentTitle(apt repository.AppointmentWithNames) string {
	if apt.Kind == models.KindBlocked {
		if apt.Notes != nil && *apt.Notes != "" {
			return *apt.Notes
		}
		return "Blocked"
	}
	title := "Appointment"
	if apt.ClientName != nil && *apt.ClientName != "" {
		title = *apt.ClientName
	}
	if apt.ServiceName != nil && *apt.ServiceName != "" {
		title += " - " + *apt.ServiceName
	}
	return title
}
