package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/repository"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type appointmentRepository interface {
	List(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	ListForRange(ctx context.Context, professionalID string, from, to time.Time) ([]models.Appointment, error)
	ListByClient(ctx context.Context, professionalID, clientID string) ([]models.Appointment, error)
	FindByID(ctx context.Context, professionalID, id string) (*models.Appointment, error)
	CreateChecked(ctx context.Context, apt *models.Appointment, bufferMin int) (*models.BusyInterval, error)
	RescheduleChecked(ctx context.Context, apt *models.Appointment, bufferMin int) (*models.BusyInterval, error)
	UpdateStatus(ctx context.Context, professionalID, id string, status models.AppointmentStatus) error
	Delete(ctx context.Context, professionalID, id string) error
}

type clientReader interface {
	FindByID(ctx context.Context, professionalID, clientID string) (*models.Client, error)
}

type serviceReader interface {
	FindByID(ctx context.Context, professionalID, serviceID string) (*models.Service, error)
}

type dayResolver interface {
	GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, []string, error)
	Invalidate(ctx context.Context, professionalID string)
}

type bookingNotifier interface {
	EnqueueBookingConfirmation(to, clientName string, start time.Time)
}

// CreateAppointmentRequest is the booking payload. End time is derived from
// the service duration, or the policy default when no service is given.
type CreateAppointmentRequest struct {
	ClientID  string    `json:"client_id" validate:"required"`
	ServiceID *string   `json:"service_id"`
	StartTime time.Time `json:"start_time" validate:"required"`
	Notes     *string   `json:"notes"`
}

// RescheduleAppointmentRequest moves an existing appointment.
type RescheduleAppointmentRequest struct {
	StartTime time.Time  `json:"start_time" validate:"required"`
	EndTime   *time.Time `json:"end_time"`
}

// CreateBlockedTimeRequest marks a span as unavailable. Blocked time skips
// policy and business-hours checks but still participates in conflicts.
type CreateBlockedTimeRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Notes     *string   `json:"notes"`
}

// statusTransitions lists the allowed appointment lifecycle moves.
var statusTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentPending:   {models.AppointmentConfirmed, models.AppointmentCancelled},
	models.AppointmentConfirmed: {models.AppointmentCompleted, models.AppointmentCancelled},
}

// BookingService orchestrates appointment and blocked-time workflows: policy
// enforcement, business-hours checks and conflict-checked persistence.
type BookingService struct {
	repo         appointmentRepository
	clients      clientReader
	services     serviceReader
	availability dayResolver
	notifier     bookingNotifier
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewBookingService constructs BookingService.
func NewBookingService(repo appointmentRepository, clients clientReader, services serviceReader, availability dayResolver, notifier bookingNotifier, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		repo:         repo,
		clients:      clients,
		services:     services,
		availability: availability,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// List returns appointments with pagination metadata.
func (s *BookingService) List(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	if filter.Kind == "" {
		filter.Kind = models.KindAppointment
	}
	appointments, total, err := s.repo.List(ctx, professionalID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return appointments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single appointment.
func (s *BookingService) Get(ctx context.Context, professionalID, id string) (*models.Appointment, error) {
	apt, err := s.repo.FindByID(ctx, professionalID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return apt, nil
}

// Create books an appointment: validation, policy window, business hours,
// then the transactional conflict check.
func (s *BookingService) Create(ctx context.Context, professionalID string, req CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	client, err := s.clients.FindByID(ctx, professionalID, req.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	if client.Archived {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "client is archived")
	}

	doc, _, err := s.availability.GetDocument(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	durationMin := doc.Policy.DefaultDurationMin
	if req.ServiceID != nil {
		offering, err := s.services.FindByID(ctx, professionalID, *req.ServiceID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
		}
		if !offering.Active {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "service is inactive")
		}
		durationMin = offering.DurationMin
	}

	start := req.StartTime.UTC()
	end := start.Add(time.Duration(durationMin) * time.Minute)

	if err := s.checkPolicyWindow(start, doc.Policy); err != nil {
		return nil, err
	}
	if err := s.checkBusinessHours(doc, start, end); err != nil {
		return nil, err
	}

	apt := &models.Appointment{
		ProfessionalID: professionalID,
		ClientID:       &req.ClientID,
		ServiceID:      req.ServiceID,
		Kind:           models.KindAppointment,
		StartTime:      start,
		EndTime:        end,
		Status:         models.AppointmentPending,
		Notes:          req.Notes,
	}
	busy, err := s.repo.CreateChecked(ctx, apt, doc.Policy.BufferMin)
	if err != nil {
		return nil, s.mapConflict(err, busy)
	}

	s.availability.Invalidate(ctx, professionalID)
	if s.notifier != nil {
		s.notifier.EnqueueBookingConfirmation(client.Email, client.FullName, start)
	}
	s.logger.Info("appointment booked",
		zap.String("professional_id", professionalID),
		zap.String("appointment_id", apt.ID),
		zap.Time("start", start))
	return apt, nil
}

// Reschedule moves an appointment under the same policy and conflict rules.
func (s *BookingService) Reschedule(ctx context.Context, professionalID, id string, req RescheduleAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}

	apt, err := s.Get(ctx, professionalID, id)
	if err != nil {
		return nil, err
	}
	if apt.Status == models.AppointmentCancelled || apt.Status == models.AppointmentCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot reschedule a %s appointment", apt.Status))
	}

	doc, _, err := s.availability.GetDocument(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	duration := apt.EndTime.Sub(apt.StartTime)
	start := req.StartTime.UTC()
	end := start.Add(duration)
	if req.EndTime != nil {
		end = req.EndTime.UTC()
		if !end.After(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
		}
	}

	if apt.Kind == models.KindAppointment {
		if err := s.checkPolicyWindow(start, doc.Policy); err != nil {
			return nil, err
		}
		if err := s.checkBusinessHours(doc, start, end); err != nil {
			return nil, err
		}
	}

	apt.StartTime = start
	apt.EndTime = end
	busy, err := s.repo.RescheduleChecked(ctx, apt, doc.Policy.BufferMin)
	if err != nil {
		return nil, s.mapConflict(err, busy)
	}

	s.availability.Invalidate(ctx, professionalID)
	return apt, nil
}

// Transition applies a lifecycle change (confirm, complete, cancel).
func (s *BookingService) Transition(ctx context.Context, professionalID, id string, target models.AppointmentStatus) (*models.Appointment, error) {
	apt, err := s.Get(ctx, professionalID, id)
	if err != nil {
		return nil, err
	}
	if apt.Kind != models.KindAppointment {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "blocked time has no status lifecycle")
	}

	allowed := false
	for _, next := range statusTransitions[apt.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot move appointment from %s to %s", apt.Status, target))
	}

	if err := s.repo.UpdateStatus(ctx, professionalID, id, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment status")
	}
	apt.Status = target

	// Cancelling frees the interval for new bookings.
	if target == models.AppointmentCancelled {
		s.availability.Invalidate(ctx, professionalID)
	}
	return apt, nil
}

// Delete removes an appointment record entirely.
func (s *BookingService) Delete(ctx context.Context, professionalID, id string) error {
	if err := s.repo.Delete(ctx, professionalID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	s.availability.Invalidate(ctx, professionalID)
	return nil
}

// ListBlockedTimes returns manual unavailability records.
func (s *BookingService) ListBlockedTimes(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	filter.Kind = models.KindBlocked
	blocked, total, err := s.repo.List(ctx, professionalID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocked times")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return blocked, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateBlockedTime reserves a span against bookings. Exempt from policy and
// business-hours checks: professionals may block any time they like.
func (s *BookingService) CreateBlockedTime(ctx context.Context, professionalID string, req CreateBlockedTimeRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked time payload")
	}
	start := req.StartTime.UTC()
	end := req.EndTime.UTC()
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	doc, _, err := s.availability.GetDocument(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	block := &models.Appointment{
		ProfessionalID: professionalID,
		Kind:           models.KindBlocked,
		StartTime:      start,
		EndTime:        end,
		Status:         models.AppointmentConfirmed,
		Notes:          req.Notes,
	}
	busy, err := s.repo.CreateChecked(ctx, block, doc.Policy.BufferMin)
	if err != nil {
		return nil, s.mapConflict(err, busy)
	}

	s.availability.Invalidate(ctx, professionalID)
	return block, nil
}

// DeleteBlockedTime removes a blocked span.
func (s *BookingService) DeleteBlockedTime(ctx context.Context, professionalID, id string) error {
	apt, err := s.Get(ctx, professionalID, id)
	if err != nil {
		return err
	}
	if apt.Kind != models.KindBlocked {
		return appErrors.Clone(appErrors.ErrNotFound, "blocked time not found")
	}
	return s.Delete(ctx, professionalID, id)
}

// HistoryByClient returns every appointment of one client, newest first.
func (s *BookingService) HistoryByClient(ctx context.Context, professionalID, clientID string) ([]models.Appointment, error) {
	if _, err := s.clients.FindByID(ctx, professionalID, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	history, err := s.repo.ListByClient(ctx, professionalID, clientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment history")
	}
	return history, nil
}

// checkPolicyWindow rejects bookings breaking the notice and advance limits.
func (s *BookingService) checkPolicyWindow(start time.Time, policy models.BookingPolicy) error {
	now := s.now()
	if start.Before(now.Add(time.Duration(policy.MinNoticeHours) * time.Hour)) {
		return appErrors.Clone(appErrors.ErrPolicyViolation, fmt.Sprintf("bookings require at least %d hours notice", policy.MinNoticeHours))
	}
	if start.After(now.AddDate(0, 0, policy.AdvanceBookingDays)) {
		return appErrors.Clone(appErrors.ErrPolicyViolation, fmt.Sprintf("bookings cannot be made more than %d days ahead", policy.AdvanceBookingDays))
	}
	return nil
}

// checkBusinessHours verifies [start, end) sits inside one resolved open
// interval of its day.
func (s *BookingService) checkBusinessHours(doc *models.AvailabilityDocument, start, end time.Time) error {
	slots := ResolveFromDocument(doc, start)
	if len(slots) == 0 {
		return appErrors.Clone(appErrors.ErrOutsideHours, "the professional is closed on this date")
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if !end.Truncate(24 * time.Hour).Equal(start.Truncate(24 * time.Hour)) {
		// Ends exactly at midnight counts as same-day.
		if !(end.Hour() == 0 && end.Minute() == 0 && end.Sub(start) <= 24*time.Hour) {
			return appErrors.Clone(appErrors.ErrOutsideHours, "appointments cannot span multiple days")
		}
		endMin = 24 * 60
	}

	for _, slot := range slots {
		slotStart, err := parseClock(slot.Start)
		if err != nil {
			continue
		}
		slotEnd, err := parseClock(slot.End)
		if err != nil {
			continue
		}
		if startMin >= slotStart && endMin <= slotEnd {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrOutsideHours, "requested time falls outside business hours")
}

// mapConflict converts repository overlap failures into the typed scheduling
// conflict carrying the colliding interval when known.
func (s *BookingService) mapConflict(err error, busy *models.BusyInterval) error {
	if errors.Is(err, repository.ErrOverlap) {
		conflictErr := appErrors.Clone(appErrors.ErrSchedulingConflict, "")
		if busy != nil {
			conflictErr.Err = &models.BookingConflictError{
				Message:  conflictErr.Message,
				Conflict: *busy,
			}
		}
		return conflictErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store booking")
}
