package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/repository"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

// WarningScheduleMissing is attached to responses computed from the built-in
// default schedule because the professional never saved one.
const WarningScheduleMissing = "schedule_missing"

type availabilityRepository interface {
	GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, error)
	SaveDocument(ctx context.Context, professionalID string, doc *models.AvailabilityDocument) error
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheLookupRecorder interface {
	RecordCacheLookup(hit bool)
}

// SaveAvailabilityRequest is the PUT payload for the availability aggregate.
type SaveAvailabilityRequest struct {
	Weekly     models.WeeklySchedule `json:"weekly_schedule" validate:"required"`
	Exceptions []ExceptionRequest    `json:"exceptions" validate:"dive"`
	Policy     models.BookingPolicy  `json:"booking_policy"`
}

// ExceptionRequest is one date override in the PUT payload.
type ExceptionRequest struct {
	Date        string             `json:"date" validate:"required"`
	Type        string             `json:"type" validate:"required,oneof=closed custom"`
	Reason      *string            `json:"reason"`
	CustomSlots []models.TimeRange `json:"custom_slots"`
}

// AvailabilityService owns the weekly template, date exceptions and booking
// policy, and resolves them into concrete open intervals per date.
type AvailabilityService struct {
	repo      availabilityRepository
	cache     availabilityCache
	metrics   cacheLookupRecorder
	defaults  models.BookingPolicy
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs AvailabilityService. cache and metrics
// may be nil; a zero defaults policy falls back to the built-in values.
func NewAvailabilityService(repo availabilityRepository, cache availabilityCache, metrics cacheLookupRecorder, defaults models.BookingPolicy, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if defaults == (models.BookingPolicy{}) {
		defaults = models.DefaultBookingPolicy()
	}
	return &AvailabilityService{repo: repo, cache: cache, metrics: metrics, defaults: defaults, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// GetDocument returns the stored aggregate, or the built-in defaults plus a
// schedule_missing warning when the professional never configured one.
func (s *AvailabilityService) GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, []string, error) {
	doc, err := s.repo.GetDocument(ctx, professionalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AvailabilityDocument{
				Weekly: models.DefaultWeeklySchedule(),
				Policy: s.defaults,
			}, []string{WarningScheduleMissing}, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	return doc, nil, nil
}

// SaveDocument validates and stores the aggregate, then drops cached resolved
// days for the professional.
func (s *AvailabilityService) SaveDocument(ctx context.Context, professionalID string, req SaveAvailabilityRequest) (*models.AvailabilityDocument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	for day, schedule := range req.Weekly {
		if day < 0 || day > 6 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day of week %d", day))
		}
		if err := validateSlots(schedule.Slots); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d: %v", day, err))
		}
		if !schedule.Active && len(schedule.Slots) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d is inactive but has slots", day))
		}
	}

	if err := validatePolicy(req.Policy); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	exceptions := make([]models.Exception, 0, len(req.Exceptions))
	seen := map[string]bool{}
	for _, exc := range req.Exceptions {
		date, err := time.Parse("2006-01-02", exc.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid exception date %q", exc.Date))
		}
		if seen[exc.Date] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate exception for %s", exc.Date))
		}
		seen[exc.Date] = true

		excType := models.ExceptionType(exc.Type)
		if excType == models.ExceptionCustom {
			if len(exc.CustomSlots) == 0 {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("custom exception %s has no slots", exc.Date))
			}
			if err := validateSlots(exc.CustomSlots); err != nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exception %s: %v", exc.Date, err))
			}
		} else if len(exc.CustomSlots) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("closed exception %s must not carry slots", exc.Date))
		}

		exceptions = append(exceptions, models.Exception{
			ProfessionalID: professionalID,
			Date:           date,
			Type:           excType,
			Reason:         exc.Reason,
			CustomSlots:    exc.CustomSlots,
		})
	}

	doc := &models.AvailabilityDocument{
		Weekly:     req.Weekly,
		Exceptions: exceptions,
		Policy:     req.Policy,
	}
	if err := s.repo.SaveDocument(ctx, professionalID, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}

	s.invalidate(ctx, professionalID)
	return doc, nil
}

// Invalidate drops cached resolved days for a professional. Booking flows call
// this after any write that changes what a day looks like.
func (s *AvailabilityService) Invalidate(ctx context.Context, professionalID string) {
	s.invalidate(ctx, professionalID)
}

func (s *AvailabilityService) invalidate(ctx context.Context, professionalID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, repository.AvailabilityPattern(professionalID)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("professional_id", professionalID), zap.Error(err))
	}
}

type resolvedDay struct {
	Slots    []models.TimeRange `json:"slots"`
	Warnings []string           `json:"warnings,omitempty"`
}

// ResolveDay computes the open intervals for one date. Precedence: closed
// exception, custom exception, weekly template, built-in default (with a
// schedule_missing warning). The result is sorted and non-overlapping.
func (s *AvailabilityService) ResolveDay(ctx context.Context, professionalID string, date time.Time) ([]models.TimeRange, []string, error) {
	cacheKey := repository.AvailabilityKey(professionalID, date.Format("2006-01-02"))
	if s.cache != nil {
		var cached resolvedDay
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheLookup(true)
			}
			return cached.Slots, cached.Warnings, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(false)
		}
	}

	doc, warnings, err := s.GetDocument(ctx, professionalID)
	if err != nil {
		return nil, nil, err
	}

	slots := ResolveFromDocument(doc, date)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resolvedDay{Slots: slots, Warnings: warnings}, s.cacheTTL); err != nil {
			s.logger.Warn("availability cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return slots, warnings, nil
}

// ResolveFromDocument applies the precedence rules against an already loaded
// aggregate. The calendar presenter uses this to avoid one lookup per day.
func ResolveFromDocument(doc *models.AvailabilityDocument, date time.Time) []models.TimeRange {
	dayKey := date.Format("2006-01-02")
	for _, exc := range doc.Exceptions {
		if exc.Date.Format("2006-01-02") != dayKey {
			continue
		}
		if exc.Type == models.ExceptionClosed {
			return nil
		}
		return sortedSlots(exc.CustomSlots)
	}

	schedule, ok := doc.Weekly[int(date.Weekday())]
	if !ok || !schedule.Active {
		return nil
	}
	return sortedSlots(schedule.Slots)
}

func sortedSlots(slots []models.TimeRange) []models.TimeRange {
	if len(slots) == 0 {
		return nil
	}
	out := make([]models.TimeRange, len(slots))
	copy(out, slots)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func validateSlots(slots []models.TimeRange) error {
	for _, slot := range slots {
		start, err := parseClock(slot.Start)
		if err != nil {
			return fmt.Errorf("invalid slot start %q", slot.Start)
		}
		end, err := parseClock(slot.End)
		if err != nil {
			return fmt.Errorf("invalid slot end %q", slot.End)
		}
		if start >= end {
			return fmt.Errorf("slot %s-%s is empty or inverted", slot.Start, slot.End)
		}
	}
	sorted := sortedSlots(slots)
	for i := 1; i < len(sorted); i++ {
		prevEnd, _ := parseClock(sorted[i-1].End)
		curStart, _ := parseClock(sorted[i].Start)
		if curStart < prevEnd {
			return fmt.Errorf("slots %s-%s and %s-%s overlap", sorted[i-1].Start, sorted[i-1].End, sorted[i].Start, sorted[i].End)
		}
	}
	return nil
}

func validatePolicy(policy models.BookingPolicy) error {
	if policy.DefaultDurationMin < 5 || policy.DefaultDurationMin > 480 {
		return fmt.Errorf("default duration %d out of range", policy.DefaultDurationMin)
	}
	if policy.BufferMin < 0 || policy.BufferMin > 120 {
		return fmt.Errorf("buffer %d out of range", policy.BufferMin)
	}
	if policy.AdvanceBookingDays < 1 || policy.AdvanceBookingDays > 365 {
		return fmt.Errorf("advance booking window %d out of range", policy.AdvanceBookingDays)
	}
	if policy.MinNoticeHours < 0 || policy.MinNoticeHours > 168 {
		return fmt.Errorf("minimum notice %d out of range", policy.MinNoticeHours)
	}
	return nil
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
