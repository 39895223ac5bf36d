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

type groupClassRepository interface {
	ListClasses(ctx context.Context, professionalID string, activeOnly bool, page, pageSize int) ([]models.GroupClass, int, error)
	FindClass(ctx context.Context, professionalID, classID string) (*models.GroupClass, error)
	CreateClass(ctx context.Context, class *models.GroupClass) error
	DeleteClass(ctx context.Context, professionalID, classID string) error
	ListSessions(ctx context.Context, classID string) ([]models.GroupClassSession, error)
	FindSession(ctx context.Context, professionalID, sessionID string) (*models.GroupClassSession, error)
	CreateSession(ctx context.Context, session *models.GroupClassSession) error
	DeleteSession(ctx context.Context, sessionID string) error
	CreateRegistration(ctx context.Context, classID string, reg *models.SessionRegistration) error
	CancelRegistration(ctx context.Context, sessionID, registrationID string) error
	ListActiveParticipantsBySession(ctx context.Context, sessionID string) ([]models.Participant, error)
	ListActiveParticipantsByClass(ctx context.Context, classID string) ([]models.Participant, error)
	ListRegistrations(ctx context.Context, sessionID string) ([]models.SessionRegistration, error)
}

type cancellationNotifier interface {
	SendCancellationNotice(to, clientName, what string) bool
}

// CreateGroupClassRequest is the class creation payload.
type CreateGroupClassRequest struct {
	Name            string  `json:"name" validate:"required"`
	Description     *string `json:"description"`
	Category        string  `json:"category"`
	Location        *string `json:"location"`
	MaxParticipants int     `json:"max_participants" validate:"required,min=1,max=500"`
	PriceCents      int64   `json:"price_cents" validate:"min=0"`
}

// CreateSessionRequest schedules one occurrence of a class.
type CreateSessionRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// RegisterClientRequest adds a client to a session.
type RegisterClientRequest struct {
	ClientID string `json:"client_id" validate:"required"`
}

// DeletionResult reports the outcome of a forced destructive action.
type DeletionResult struct {
	NotificationsSent int `json:"notifications_sent"`
}

// GroupClassService manages classes, sessions, registrations and the
// two-phase deletion protocol for records with active registrants.
type GroupClassService struct {
	repo      groupClassRepository
	clients   clientReader
	notifier  cancellationNotifier
	cache     dayResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupClassService constructs GroupClassService.
func NewGroupClassService(repo groupClassRepository, clients clientReader, notifier cancellationNotifier, cache dayResolver, validate *validator.Validate, logger *zap.Logger) *GroupClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupClassService{repo: repo, clients: clients, notifier: notifier, cache: cache, validator: validate, logger: logger}
}

// ListClasses returns classes with pagination metadata.
func (s *GroupClassService) ListClasses(ctx context.Context, professionalID string, activeOnly bool, page, pageSize int) ([]models.GroupClass, *models.Pagination, error) {
	classes, total, err := s.repo.ListClasses(ctx, professionalID, activeOnly, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group classes")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// CreateClass stores a new class definition.
func (s *GroupClassService) CreateClass(ctx context.Context, professionalID string, req CreateGroupClassRequest) (*models.GroupClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group class payload")
	}
	class := &models.GroupClass{
		ProfessionalID:  professionalID,
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
		PriceCents:      req.PriceCents,
		Active:          true,
	}
	if err := s.repo.CreateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group class")
	}
	return class, nil
}

// DeleteClass removes a class. With active registrants and force unset it
// returns the confirmation-required error carrying who would be affected;
// with force it deletes and emails every active registrant.
func (s *GroupClassService) DeleteClass(ctx context.Context, professionalID, classID string, force bool) (*DeletionResult, error) {
	class, err := s.findClass(ctx, professionalID, classID)
	if err != nil {
		return nil, err
	}

	participants, err := s.repo.ListActiveParticipantsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrants")
	}
	if len(participants) > 0 && !force {
		confirm := appErrors.Clone(appErrors.ErrNeedsConfirmation, fmt.Sprintf("%d clients are registered to sessions of this class", len(participants)))
		confirm.Err = &models.NeedsConfirmationError{Message: confirm.Message, Participants: participants}
		return nil, confirm
	}

	if err := s.repo.DeleteClass(ctx, professionalID, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group class")
	}
	s.cache.Invalidate(ctx, professionalID)

	sent := s.notifyAll(participants, fmt.Sprintf("The class %q", class.Name))
	s.logger.Info("group class deleted",
		zap.String("professional_id", professionalID),
		zap.String("class_id", classID),
		zap.Int("notifications_sent", sent))
	return &DeletionResult{NotificationsSent: sent}, nil
}

// ListSessions returns the sessions of a class with their registrations.
func (s *GroupClassService) ListSessions(ctx context.Context, professionalID, classID string) ([]models.GroupClassSession, error) {
	if _, err := s.findClass(ctx, professionalID, classID); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListSessions(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	for i := range sessions {
		regs, err := s.repo.ListRegistrations(ctx, sessions[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
		}
		sessions[i].Registrations = regs
	}
	return sessions, nil
}

// CreateSession schedules an occurrence for a class.
func (s *GroupClassService) CreateSession(ctx context.Context, professionalID, classID string, req CreateSessionRequest) (*models.GroupClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	start := req.StartTime.UTC()
	end := req.EndTime.UTC()
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if _, err := s.findClass(ctx, professionalID, classID); err != nil {
		return nil, err
	}

	session := &models.GroupClassSession{ClassID: classID, StartTime: start, EndTime: end}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	// New sessions occupy the calendar and the conflict checker.
	s.cache.Invalidate(ctx, professionalID)
	return session, nil
}

// DeleteSession removes one occurrence under the two-phase protocol.
func (s *GroupClassService) DeleteSession(ctx context.Context, professionalID, classID, sessionID string, force bool) (*DeletionResult, error) {
	class, err := s.findClass(ctx, professionalID, classID)
	if err != nil {
		return nil, err
	}
	session, err := s.findSession(ctx, professionalID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ClassID != classID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	participants, err := s.repo.ListActiveParticipantsBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrants")
	}
	if len(participants) > 0 && !force {
		confirm := appErrors.Clone(appErrors.ErrNeedsConfirmation, fmt.Sprintf("%d clients are registered to this session", len(participants)))
		confirm.Err = &models.NeedsConfirmationError{Message: confirm.Message, Participants: participants}
		return nil, confirm
	}

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.cache.Invalidate(ctx, professionalID)

	what := fmt.Sprintf("The %s session of %q", session.StartTime.Format("2 January 15:04"), class.Name)
	sent := s.notifyAll(participants, what)
	return &DeletionResult{NotificationsSent: sent}, nil
}

// Register adds a client to a session; capacity is re-checked inside the
// insert transaction.
func (s *GroupClassService) Register(ctx context.Context, professionalID, classID, sessionID string, req RegisterClientRequest) (*models.SessionRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	session, err := s.findSession(ctx, professionalID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ClassID != classID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if session.Cancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "session is cancelled")
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

	reg := &models.SessionRegistration{SessionID: sessionID, ClientID: req.ClientID}
	if err := s.repo.CreateRegistration(ctx, classID, reg); err != nil {
		if errors.Is(err, repository.ErrSessionFull) {
			return nil, appErrors.Clone(appErrors.ErrCapacityFull, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "failed to register client")
	}
	reg.ClientName = client.FullName
	reg.ClientEmail = client.Email
	return reg, nil
}

// Unregister cancels a registration, freeing one capacity slot.
func (s *GroupClassService) Unregister(ctx context.Context, professionalID, classID, sessionID, registrationID string) error {
	session, err := s.findSession(ctx, professionalID, sessionID)
	if err != nil {
		return err
	}
	if session.ClassID != classID {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if err := s.repo.CancelRegistration(ctx, sessionID, registrationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}
	return nil
}

func (s *GroupClassService) findClass(ctx context.Context, professionalID, classID string) (*models.GroupClass, error) {
	class, err := s.repo.FindClass(ctx, professionalID, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group class")
	}
	return class, nil
}

func (s *GroupClassService) findSession(ctx context.Context, professionalID, sessionID string) (*models.GroupClassSession, error) {
	session, err := s.repo.FindSession(ctx, professionalID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *GroupClassService) notifyAll(participants []models.Participant, what string) int {
	if s.notifier == nil {
		return 0
	}
	sent := 0
	for _, p := range participants {
		if s.notifier.SendCancellationNotice(p.ClientEmail, p.ClientName, what) {
			sent++
		}
	}
	return sent
}
