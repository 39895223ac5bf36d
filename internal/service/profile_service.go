package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type professionalRepository interface {
	FindByID(ctx context.Context, id string) (*models.Professional, error)
	Update(ctx context.Context, professional *models.Professional) error
}

// UpdateProfileRequest is the payload for PUT profile. Email is immutable
// here, it belongs to the identity service.
type UpdateProfileRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Profession string `json:"profession" validate:"required"`
	Timezone   string `json:"timezone" validate:"required"`
}

// ProfileService reads and updates the tenant account record.
type ProfileService struct {
	repo      professionalRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(repo professionalRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger}
}

// Get returns the professional's own profile.
func (s *ProfileService) Get(ctx context.Context, professionalID string) (*models.Professional, error) {
	professional, err := s.repo.FindByID(ctx, professionalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professional not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return professional, nil
}

// Update rewrites the mutable profile fields. The timezone must be a valid
// IANA name since all schedule resolution depends on it.
func (s *ProfileService) Update(ctx context.Context, professionalID string, req UpdateProfileRequest) (*models.Professional, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown timezone")
	}

	professional, err := s.Get(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	professional.FullName = req.FullName
	professional.Profession = req.Profession
	professional.Timezone = req.Timezone

	if err := s.repo.Update(ctx, professional); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professional not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return professional, nil
}
