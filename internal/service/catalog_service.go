package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type serviceRepository interface {
	List(ctx context.Context, professionalID string, activeOnly bool) ([]models.Service, error)
	FindByID(ctx context.Context, professionalID, serviceID string) (*models.Service, error)
	Create(ctx context.Context, service *models.Service) error
	Update(ctx context.Context, service *models.Service) error
	Deactivate(ctx context.Context, professionalID, serviceID string) error
}

// ServiceRequest is the create/update payload for a bookable offering.
type ServiceRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	DurationMin int     `json:"duration_min" validate:"required,min=5,max=480"`
	PriceCents  int64   `json:"price_cents" validate:"min=0"`
}

// CatalogService manages the offerings a professional exposes for booking.
type CatalogService struct {
	repo      serviceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo serviceRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, validator: validate, logger: logger}
}

// List returns the offerings of a professional.
func (s *CatalogService) List(ctx context.Context, professionalID string, activeOnly bool) ([]models.Service, error) {
	services, err := s.repo.List(ctx, professionalID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list services")
	}
	return services, nil
}

// Create stores a new offering.
func (s *CatalogService) Create(ctx context.Context, professionalID string, req ServiceRequest) (*models.Service, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}
	offering := &models.Service{
		ProfessionalID: professionalID,
		Name:           req.Name,
		Description:    req.Description,
		DurationMin:    req.DurationMin,
		PriceCents:     req.PriceCents,
		Active:         true,
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service")
	}
	return offering, nil
}

// Update rewrites an offering.
func (s *CatalogService) Update(ctx context.Context, professionalID, serviceID string, req ServiceRequest) (*models.Service, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}
	offering, err := s.repo.FindByID(ctx, professionalID, serviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
	}
	offering.Name = req.Name
	offering.Description = req.Description
	offering.DurationMin = req.DurationMin
	offering.PriceCents = req.PriceCents
	if err := s.repo.Update(ctx, offering); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update service")
	}
	return offering, nil
}

// Deactivate hides an offering from new bookings.
func (s *CatalogService) Deactivate(ctx context.Context, professionalID, serviceID string) error {
	if err := s.repo.Deactivate(ctx, professionalID, serviceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate service")
	}
	return nil
}
