package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/export"
)

type clientRepository interface {
	List(ctx context.Context, professionalID string, filter models.ClientFilter) ([]models.Client, int, error)
	FindByID(ctx context.Context, professionalID, clientID string) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	Archive(ctx context.Context, professionalID, clientID string) error
}

type appointmentHistorySource interface {
	HistoryByClient(ctx context.Context, professionalID, clientID string) ([]models.Appointment, error)
}

// ClientRequest is the create/update payload for a client.
type ClientRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone"`
	Notes    *string `json:"notes"`
}

// ClientService manages the tenant-scoped client roster.
type ClientService struct {
	repo      clientRepository
	history   appointmentHistorySource
	exporter  *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClientService constructs ClientService.
func NewClientService(repo clientRepository, history appointmentHistorySource, validate *validator.Validate, logger *zap.Logger) *ClientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{repo: repo, history: history, exporter: export.NewCSVExporter(), validator: validate, logger: logger}
}

// List returns clients with pagination metadata.
func (s *ClientService) List(ctx context.Context, professionalID string, filter models.ClientFilter) ([]models.Client, *models.Pagination, error) {
	clients, total, err := s.repo.List(ctx, professionalID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return clients, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single client.
func (s *ClientService) Get(ctx context.Context, professionalID, clientID string) (*models.Client, error) {
	client, err := s.repo.FindByID(ctx, professionalID, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	return client, nil
}

// Create stores a new client. Email must be unique within the professional.
func (s *ClientService) Create(ctx context.Context, professionalID string, req ClientRequest) (*models.Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}
	client := &models.Client{
		ProfessionalID: professionalID,
		FullName:       req.FullName,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          req.Phone,
		Notes:          req.Notes,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a client with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create client")
	}
	return client, nil
}

// Update rewrites a client's details.
func (s *ClientService) Update(ctx context.Context, professionalID, clientID string, req ClientRequest) (*models.Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}
	client, err := s.Get(ctx, professionalID, clientID)
	if err != nil {
		return nil, err
	}
	client.FullName = req.FullName
	client.Email = strings.ToLower(strings.TrimSpace(req.Email))
	client.Phone = req.Phone
	client.Notes = req.Notes
	if err := s.repo.Update(ctx, client); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update client")
	}
	return client, nil
}

// Archive soft-deletes a client; past appointments and invoices stay intact.
func (s *ClientService) Archive(ctx context.Context, professionalID, clientID string) error {
	if err := s.repo.Archive(ctx, professionalID, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive client")
	}
	return nil
}

// ExportHistoryCSV renders a client's appointment history as CSV.
func (s *ClientService) ExportHistoryCSV(ctx context.Context, professionalID, clientID string) ([]byte, error) {
	history, err := s.history.HistoryByClient(ctx, professionalID, clientID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(history))
	for _, apt := range history {
		serviceID := ""
		if apt.ServiceID != nil {
			serviceID = *apt.ServiceID
		}
		rows = append(rows, map[string]string{
			"id":         apt.ID,
			"service_id": serviceID,
			"start_time": apt.StartTime.Format(time.RFC3339),
			"end_time":   apt.EndTime.Format(time.RFC3339),
			"status":     string(apt.Status),
		})
	}
	return s.exporter.Render(export.Dataset{
		Headers: []string{"id", "service_id", "start_time", "end_time", "status"},
		Rows:    rows,
	})
}
