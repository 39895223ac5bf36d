package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velora-app/velora-api/internal/models"
)

// ServiceRepository persists bookable service offerings.
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository creates a new service repository.
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

const serviceColumns = "id, professional_id, name, description, duration_min, price_cents, active, created_at, updated_at"

// List returns the services of a professional.
func (r *ServiceRepository) List(ctx context.Context, professionalID string, activeOnly bool) ([]models.Service, error) {
	query := fmt.Sprintf("SELECT %s FROM services WHERE professional_id = $1", serviceColumns)
	if activeOnly {
		query += " AND active = TRUE"
	}
	query += " ORDER BY name ASC"

	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, query, professionalID); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// FindByID loads a service scoped to its professional.
func (r *ServiceRepository) FindByID(ctx context.Context, professionalID, serviceID string) (*models.Service, error) {
	query := fmt.Sprintf("SELECT %s FROM services WHERE professional_id = $1 AND id = $2", serviceColumns)
	var service models.Service
	if err := r.db.GetContext(ctx, &service, query, professionalID, serviceID); err != nil {
		return nil, err
	}
	return &service, nil
}

// Create stores a new service.
func (r *ServiceRepository) Create(ctx context.Context, service *models.Service) error {
	if service.ID == "" {
		service.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	service.CreatedAt = now
	service.UpdatedAt = now

	const query = `INSERT INTO services (id, professional_id, name, description, duration_min, price_cents, active, created_at, updated_at)
VALUES (:id, :professional_id, :name, :description, :duration_min, :price_cents, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// Update rewrites a service's mutable fields.
func (r *ServiceRepository) Update(ctx context.Context, service *models.Service) error {
	service.UpdatedAt = time.Now().UTC()

	const query = `UPDATE services SET name = :name, description = :description, duration_min = :duration_min, price_cents = :price_cents, active = :active, updated_at = :updated_at
WHERE professional_id = :professional_id AND id = :id`
	res, err := r.db.NamedExecContext(ctx, query, service)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate hides a service from booking without breaking past appointments.
func (r *ServiceRepository) Deactivate(ctx context.Context, professionalID, serviceID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE services SET active = FALSE, updated_at = NOW() WHERE professional_id = $1 AND id = $2`,
		professionalID, serviceID)
	if err != nil {
		return fmt.Errorf("deactivate service: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
