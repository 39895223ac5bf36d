package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/velora-app/velora-api/internal/models"
)

// ProfessionalRepository persists tenant accounts.
type ProfessionalRepository struct {
	db *sqlx.DB
}

// NewProfessionalRepository creates a new professional repository.
func NewProfessionalRepository(db *sqlx.DB) *ProfessionalRepository {
	return &ProfessionalRepository{db: db}
}

const professionalColumns = "id, email, full_name, profession, timezone, active, created_at, updated_at"

// FindByID loads a professional by id.
func (r *ProfessionalRepository) FindByID(ctx context.Context, id string) (*models.Professional, error) {
	query := fmt.Sprintf("SELECT %s FROM professionals WHERE id = $1", professionalColumns)
	var professional models.Professional
	if err := r.db.GetContext(ctx, &professional, query, id); err != nil {
		return nil, err
	}
	return &professional, nil
}

// Update rewrites a professional's mutable fields.
func (r *ProfessionalRepository) Update(ctx context.Context, professional *models.Professional) error {
	professional.UpdatedAt = time.Now().UTC()

	const query = `UPDATE professionals SET email = :email, full_name = :full_name, profession = :profession, timezone = :timezone, active = :active, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, professional)
	if err != nil {
		return fmt.Errorf("update professional: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
