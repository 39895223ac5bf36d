package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velora-app/velora-api/internal/models"
)

// ClientRepository persists client records.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = "id, professional_id, full_name, email, phone, notes, archived, created_at, updated_at"

var clientSortColumns = map[string]string{
	"name":       "full_name",
	"email":      "email",
	"created_at": "created_at",
}

// List returns clients of a professional matching the filter.
func (r *ClientRepository) List(ctx context.Context, professionalID string, filter models.ClientFilter) ([]models.Client, int, error) {
	base := "FROM clients WHERE professional_id = $1"
	args := []interface{}{professionalID}
	idx := 2

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", idx, idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.Archived != nil {
		base += fmt.Sprintf(" AND archived = $%d", idx)
		args = append(args, *filter.Archived)
		idx++
	}

	sortBy, ok := clientSortColumns[filter.SortBy]
	if !ok {
		sortBy = "full_name"
	}
	order := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", clientColumns, base, sortBy, order, pageSize, offset)
	var clients []models.Client
	if err := r.db.SelectContext(ctx, &clients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	return clients, total, nil
}

// FindByID loads a client scoped to its professional.
func (r *ClientRepository) FindByID(ctx context.Context, professionalID, clientID string) (*models.Client, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE professional_id = $1 AND id = $2", clientColumns)
	var client models.Client
	if err := r.db.GetContext(ctx, &client, query, professionalID, clientID); err != nil {
		return nil, err
	}
	return &client, nil
}

// Create stores a new client.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	const query = `INSERT INTO clients (id, professional_id, full_name, email, phone, notes, archived, created_at, updated_at)
VALUES (:id, :professional_id, :full_name, :email, :phone, :notes, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, client); err != nil {
		if strings.Contains(err.Error(), "clients_professional_id_email_key") {
			return fmt.Errorf("client email already exists: %w", err)
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// Update rewrites a client's mutable fields.
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	client.UpdatedAt = time.Now().UTC()

	const query = `UPDATE clients SET full_name = :full_name, email = :email, phone = :phone, notes = :notes, archived = :archived, updated_at = :updated_at
WHERE professional_id = :professional_id AND id = :id`
	res, err := r.db.NamedExecContext(ctx, query, client)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Archive soft-deletes a client so history stays queryable.
func (r *ClientRepository) Archive(ctx context.Context, professionalID, clientID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET archived = TRUE, updated_at = NOW() WHERE professional_id = $1 AND id = $2`,
		professionalID, clientID)
	if err != nil {
		return fmt.Errorf("archive client: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
