package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/velora-app/velora-api/internal/models"
)

// AvailabilityRepository persists the availability aggregate: weekly template,
// booking policy and date exceptions.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

type availabilitySettingsRow struct {
	ProfessionalID     string         `db:"professional_id"`
	WeeklySchedule     types.JSONText `db:"weekly_schedule"`
	DefaultDurationMin int            `db:"default_duration_min"`
	BufferMin          int            `db:"buffer_min"`
	AdvanceBookingDays int            `db:"advance_booking_days"`
	MinNoticeHours     int            `db:"min_notice_hours"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type exceptionRow struct {
	ID             string         `db:"id"`
	ProfessionalID string         `db:"professional_id"`
	Date           time.Time      `db:"date"`
	Type           string         `db:"type"`
	Reason         *string        `db:"reason"`
	CustomSlots    types.JSONText `db:"custom_slots"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (row exceptionRow) toModel() (models.Exception, error) {
	exc := models.Exception{
		ID:             row.ID,
		ProfessionalID: row.ProfessionalID,
		Date:           row.Date,
		Type:           models.ExceptionType(row.Type),
		Reason:         row.Reason,
		CreatedAt:      row.CreatedAt,
	}
	if len(row.CustomSlots) > 0 {
		if err := json.Unmarshal(row.CustomSlots, &exc.CustomSlots); err != nil {
			return exc, fmt.Errorf("decode custom slots for exception %s: %w", row.ID, err)
		}
	}
	return exc, nil
}

// GetDocument loads the full availability aggregate for a professional.
// It returns sql.ErrNoRows when the professional never saved settings.
func (r *AvailabilityRepository) GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, error) {
	var row availabilitySettingsRow
	const query = `SELECT professional_id, weekly_schedule, default_duration_min, buffer_min, advance_booking_days, min_notice_hours, updated_at FROM availability_settings WHERE professional_id = $1`
	if err := r.db.GetContext(ctx, &row, query, professionalID); err != nil {
		return nil, err
	}

	doc := &models.AvailabilityDocument{
		Policy: models.BookingPolicy{
			DefaultDurationMin: row.DefaultDurationMin,
			BufferMin:          row.BufferMin,
			AdvanceBookingDays: row.AdvanceBookingDays,
			MinNoticeHours:     row.MinNoticeHours,
		},
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.WeeklySchedule) > 0 {
		if err := json.Unmarshal(row.WeeklySchedule, &doc.Weekly); err != nil {
			return nil, fmt.Errorf("decode weekly schedule: %w", err)
		}
	}

	exceptions, err := r.ListExceptions(ctx, professionalID, nil, nil)
	if err != nil {
		return nil, err
	}
	doc.Exceptions = exceptions
	return doc, nil
}

// SaveDocument replaces the availability aggregate in one transaction:
// settings are upserted and the exception list is rewritten.
func (r *AvailabilityRepository) SaveDocument(ctx context.Context, professionalID string, doc *models.AvailabilityDocument) error {
	weekly, err := json.Marshal(doc.Weekly)
	if err != nil {
		return fmt.Errorf("encode weekly schedule: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save availability: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	const upsert = `INSERT INTO availability_settings (professional_id, weekly_schedule, default_duration_min, buffer_min, advance_booking_days, min_notice_hours, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (professional_id) DO UPDATE SET
    weekly_schedule = EXCLUDED.weekly_schedule,
    default_duration_min = EXCLUDED.default_duration_min,
    buffer_min = EXCLUDED.buffer_min,
    advance_booking_days = EXCLUDED.advance_booking_days,
    min_notice_hours = EXCLUDED.min_notice_hours,
    updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, professionalID, types.JSONText(weekly), doc.Policy.DefaultDurationMin, doc.Policy.BufferMin, doc.Policy.AdvanceBookingDays, doc.Policy.MinNoticeHours, now); err != nil {
		return fmt.Errorf("upsert availability settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE professional_id = $1`, professionalID); err != nil {
		return fmt.Errorf("clear availability exceptions: %w", err)
	}

	for i := range doc.Exceptions {
		exc := &doc.Exceptions[i]
		if exc.ID == "" {
			exc.ID = uuid.NewString()
		}
		slots, err := json.Marshal(exc.CustomSlots)
		if err != nil {
			return fmt.Errorf("encode custom slots: %w", err)
		}
		const insert = `INSERT INTO availability_exceptions (id, professional_id, date, type, reason, custom_slots, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := tx.ExecContext(ctx, insert, exc.ID, professionalID, exc.Date, exc.Type, exc.Reason, types.JSONText(slots), now); err != nil {
			return fmt.Errorf("insert availability exception: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save availability: %w", err)
	}
	doc.UpdatedAt = now
	return nil
}

// ListExceptions returns exceptions ordered by date, optionally bounded.
func (r *AvailabilityRepository) ListExceptions(ctx context.Context, professionalID string, from, to *time.Time) ([]models.Exception, error) {
	query := `SELECT id, professional_id, date, type, reason, custom_slots, created_at FROM availability_exceptions WHERE professional_id = $1`
	args := []interface{}{professionalID}
	if from != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(" AND date < $%d", len(args)+1)
		args = append(args, *to)
	}
	query += " ORDER BY date ASC"

	var rows []exceptionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list availability exceptions: %w", err)
	}

	exceptions := make([]models.Exception, 0, len(rows))
	for _, row := range rows {
		exc, err := row.toModel()
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exc)
	}
	return exceptions, nil
}
