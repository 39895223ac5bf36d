package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/velora-app/velora-api/internal/models"
)

// exclusionViolation is the SQLSTATE raised by the appointments_no_overlap
// exclusion constraint.
const exclusionViolation = "23P01"

// ErrOverlap is returned when the database rejects an insert because the
// interval collides with a non-cancelled booking.
var ErrOverlap = errors.New("booking interval overlaps an existing record")

// AppointmentRepository provides persistence for appointments and blocked
// times, which share one table discriminated by kind.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = "id, professional_id, client_id, service_id, kind, start_time, end_time, status, notes, created_at, updated_at"

// List returns appointments for a professional with optional filtering and
// pagination.
func (r *AppointmentRepository) List(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE professional_id = $1"
	args := []interface{}{professionalID}
	var conditions []string

	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_time > $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_time": true,
		"created_at": true,
		"status":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_time"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", appointmentColumns, base, sortBy, order, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// ListForRange returns non-cancelled appointments touching [from, to) ordered
// by start time. Used by the calendar presenter and export flows.
func (r *AppointmentRepository) ListForRange(ctx context.Context, professionalID string, from, to time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE professional_id = $1 AND status <> 'cancelled' AND start_time < $3 AND end_time > $2 ORDER BY start_time ASC", appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, professionalID, from, to); err != nil {
		return nil, fmt.Errorf("list appointments for range: %w", err)
	}
	return appointments, nil
}

// AppointmentWithNames carries display fields joined in for rendering.
type AppointmentWithNames struct {
	models.Appointment
	ClientName  *string `db:"client_name"`
	ServiceName *string `db:"service_name"`
}

// ListForRangeDetailed is ListForRange with client and service names joined
// in, for the calendar presenter.
func (r *AppointmentRepository) ListForRangeDetailed(ctx context.Context, professionalID string, from, to time.Time) ([]AppointmentWithNames, error) {
	const query = `
SELECT a.id, a.professional_id, a.client_id, a.service_id, a.kind, a.start_time, a.end_time, a.status, a.notes, a.created_at, a.updated_at,
       c.full_name AS client_name, s.name AS service_name
FROM appointments a
LEFT JOIN clients c ON c.id = a.client_id
LEFT JOIN services s ON s.id = a.service_id
WHERE a.professional_id = $1
  AND a.status <> 'cancelled'
  AND a.start_time < $3
  AND a.end_time > $2
ORDER BY a.start_time ASC`
	var rows []AppointmentWithNames
	if err := r.db.SelectContext(ctx, &rows, query, professionalID, from, to); err != nil {
		return nil, fmt.Errorf("list appointments for range: %w", err)
	}
	return rows, nil
}

// FindByID loads one appointment scoped to its owning professional.
func (r *AppointmentRepository) FindByID(ctx context.Context, professionalID, id string) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE professional_id = $1 AND id = $2", appointmentColumns)
	var apt models.Appointment
	if err := r.db.GetContext(ctx, &apt, query, professionalID, id); err != nil {
		return nil, err
	}
	return &apt, nil
}

const overlapQuery = `
SELECT id AS ref_id, 'appointment' AS source, kind, start_time, end_time
FROM appointments
WHERE professional_id = $1
  AND status <> 'cancelled'
  AND id <> $2
  AND start_time < $4 + make_interval(mins => $5)
  AND end_time > $3 - make_interval(mins => $5)
UNION ALL
SELECT s.id AS ref_id, 'group_class_session' AS source, 'appointment' AS kind, s.start_time, s.end_time
FROM group_class_sessions s
JOIN group_classes gc ON gc.id = s.class_id
WHERE gc.professional_id = $1
  AND s.cancelled = FALSE
  AND s.start_time < $4 + make_interval(mins => $5)
  AND s.end_time > $3 - make_interval(mins => $5)
ORDER BY start_time ASC`

// FindOverlapping returns busy intervals of the professional colliding with
// [start, end) using half-open overlap, with every existing interval expanded
// by bufferMin on both sides. excludeID skips one appointment (reschedules).
func (r *AppointmentRepository) FindOverlapping(ctx context.Context, professionalID string, start, end time.Time, bufferMin int, excludeID string) ([]models.BusyInterval, error) {
	var busy []models.BusyInterval
	if err := r.db.SelectContext(ctx, &busy, overlapQuery, professionalID, excludeID, start, end, bufferMin); err != nil {
		return nil, fmt.Errorf("find overlapping bookings: %w", err)
	}
	return busy, nil
}

// CreateChecked runs the conflict check and the insert in one transaction so
// that concurrent requests cannot both pass the check. The exclusion
// constraint backs this up at the storage level; either path surfaces as
// ErrOverlap.
func (r *AppointmentRepository) CreateChecked(ctx context.Context, apt *models.Appointment, bufferMin int) (*models.BusyInterval, error) {
	if apt.ID == "" {
		apt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin create appointment: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var busy []models.BusyInterval
	if err := tx.SelectContext(ctx, &busy, overlapQuery, apt.ProfessionalID, apt.ID, apt.StartTime, apt.EndTime, bufferMin); err != nil {
		return nil, fmt.Errorf("check overlapping bookings: %w", err)
	}
	if len(busy) > 0 {
		first := busy[0]
		return &first, ErrOverlap
	}

	const insert = `INSERT INTO appointments (id, professional_id, client_id, service_id, kind, start_time, end_time, status, notes, created_at, updated_at)
VALUES (:id, :professional_id, :client_id, :service_id, :kind, :start_time, :end_time, :status, :notes, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, apt); err != nil {
		if isOverlapViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isOverlapViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("commit create appointment: %w", err)
	}
	return nil, nil
}

// RescheduleChecked moves an appointment to a new interval under the same
// transactional conflict guard as CreateChecked.
func (r *AppointmentRepository) RescheduleChecked(ctx context.Context, apt *models.Appointment, bufferMin int) (*models.BusyInterval, error) {
	apt.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin reschedule appointment: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var busy []models.BusyInterval
	if err := tx.SelectContext(ctx, &busy, overlapQuery, apt.ProfessionalID, apt.ID, apt.StartTime, apt.EndTime, bufferMin); err != nil {
		return nil, fmt.Errorf("check overlapping bookings: %w", err)
	}
	if len(busy) > 0 {
		first := busy[0]
		return &first, ErrOverlap
	}

	const update = `UPDATE appointments SET start_time = :start_time, end_time = :end_time, status = :status, notes = :notes, updated_at = :updated_at WHERE id = :id AND professional_id = :professional_id`
	if _, err := tx.NamedExecContext(ctx, update, apt); err != nil {
		if isOverlapViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isOverlapViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("commit reschedule appointment: %w", err)
	}
	return nil, nil
}

// UpdateStatus performs a status transition.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, professionalID, id string, status models.AppointmentStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $3, updated_at = $4 WHERE professional_id = $1 AND id = $2`, professionalID, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an appointment record.
func (r *AppointmentRepository) Delete(ctx context.Context, professionalID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE professional_id = $1 AND id = $2`, professionalID, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByClient returns the full appointment history for one client.
func (r *AppointmentRepository) ListByClient(ctx context.Context, professionalID, clientID string) ([]models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE professional_id = $1 AND client_id = $2 ORDER BY start_time DESC", appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, professionalID, clientID); err != nil {
		return nil, fmt.Errorf("list appointments by client: %w", err)
	}
	return appointments, nil
}

func isOverlapViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == exclusionViolation
	}
	return false
}
