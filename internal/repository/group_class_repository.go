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

// ErrSessionFull is returned when a registration would exceed the class
// capacity.
var ErrSessionFull = fmt.Errorf("session capacity reached")

// GroupClassRepository persists group classes, their sessions and
// registrations.
type GroupClassRepository struct {
	db *sqlx.DB
}

// NewGroupClassRepository creates a new group class repository.
func NewGroupClassRepository(db *sqlx.DB) *GroupClassRepository {
	return &GroupClassRepository{db: db}
}

const classColumns = "id, professional_id, name, description, category, location, max_participants, price_cents, active, created_at, updated_at"

// ListClasses returns classes for a professional.
func (r *GroupClassRepository) ListClasses(ctx context.Context, professionalID string, activeOnly bool, page, pageSize int) ([]models.GroupClass, int, error) {
	base := "FROM group_classes WHERE professional_id = $1"
	args := []interface{}{professionalID}
	if activeOnly {
		base += " AND active = TRUE"
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", classColumns, base, pageSize, offset)
	var classes []models.GroupClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list group classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count group classes: %w", err)
	}
	return classes, total, nil
}

// FindClass loads a class scoped to its professional.
func (r *GroupClassRepository) FindClass(ctx context.Context, professionalID, classID string) (*models.GroupClass, error) {
	query := fmt.Sprintf("SELECT %s FROM group_classes WHERE professional_id = $1 AND id = $2", classColumns)
	var class models.GroupClass
	if err := r.db.GetContext(ctx, &class, query, professionalID, classID); err != nil {
		return nil, err
	}
	return &class, nil
}

// CreateClass stores a new group class.
func (r *GroupClassRepository) CreateClass(ctx context.Context, class *models.GroupClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO group_classes (id, professional_id, name, description, category, location, max_participants, price_cents, active, created_at, updated_at)
VALUES (:id, :professional_id, :name, :description, :category, :location, :max_participants, :price_cents, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create group class: %w", err)
	}
	return nil
}

// DeleteClass removes a class; sessions and registrations cascade.
func (r *GroupClassRepository) DeleteClass(ctx context.Context, professionalID, classID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_classes WHERE professional_id = $1 AND id = $2`, professionalID, classID)
	if err != nil {
		return fmt.Errorf("delete group class: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSessions returns sessions of a class ordered by start time.
func (r *GroupClassRepository) ListSessions(ctx context.Context, classID string) ([]models.GroupClassSession, error) {
	const query = `SELECT id, class_id, start_time, end_time, cancelled, created_at FROM group_class_sessions WHERE class_id = $1 ORDER BY start_time ASC`
	var sessions []models.GroupClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, classID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// SessionWithClass pairs a session with its class attributes for rendering.
type SessionWithClass struct {
	models.GroupClassSession
	ClassName       string `db:"class_name"`
	MaxParticipants int    `db:"max_participants"`
	ActiveCount     int    `db:"active_count"`
}

// ListSessionsForRange returns non-cancelled sessions of a professional
// touching [from, to), with class name, capacity and registration counts.
func (r *GroupClassRepository) ListSessionsForRange(ctx context.Context, professionalID string, from, to time.Time) ([]SessionWithClass, error) {
	const query = `
SELECT s.id, s.class_id, s.start_time, s.end_time, s.cancelled, s.created_at,
       gc.name AS class_name, gc.max_participants,
       COUNT(sr.id) FILTER (WHERE sr.status = 'active') AS active_count
FROM group_class_sessions s
JOIN group_classes gc ON gc.id = s.class_id
LEFT JOIN session_registrations sr ON sr.session_id = s.id
WHERE gc.professional_id = $1
  AND s.cancelled = FALSE
  AND s.start_time < $3
  AND s.end_time > $2
GROUP BY s.id, gc.name, gc.max_participants
ORDER BY s.start_time ASC`
	var sessions []SessionWithClass
	if err := r.db.SelectContext(ctx, &sessions, query, professionalID, from, to); err != nil {
		return nil, fmt.Errorf("list sessions for range: %w", err)
	}
	return sessions, nil
}

// FindSession loads a session belonging to a class of the professional.
func (r *GroupClassRepository) FindSession(ctx context.Context, professionalID, sessionID string) (*models.GroupClassSession, error) {
	const query = `
SELECT s.id, s.class_id, s.start_time, s.end_time, s.cancelled, s.created_at
FROM group_class_sessions s
JOIN group_classes gc ON gc.id = s.class_id
WHERE gc.professional_id = $1 AND s.id = $2`
	var session models.GroupClassSession
	if err := r.db.GetContext(ctx, &session, query, professionalID, sessionID); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSession stores a new session occurrence.
func (r *GroupClassRepository) CreateSession(ctx context.Context, session *models.GroupClassSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO group_class_sessions (id, class_id, start_time, end_time, cancelled, created_at) VALUES (:id, :class_id, :start_time, :end_time, :cancelled, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session; registrations cascade.
func (r *GroupClassRepository) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_class_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateRegistration inserts a registration after re-checking capacity inside
// the transaction. The class row is locked so concurrent registrations for a
// full session cannot both pass the count.
func (r *GroupClassRepository) CreateRegistration(ctx context.Context, classID string, reg *models.SessionRegistration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.Status == "" {
		reg.Status = models.RegistrationActive
	}
	reg.RegisteredAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create registration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT max_participants FROM group_classes WHERE id = $1 FOR UPDATE`, classID); err != nil {
		return fmt.Errorf("lock class for registration: %w", err)
	}

	var active int
	if err := tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM session_registrations WHERE session_id = $1 AND status = 'active'`, reg.SessionID); err != nil {
		return fmt.Errorf("count active registrations: %w", err)
	}
	if active >= capacity {
		return ErrSessionFull
	}

	const insert = `INSERT INTO session_registrations (id, session_id, client_id, status, registered_at) VALUES (:id, :session_id, :client_id, :status, :registered_at)`
	if _, err := tx.NamedExecContext(ctx, insert, reg); err != nil {
		if strings.Contains(err.Error(), "session_registrations_session_id_client_id_key") {
			return fmt.Errorf("client already registered: %w", err)
		}
		return fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create registration: %w", err)
	}
	return nil
}

// CancelRegistration marks a registration cancelled.
func (r *GroupClassRepository) CancelRegistration(ctx context.Context, sessionID, registrationID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE session_registrations SET status = 'cancelled' WHERE id = $1 AND session_id = $2`, registrationID, sessionID)
	if err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActiveParticipantsBySession returns the active registrants of one
// session with client contact details.
func (r *GroupClassRepository) ListActiveParticipantsBySession(ctx context.Context, sessionID string) ([]models.Participant, error) {
	const query = `
SELECT sr.id AS registration_id, c.id AS client_id, c.full_name AS client_name, c.email AS client_email
FROM session_registrations sr
JOIN clients c ON c.id = sr.client_id
WHERE sr.session_id = $1 AND sr.status = 'active'
ORDER BY sr.registered_at ASC`
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session participants: %w", err)
	}
	return participants, nil
}

// ListActiveParticipantsByClass returns active registrants across every
// session of a class.
func (r *GroupClassRepository) ListActiveParticipantsByClass(ctx context.Context, classID string) ([]models.Participant, error) {
	const query = `
SELECT sr.id AS registration_id, c.id AS client_id, c.full_name AS client_name, c.email AS client_email
FROM session_registrations sr
JOIN group_class_sessions s ON s.id = sr.session_id
JOIN clients c ON c.id = sr.client_id
WHERE s.class_id = $1 AND sr.status = 'active' AND s.cancelled = FALSE
ORDER BY sr.registered_at ASC`
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, classID); err != nil {
		return nil, fmt.Errorf("list class participants: %w", err)
	}
	return participants, nil
}

// ListRegistrations returns all registrations of a session with client info.
func (r *GroupClassRepository) ListRegistrations(ctx context.Context, sessionID string) ([]models.SessionRegistration, error) {
	const query = `
SELECT sr.id, sr.session_id, sr.client_id, sr.status, sr.registered_at,
       c.full_name AS client_name, c.email AS client_email
FROM session_registrations sr
JOIN clients c ON c.id = sr.client_id
WHERE sr.session_id = $1
ORDER BY sr.registered_at ASC`
	var regs []models.SessionRegistration
	if err := r.db.SelectContext(ctx, &regs, query, sessionID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}
