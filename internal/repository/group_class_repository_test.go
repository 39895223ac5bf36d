package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
)

func newGroupClassMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGroupClassRepositoryCreateRegistration(t *testing.T) {
	db, mock, cleanup := newGroupClassMock(t)
	defer cleanup()
	repo := NewGroupClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_participants FROM group_classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM session_registrations WHERE session_id = $1 AND status = 'active'")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec("INSERT INTO session_registrations").
		WithArgs(sqlmock.AnyArg(), "sess-1", "cli-1", models.RegistrationActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reg := &models.SessionRegistration{SessionID: "sess-1", ClientID: "cli-1"}
	err := repo.CreateRegistration(context.Background(), "class-1", reg)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.Equal(t, models.RegistrationActive, reg.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupClassRepositoryCreateRegistrationFull(t *testing.T) {
	db, mock, cleanup := newGroupClassMock(t)
	defer cleanup()
	repo := NewGroupClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_participants FROM group_classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM session_registrations WHERE session_id = $1 AND status = 'active'")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	err := repo.CreateRegistration(context.Background(), "class-1", &models.SessionRegistration{SessionID: "sess-1", ClientID: "cli-1"})
	require.ErrorIs(t, err, ErrSessionFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupClassRepositoryListActiveParticipantsBySession(t *testing.T) {
	db, mock, cleanup := newGroupClassMock(t)
	defer cleanup()
	repo := NewGroupClassRepository(db)

	rows := sqlmock.NewRows([]string{"registration_id", "client_id", "client_name", "client_email"}).
		AddRow("reg-1", "cli-1", "Alice Martin", "alice@example.com").
		AddRow("reg-2", "cli-2", "Bob Leroy", "bob@example.com")
	mock.ExpectQuery("SELECT sr.id AS registration_id").
		WithArgs("sess-1").
		WillReturnRows(rows)

	participants, err := repo.ListActiveParticipantsBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "alice@example.com", participants[0].ClientEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupClassRepositoryListSessionsForRange(t *testing.T) {
	db, mock, cleanup := newGroupClassMock(t)
	defer cleanup()
	repo := NewGroupClassRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	rows := sqlmock.NewRows([]string{"id", "class_id", "start_time", "end_time", "cancelled", "created_at", "class_name", "max_participants", "active_count"}).
		AddRow("sess-1", "class-1", from.Add(9*time.Hour), from.Add(10*time.Hour), false, from, "Yoga Flow", 12, 7)
	mock.ExpectQuery("SELECT s.id, s.class_id").
		WithArgs("pro-1", from, to).
		WillReturnRows(rows)

	sessions, err := repo.ListSessionsForRange(context.Background(), "pro-1", from, to)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Yoga Flow", sessions[0].ClassName)
	assert.Equal(t, 7, sessions[0].ActiveCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
