package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
)

func newAppointmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAppointmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newAppointmentMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "professional_id", "client_id", "service_id", "kind", "start_time", "end_time", "status", "notes", "created_at", "updated_at"}).
		AddRow("apt-1", "pro-1", "cli-1", nil, "appointment", now, now.Add(time.Hour), "confirmed", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+appointmentColumns+" FROM appointments WHERE professional_id = $1 AND status = $2 ORDER BY start_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("pro-1", models.AppointmentConfirmed).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM appointments WHERE professional_id = $1 AND status = $2")).
		WithArgs("pro-1", models.AppointmentConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	appointments, total, err := repo.List(context.Background(), "pro-1", models.AppointmentFilter{Status: models.AppointmentConfirmed})
	require.NoError(t, err)
	assert.Len(t, appointments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreateCheckedConflict(t *testing.T) {
	db, mock, cleanup := newAppointmentMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id AS ref_id").
		WithArgs("pro-1", sqlmock.AnyArg(), start, end, 15).
		WillReturnRows(sqlmock.NewRows([]string{"ref_id", "source", "kind", "start_time", "end_time"}).
			AddRow("apt-existing", "appointment", "appointment", start.Add(-30*time.Minute), start.Add(30*time.Minute)))
	mock.ExpectRollback()

	apt := &models.Appointment{ProfessionalID: "pro-1", Kind: models.KindAppointment, StartTime: start, EndTime: end, Status: models.AppointmentConfirmed}
	busy, err := repo.CreateChecked(context.Background(), apt, 15)
	require.ErrorIs(t, err, ErrOverlap)
	require.NotNil(t, busy)
	assert.Equal(t, "apt-existing", busy.RefID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreateCheckedSuccess(t *testing.T) {
	db, mock, cleanup := newAppointmentMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id AS ref_id").
		WithArgs("pro-1", sqlmock.AnyArg(), start, end, 0).
		WillReturnRows(sqlmock.NewRows([]string{"ref_id", "source", "kind", "start_time", "end_time"}))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	apt := &models.Appointment{ProfessionalID: "pro-1", Kind: models.KindAppointment, StartTime: start, EndTime: end, Status: models.AppointmentConfirmed}
	busy, err := repo.CreateChecked(context.Background(), apt, 0)
	require.NoError(t, err)
	assert.Nil(t, busy)
	assert.NotEmpty(t, apt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreateCheckedExclusionViolation(t *testing.T) {
	db, mock, cleanup := newAppointmentMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id AS ref_id").
		WithArgs("pro-1", sqlmock.AnyArg(), start, end, 0).
		WillReturnRows(sqlmock.NewRows([]string{"ref_id", "source", "kind", "start_time", "end_time"}))
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pq.Error{Code: exclusionViolation, Constraint: "appointments_no_overlap"})
	mock.ExpectRollback()

	apt := &models.Appointment{ProfessionalID: "pro-1", Kind: models.KindAppointment, StartTime: start, EndTime: end, Status: models.AppointmentConfirmed}
	_, err := repo.CreateChecked(context.Background(), apt, 0)
	require.ErrorIs(t, err, ErrOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdateStatusNotFound(t *testing.T) {
	db, mock, cleanup := newAppointmentMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("pro-1", "missing", models.AppointmentCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "pro-1", "missing", models.AppointmentCancelled)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryFindOverlappingUsesBuffer(t *testing.T) {
	db, mock, cleanup := newAppointmentMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectQuery("SELECT id AS ref_id").
		WithArgs("pro-1", "", start, end, 10).
		WillReturnRows(sqlmock.NewRows([]string{"ref_id", "source", "kind", "start_time", "end_time"}).
			AddRow("sess-1", "group_class_session", "appointment", end, end.Add(5*time.Minute)))

	busy, err := repo.FindOverlapping(context.Background(), "pro-1", start, end, 10, "")
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, "group_class_session", busy[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}
