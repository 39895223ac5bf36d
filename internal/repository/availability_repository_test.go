package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
)

func newAvailabilityMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryGetDocument(t *testing.T) {
	db, mock, cleanup := newAvailabilityMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	weekly := `{"1":{"active":true,"slots":[{"start":"09:00","end":"12:00"}]}}`
	now := time.Now()
	mock.ExpectQuery("SELECT professional_id, weekly_schedule").
		WithArgs("pro-1").
		WillReturnRows(sqlmock.NewRows([]string{"professional_id", "weekly_schedule", "default_duration_min", "buffer_min", "advance_booking_days", "min_notice_hours", "updated_at"}).
			AddRow("pro-1", []byte(weekly), 45, 10, 30, 24, now))
	mock.ExpectQuery("SELECT id, professional_id, date, type, reason, custom_slots, created_at FROM availability_exceptions").
		WithArgs("pro-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "professional_id", "date", "type", "reason", "custom_slots", "created_at"}).
			AddRow("exc-1", "pro-1", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), "closed", "public holiday", []byte("null"), now))

	doc, err := repo.GetDocument(context.Background(), "pro-1")
	require.NoError(t, err)
	assert.Equal(t, 45, doc.Policy.DefaultDurationMin)
	assert.Equal(t, 10, doc.Policy.BufferMin)
	require.Contains(t, doc.Weekly, 1)
	assert.True(t, doc.Weekly[1].Active)
	require.Len(t, doc.Exceptions, 1)
	assert.Equal(t, models.ExceptionClosed, doc.Exceptions[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryGetDocumentUnconfigured(t *testing.T) {
	db, mock, cleanup := newAvailabilityMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery("SELECT professional_id, weekly_schedule").
		WithArgs("pro-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDocument(context.Background(), "pro-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositorySaveDocument(t *testing.T) {
	db, mock, cleanup := newAvailabilityMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO availability_settings").
		WithArgs("pro-1", sqlmock.AnyArg(), 60, 0, 60, 12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_exceptions WHERE professional_id = $1")).
		WithArgs("pro-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO availability_exceptions").
		WithArgs(sqlmock.AnyArg(), "pro-1", sqlmock.AnyArg(), models.ExceptionClosed, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reason := "vacation"
	doc := &models.AvailabilityDocument{
		Weekly: models.DefaultWeeklySchedule(),
		Policy: models.DefaultBookingPolicy(),
		Exceptions: []models.Exception{
			{Date: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), Type: models.ExceptionClosed, Reason: &reason},
		},
	}
	err := repo.SaveDocument(context.Background(), "pro-1", doc)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Exceptions[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
