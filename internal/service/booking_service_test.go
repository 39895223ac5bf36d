package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/repository"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type mockAppointmentRepo struct {
	appointments map[string]models.Appointment
	busy         *models.BusyInterval
	overlap      bool
	created      *models.Appointment
	lastBuffer   int
	statusSet    map[string]models.AppointmentStatus
}

func (m *mockAppointmentRepo) List(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	var out []models.Appointment
	for _, apt := range m.appointments {
		if apt.Kind == filter.Kind {
			out = append(out, apt)
		}
	}
	return out, len(out), nil
}

func (m *mockAppointmentRepo) ListForRange(ctx context.Context, professionalID string, from, to time.Time) ([]models.Appointment, error) {
	return nil, nil
}

func (m *mockAppointmentRepo) ListByClient(ctx context.Context, professionalID, clientID string) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, apt := range m.appointments {
		if apt.ClientID != nil && *apt.ClientID == clientID {
			out = append(out, apt)
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) FindByID(ctx context.Context, professionalID, id string) (*models.Appointment, error) {
	if apt, ok := m.appointments[id]; ok {
		return &apt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAppointmentRepo) CreateChecked(ctx context.Context, apt *models.Appointment, bufferMin int) (*models.BusyInterval, error) {
	m.lastBuffer = bufferMin
	if m.overlap {
		return m.busy, repository.ErrOverlap
	}
	if m.appointments == nil {
		m.appointments = map[string]models.Appointment{}
	}
	if apt.ID == "" {
		apt.ID = "new-apt"
	}
	m.appointments[apt.ID] = *apt
	m.created = apt
	return nil, nil
}

func (m *mockAppointmentRepo) RescheduleChecked(ctx context.Context, apt *models.Appointment, bufferMin int) (*models.BusyInterval, error) {
	m.lastBuffer = bufferMin
	if m.overlap {
		return m.busy, repository.ErrOverlap
	}
	m.appointments[apt.ID] = *apt
	return nil, nil
}

func (m *mockAppointmentRepo) UpdateStatus(ctx context.Context, professionalID, id string, status models.AppointmentStatus) error {
	if _, ok := m.appointments[id]; !ok {
		return sql.ErrNoRows
	}
	if m.statusSet == nil {
		m.statusSet = map[string]models.AppointmentStatus{}
	}
	m.statusSet[id] = status
	apt := m.appointments[id]
	apt.Status = status
	m.appointments[id] = apt
	return nil
}

func (m *mockAppointmentRepo) Delete(ctx context.Context, professionalID, id string) error {
	if _, ok := m.appointments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.appointments, id)
	return nil
}

type mockClientReader struct {
	clients map[string]*models.Client
}

func (m *mockClientReader) FindByID(ctx context.Context, professionalID, clientID string) (*models.Client, error) {
	if c, ok := m.clients[clientID]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockServiceReader struct {
	services map[string]*models.Service
}

func (m *mockServiceReader) FindByID(ctx context.Context, professionalID, serviceID string) (*models.Service, error) {
	if svc, ok := m.services[serviceID]; ok {
		return svc, nil
	}
	return nil, sql.ErrNoRows
}

type fakeAvailability struct {
	doc         *models.AvailabilityDocument
	invalidated int
	warnings    []string
}

func (f *fakeAvailability) GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, []string, error) {
	return f.doc, f.warnings, nil
}

func (f *fakeAvailability) Invalidate(ctx context.Context, professionalID string) {
	f.invalidated++
}

type mockBookingNotifier struct {
	confirmations []string
}

func (m *mockBookingNotifier) EnqueueBookingConfirmation(to, clientName string, start time.Time) {
	m.confirmations = append(m.confirmations, to)
}

// mondayMorningDoc opens Mondays 09:00-12:00 with a 1h notice, 60 day window
// and no buffer.
func mondayMorningDoc() *models.AvailabilityDocument {
	return &models.AvailabilityDocument{
		Weekly: models.WeeklySchedule{
			1: {Active: true, Slots: []models.TimeRange{{Start: "09:00", End: "12:00"}}},
		},
		Policy: models.BookingPolicy{DefaultDurationMin: 60, BufferMin: 0, AdvanceBookingDays: 60, MinNoticeHours: 1},
	}
}

func newBookingService(repo *mockAppointmentRepo, avail *fakeAvailability, notifier *mockBookingNotifier) *BookingService {
	clients := &mockClientReader{clients: map[string]*models.Client{
		"cli-1": {ID: "cli-1", FullName: "Alice Martin", Email: "alice@example.com"},
	}}
	services := &mockServiceReader{services: map[string]*models.Service{
		"svc-1": {ID: "svc-1", Name: "Massage", DurationMin: 90, Active: true},
	}}
	var n bookingNotifier
	if notifier != nil {
		n = notifier
	}
	svc := NewBookingService(repo, clients, services, avail, n, validator.New(), zap.NewNop())
	// Monday 2 March 2026; bookings land the Monday after.
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestBookingServiceCreateWithinOpenHours(t *testing.T) {
	repo := &mockAppointmentRepo{}
	avail := &fakeAvailability{doc: mondayMorningDoc()}
	notifier := &mockBookingNotifier{}
	svc := newBookingService(repo, avail, notifier)

	// Monday 9 March, 11:00-12:00 fits the 09:00-12:00 slot exactly.
	start := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	apt, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", StartTime: start})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentPending, apt.Status)
	assert.Equal(t, start.Add(time.Hour), apt.EndTime)
	assert.Equal(t, []string{"alice@example.com"}, notifier.confirmations)
	assert.Equal(t, 1, avail.invalidated)
}

func TestBookingServiceCreateCrossingClosingTime(t *testing.T) {
	repo := &mockAppointmentRepo{}
	svc := newBookingService(repo, &fakeAvailability{doc: mondayMorningDoc()}, nil)

	// 11:30 + 60min runs past the 12:00 close.
	start := time.Date(2026, 3, 9, 11, 30, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", StartTime: start})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrOutsideHours.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestBookingServiceCreateOnClosedDay(t *testing.T) {
	svc := newBookingService(&mockAppointmentRepo{}, &fakeAvailability{doc: mondayMorningDoc()}, nil)

	start := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC) // Sunday
	_, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", StartTime: start})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrOutsideHours.Code, appErr.Code)
}

func TestBookingServiceCreateMinNoticeViolation(t *testing.T) {
	doc := mondayMorningDoc()
	doc.Policy.MinNoticeHours = 48
	svc := newBookingService(&mockAppointmentRepo{}, &fakeAvailability{doc: doc}, nil)

	// now is Monday 2 March 08:00; 9 March is safe, 3 March 10:00 is 26h away.
	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", StartTime: start})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPolicyViolation.Code, appErr.Code)
}

func TestBookingServiceCreateBeyondAdvanceWindow(t *testing.T) {
	doc := mondayMorningDoc()
	doc.Policy.AdvanceBookingDays = 7
	svc := newBookingService(&mockAppointmentRepo{}, &fakeAvailability{doc: doc}, nil)

	start := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC) // two Mondays out
	_, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", StartTime: start})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPolicyViolation.Code, appErr.Code)
}

func TestBookingServiceCreateConflict(t *testing.T) {
	busy := &models.BusyInterval{RefID: "apt-0", Source: "appointment", Start: time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC), End: time.Date(2026, 3, 9, 11, 30, 0, 0, time.UTC)}
	repo := &mockAppointmentRepo{overlap: true, busy: busy}
	svc := newBookingService(repo, &fakeAvailability{doc: mondayMorningDoc()}, nil)

	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", StartTime: start})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErr.Code)

	var conflict *models.BookingConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "apt-0", conflict.Conflict.RefID)
}

func TestBookingServiceCreateUsesServiceDurationAndBuffer(t *testing.T) {
	doc := mondayMorningDoc()
	doc.Policy.BufferMin = 15
	repo := &mockAppointmentRepo{}
	svc := newBookingService(repo, &fakeAvailability{doc: doc}, nil)

	serviceID := "svc-1"
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	apt, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", ServiceID: &serviceID, StartTime: start})
	require.NoError(t, err)
	assert.Equal(t, start.Add(90*time.Minute), apt.EndTime)
	assert.Equal(t, 15, repo.lastBuffer)
}

func TestBookingServiceTransitions(t *testing.T) {
	repo := &mockAppointmentRepo{appointments: map[string]models.Appointment{
		"apt-1": {ID: "apt-1", Kind: models.KindAppointment, Status: models.AppointmentPending},
	}}
	svc := newBookingService(repo, &fakeAvailability{doc: mondayMorningDoc()}, nil)

	_, err := svc.Transition(context.Background(), "pro-1", "apt-1", models.AppointmentCompleted)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)

	apt, err := svc.Transition(context.Background(), "pro-1", "apt-1", models.AppointmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, apt.Status)

	apt, err = svc.Transition(context.Background(), "pro-1", "apt-1", models.AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, apt.Status)

	_, err = svc.Transition(context.Background(), "pro-1", "apt-1", models.AppointmentCancelled)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestBookingServiceBlockedTimeSkipsHoursCheck(t *testing.T) {
	repo := &mockAppointmentRepo{}
	avail := &fakeAvailability{doc: mondayMorningDoc()}
	svc := newBookingService(repo, avail, nil)

	// Sunday is closed for appointments but fine for blocking.
	start := time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC)
	block, err := svc.CreateBlockedTime(context.Background(), "pro-1", CreateBlockedTimeRequest{StartTime: start, EndTime: start.Add(4 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.KindBlocked, block.Kind)
	assert.Nil(t, block.ClientID)
}

func TestBookingServiceBlockedTimeStillConflicts(t *testing.T) {
	busy := &models.BusyInterval{RefID: "apt-9", Source: "appointment"}
	repo := &mockAppointmentRepo{overlap: true, busy: busy}
	svc := newBookingService(repo, &fakeAvailability{doc: mondayMorningDoc()}, nil)

	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	_, err := svc.CreateBlockedTime(context.Background(), "pro-1", CreateBlockedTimeRequest{StartTime: start, EndTime: start.Add(time.Hour)})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErr.Code)
}

func TestBookingServiceArchivedClientRejected(t *testing.T) {
	repo := &mockAppointmentRepo{}
	svc := newBookingService(repo, &fakeAvailability{doc: mondayMorningDoc()}, nil)
	svcClients := svc.clients.(*mockClientReader)
	svcClients.clients["cli-1"].Archived = true

	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), "pro-1", CreateAppointmentRequest{ClientID: "cli-1", StartTime: start})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}
