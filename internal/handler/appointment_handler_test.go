package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type bookingServiceMock struct {
	createResp       *models.Appointment
	createErr        error
	listResp         []models.Appointment
	patchResp        *models.Appointment
	patchErr         error
	createCalled     bool
	rescheduled      bool
	transitioned     bool
	lastTarget       models.AppointmentStatus
	lastProfessional string
}

func (m *bookingServiceMock) List(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	m.lastProfessional = professionalID
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, nil
}

func (m *bookingServiceMock) Get(ctx context.Context, professionalID, id string) (*models.Appointment, error) {
	return nil, appErrors.ErrNotFound
}

func (m *bookingServiceMock) Create(ctx context.Context, professionalID string, req service.CreateAppointmentRequest) (*models.Appointment, error) {
	m.createCalled = true
	m.lastProfessional = professionalID
	return m.createResp, m.createErr
}

func (m *bookingServiceMock) Reschedule(ctx context.Context, professionalID, id string, req service.RescheduleAppointmentRequest) (*models.Appointment, error) {
	m.rescheduled = true
	return m.patchResp, m.patchErr
}

func (m *bookingServiceMock) Transition(ctx context.Context, professionalID, id string, target models.AppointmentStatus) (*models.Appointment, error) {
	m.transitioned = true
	m.lastTarget = target
	return m.patchResp, m.patchErr
}

func (m *bookingServiceMock) Delete(ctx context.Context, professionalID, id string) error {
	return nil
}

func (m *bookingServiceMock) ListBlockedTimes(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func (m *bookingServiceMock) CreateBlockedTime(ctx context.Context, professionalID string, req service.CreateBlockedTimeRequest) (*models.Appointment, error) {
	return m.createResp, m.createErr
}

func (m *bookingServiceMock) DeleteBlockedTime(ctx context.Context, professionalID, id string) error {
	return nil
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pro-1"}, {Key: "aptId", Value: "apt-1"}}
	return c, w
}

func TestAppointmentHandlerCreate(t *testing.T) {
	mockSvc := &bookingServiceMock{createResp: &models.Appointment{ID: "apt-1", Status: models.AppointmentPending}}
	h := NewAppointmentHandler(mockSvc, nil)

	payload, _ := json.Marshal(gin.H{"client_id": "cli-1", "start_time": time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)})
	c, w := testContext(t, http.MethodPost, "/professionals/pro-1/appointments", payload)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
	assert.Equal(t, "pro-1", mockSvc.lastProfessional)
}

func TestAppointmentHandlerCreateConflictPayload(t *testing.T) {
	conflictErr := appErrors.Clone(appErrors.ErrSchedulingConflict, "")
	conflictErr.Err = &models.BookingConflictError{
		Message: conflictErr.Message,
		Conflict: models.BusyInterval{
			RefID:  "apt-0",
			Source: "appointment",
			Start:  time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
			End:    time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC),
		},
	}
	mockSvc := &bookingServiceMock{createErr: conflictErr}
	h := NewAppointmentHandler(mockSvc, nil)

	payload, _ := json.Marshal(gin.H{"client_id": "cli-1", "start_time": time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)})
	c, w := testContext(t, http.MethodPost, "/professionals/pro-1/appointments", payload)

	h.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Data struct {
			Conflict models.BusyInterval `json:"conflict"`
		} `json:"data"`
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, envelope.Error.Code)
	assert.Equal(t, "apt-0", envelope.Data.Conflict.RefID)
}

func TestAppointmentHandlerCreateInvalidBody(t *testing.T) {
	h := NewAppointmentHandler(&bookingServiceMock{}, nil)

	c, w := testContext(t, http.MethodPost, "/professionals/pro-1/appointments", []byte(`{"client_id":`))
	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerPatchStatus(t *testing.T) {
	mockSvc := &bookingServiceMock{patchResp: &models.Appointment{ID: "apt-1", Status: models.AppointmentConfirmed}}
	h := NewAppointmentHandler(mockSvc, nil)

	payload, _ := json.Marshal(gin.H{"status": "confirmed"})
	c, w := testContext(t, http.MethodPatch, "/professionals/pro-1/appointments/apt-1", payload)

	h.Patch(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.transitioned)
	assert.False(t, mockSvc.rescheduled)
	assert.Equal(t, models.AppointmentConfirmed, mockSvc.lastTarget)
}

func TestAppointmentHandlerPatchReschedule(t *testing.T) {
	mockSvc := &bookingServiceMock{patchResp: &models.Appointment{ID: "apt-1"}}
	h := NewAppointmentHandler(mockSvc, nil)

	payload, _ := json.Marshal(gin.H{"start_time": time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)})
	c, w := testContext(t, http.MethodPatch, "/professionals/pro-1/appointments/apt-1", payload)

	h.Patch(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.rescheduled)
	assert.False(t, mockSvc.transitioned)
}

func TestAppointmentHandlerPatchEmptyBody(t *testing.T) {
	h := NewAppointmentHandler(&bookingServiceMock{}, nil)

	c, w := testContext(t, http.MethodPatch, "/professionals/pro-1/appointments/apt-1", []byte(`{}`))
	h.Patch(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerListBadRange(t *testing.T) {
	h := NewAppointmentHandler(&bookingServiceMock{}, nil)

	c, w := testContext(t, http.MethodGet, "/professionals/pro-1/appointments?from=tomorrow", nil)
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
