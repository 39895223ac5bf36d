package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type availabilityServiceMock struct {
	doc      *models.AvailabilityDocument
	warnings []string
	saveErr  error
	saved    *service.SaveAvailabilityRequest
}

func (m *availabilityServiceMock) GetDocument(ctx context.Context, professionalID string) (*models.AvailabilityDocument, []string, error) {
	return m.doc, m.warnings, nil
}

func (m *availabilityServiceMock) SaveDocument(ctx context.Context, professionalID string, req service.SaveAvailabilityRequest) (*models.AvailabilityDocument, error) {
	m.saved = &req
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return m.doc, nil
}

func TestAvailabilityHandlerGetWarningsMeta(t *testing.T) {
	mockSvc := &availabilityServiceMock{
		doc: &models.AvailabilityDocument{
			Weekly: models.DefaultWeeklySchedule(),
			Policy: models.DefaultBookingPolicy(),
		},
		warnings: []string{service.WarningScheduleMissing},
	}
	h := NewAvailabilityHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/professionals/pro-1/availability", nil)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Meta map[string][]string `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{service.WarningScheduleMissing}, envelope.Meta["warnings"])
}

func TestAvailabilityHandlerGetNoWarnings(t *testing.T) {
	mockSvc := &availabilityServiceMock{doc: &models.AvailabilityDocument{}}
	h := NewAvailabilityHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/professionals/pro-1/availability", nil)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "warnings")
}

func TestAvailabilityHandlerPutOverlapRejected(t *testing.T) {
	mockSvc := &availabilityServiceMock{saveErr: appErrors.Clone(appErrors.ErrValidation, "slots overlap on monday")}
	h := NewAvailabilityHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{
		"weekly_schedule": map[string]interface{}{},
	})
	c, w := testContext(t, http.MethodPut, "/professionals/pro-1/availability", payload)
	h.Put(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "slots overlap on monday")
	require.NotNil(t, mockSvc.saved)
}

func TestAvailabilityHandlerPutInvalidJSON(t *testing.T) {
	h := NewAvailabilityHandler(&availabilityServiceMock{})

	c, w := testContext(t, http.MethodPut, "/professionals/pro-1/availability", []byte(`{"weekly_schedule"`))
	h.Put(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
