package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

type mockProfessionalRepo struct {
	professional *models.Professional
	updated      *models.Professional
}

func (m *mockProfessionalRepo) FindByID(ctx context.Context, id string) (*models.Professional, error) {
	if m.professional == nil || m.professional.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.professional
	return &copied, nil
}

func (m *mockProfessionalRepo) Update(ctx context.Context, professional *models.Professional) error {
	m.updated = professional
	return nil
}

func TestProfileUpdate(t *testing.T) {
	repo := &mockProfessionalRepo{professional: &models.Professional{
		ID:         "pro-1",
		Email:      "jo@example.com",
		FullName:   "Jo Santos",
		Profession: "physiotherapist",
		Timezone:   "UTC",
	}}
	svc := NewProfileService(repo, nil, nil)

	got, err := svc.Update(context.Background(), "pro-1", UpdateProfileRequest{
		FullName:   "Jo Santos-Lima",
		Profession: "physiotherapist",
		Timezone:   "Europe/Lisbon",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jo Santos-Lima", got.FullName)
	assert.Equal(t, "Europe/Lisbon", got.Timezone)
	assert.Equal(t, "jo@example.com", got.Email)
	require.NotNil(t, repo.updated)
}

func TestProfileUpdateUnknownTimezone(t *testing.T) {
	repo := &mockProfessionalRepo{professional: &models.Professional{ID: "pro-1", Timezone: "UTC"}}
	svc := NewProfileService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "pro-1", UpdateProfileRequest{
		FullName:   "Jo",
		Profession: "coach",
		Timezone:   "Mars/Olympus",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestProfileGetMissing(t *testing.T) {
	svc := NewProfileService(&mockProfessionalRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "pro-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
