package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	"github.com/velora-app/velora-api/pkg/config"
)

const testSecret = "tenant-test-secret"

func signToken(t *testing.T, claims *models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func protectedRouter() (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)
	reached := false
	auth := service.NewAuthService(config.JWTConfig{Secret: testSecret}, nil)
	r := gin.New()
	r.GET("/professionals/:id/ping", JWT(auth), Tenant(), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})
	return r, &reached
}

func TestTenantAllowsOwner(t *testing.T) {
	r, reached := protectedRouter()

	token := signToken(t, &models.JWTClaims{
		ProfessionalID: "pro-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/professionals/pro-1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *reached)
}

func TestTenantRejectsOtherProfessional(t *testing.T) {
	r, reached := protectedRouter()

	token := signToken(t, &models.JWTClaims{
		ProfessionalID: "pro-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/professionals/pro-2/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, *reached)
}

func TestTenantFallsBackToSubject(t *testing.T) {
	r, reached := protectedRouter()

	token := signToken(t, &models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "pro-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/professionals/pro-1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *reached)
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r, reached := protectedRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/professionals/pro-1/ping", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *reached)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	r, reached := protectedRouter()

	token := signToken(t, &models.JWTClaims{
		ProfessionalID: "pro-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/professionals/pro-1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *reached)
}
