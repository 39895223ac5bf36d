package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/pkg/config"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
)

// AuthService validates access tokens issued by the external identity
// service. Token issuance, refresh and revocation live there, not here.
type AuthService struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

// NewAuthService constructs AuthService from JWT config.
func NewAuthService(cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, logger: logger}
}

// ValidateToken parses and verifies an HS256 access token and returns its
// claims. The subject falls back to ProfessionalID for older tokens.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token issuer")
	}
	if claims.ProfessionalID == "" {
		claims.ProfessionalID = claims.Subject
	}
	if claims.ProfessionalID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no tenant identity")
	}
	return claims, nil
}
