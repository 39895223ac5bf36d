package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access-token payload issued by the identity service.
// Subject carries the professional (tenant) id.
type JWTClaims struct {
	ProfessionalID string `json:"professional_id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	jwt.RegisteredClaims
}
