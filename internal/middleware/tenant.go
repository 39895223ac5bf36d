package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/response"
)

// Tenant rejects requests whose token subject does not match the professional
// id in the path. Every tenant-scoped route group mounts this after JWT.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims.ProfessionalID == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.ProfessionalID != c.Param("id") {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token does not grant access to this professional"))
			c.Abort()
			return
		}
		c.Next()
	}
}
