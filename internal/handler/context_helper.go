package handler

import "github.com/gin-gonic/gin"

// professionalID returns the tenant id of the request. The tenant middleware
// already verified it against the token subject.
func professionalID(c *gin.Context) string {
	return c.Param("id")
}
