package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/pkg/response"
)

// respondError renders service errors, surfacing the structured payloads of
// the scheduling-conflict and confirmation-required protocols.
func respondError(c *gin.Context, err error) {
	var conflict *models.BookingConflictError
	if errors.As(err, &conflict) {
		response.ErrorWithData(c, err, gin.H{"conflict": conflict.Conflict})
		return
	}
	var confirm *models.NeedsConfirmationError
	if errors.As(err, &confirm) {
		response.ErrorWithData(c, err, gin.H{"participants": confirm.Participants})
		return
	}
	response.Error(c, err)
}
