package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/pkg/response"
)

type calendarService interface {
	View(ctx context.Context, professionalID string, mode models.CalendarViewMode, anchor string) (*models.CalendarView, error)
}

// CalendarHandler exposes the read-only calendar grid.
type CalendarHandler struct {
	calendar calendarService
}

// NewCalendarHandler constructs CalendarHandler.
func NewCalendarHandler(calendar calendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// View godoc
// @Summary Render the calendar grid
// @Tags Calendar
// @Produce json
// @Param id path string true "Professional ID"
// @Param view query string false "day, week or month (default week)"
// @Param date query string false "Anchor date YYYY-MM-DD (default today)"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/calendar [get]
func (h *CalendarHandler) View(c *gin.Context) {
	mode := models.CalendarViewMode(c.DefaultQuery("view", string(models.ViewWeek)))
	view, err := h.calendar.View(c.Request.Context(), professionalID(c), mode, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
