package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/response"
)

type bookingService interface {
	List(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
	Get(ctx context.Context, professionalID, id string) (*models.Appointment, error)
	Create(ctx context.Context, professionalID string, req service.CreateAppointmentRequest) (*models.Appointment, error)
	Reschedule(ctx context.Context, professionalID, id string, req service.RescheduleAppointmentRequest) (*models.Appointment, error)
	Transition(ctx context.Context, professionalID, id string, target models.AppointmentStatus) (*models.Appointment, error)
	Delete(ctx context.Context, professionalID, id string) error
	ListBlockedTimes(ctx context.Context, professionalID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
	CreateBlockedTime(ctx context.Context, professionalID string, req service.CreateBlockedTimeRequest) (*models.Appointment, error)
	DeleteBlockedTime(ctx context.Context, professionalID, id string) error
}

// AppointmentHandler exposes appointment and blocked-time endpoints.
type AppointmentHandler struct {
	bookings bookingService
	metrics  *service.MetricsService
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(bookings bookingService, metrics *service.MetricsService) *AppointmentHandler {
	return &AppointmentHandler{bookings: bookings, metrics: metrics}
}

// patchAppointmentRequest is the PATCH body: a status transition, a move to a
// new time, or both fields absent is rejected.
type patchAppointmentRequest struct {
	Status    *models.AppointmentStatus `json:"status"`
	StartTime *time.Time                `json:"start_time"`
	EndTime   *time.Time                `json:"end_time"`
}

// List godoc
// @Summary List appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Professional ID"
// @Param status query string false "Filter by status"
// @Param clientId query string false "Filter by client"
// @Param from query string false "Range start (RFC3339)"
// @Param to query string false "Range end (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	filter, err := appointmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	appointments, pagination, err := h.bookings.List(c.Request.Context(), professionalID(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, pagination)
}

// Get godoc
// @Summary Get appointment detail
// @Tags Appointments
// @Produce json
// @Param id path string true "Professional ID"
// @Param aptId path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/appointments/{aptId} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	apt, err := h.bookings.Get(c.Request.Context(), professionalID(c), c.Param("aptId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apt, nil)
}

// Create godoc
// @Summary Book an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.CreateAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Scheduling conflict with the colliding interval"
// @Router /professionals/{id}/appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req service.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	apt, err := h.bookings.Create(c.Request.Context(), professionalID(c), req)
	if err != nil {
		h.recordOutcome(err)
		respondError(c, err)
		return
	}
	h.recordOutcome(nil)
	response.Created(c, apt)
}

// Patch godoc
// @Summary Transition or reschedule an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param aptId path string true "Appointment ID"
// @Param payload body patchAppointmentRequest true "Status or new time"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/appointments/{aptId} [patch]
func (h *AppointmentHandler) Patch(c *gin.Context) {
	var req patchAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	switch {
	case req.Status != nil && req.StartTime != nil:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "provide either status or start_time, not both"))
	case req.Status != nil:
		apt, err := h.bookings.Transition(c.Request.Context(), professionalID(c), c.Param("aptId"), *req.Status)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, apt, nil)
	case req.StartTime != nil:
		apt, err := h.bookings.Reschedule(c.Request.Context(), professionalID(c), c.Param("aptId"), service.RescheduleAppointmentRequest{
			StartTime: *req.StartTime,
			EndTime:   req.EndTime,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, http.StatusOK, apt, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "nothing to change"))
	}
}

// Delete godoc
// @Summary Delete an appointment
// @Tags Appointments
// @Param id path string true "Professional ID"
// @Param aptId path string true "Appointment ID"
// @Success 204
// @Router /professionals/{id}/appointments/{aptId} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.bookings.Delete(c.Request.Context(), professionalID(c), c.Param("aptId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListBlocked godoc
// @Summary List blocked times
// @Tags BlockedTimes
// @Produce json
// @Param id path string true "Professional ID"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/blocked-times [get]
func (h *AppointmentHandler) ListBlocked(c *gin.Context) {
	filter, err := appointmentFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	blocked, pagination, err := h.bookings.ListBlockedTimes(c.Request.Context(), professionalID(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocked, pagination)
}

// CreateBlocked godoc
// @Summary Block a time span
// @Tags BlockedTimes
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.CreateBlockedTimeRequest true "Blocked span"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /professionals/{id}/blocked-times [post]
func (h *AppointmentHandler) CreateBlocked(c *gin.Context) {
	var req service.CreateBlockedTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	block, err := h.bookings.CreateBlockedTime(c.Request.Context(), professionalID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, block)
}

// DeleteBlocked godoc
// @Summary Remove a blocked span
// @Tags BlockedTimes
// @Param id path string true "Professional ID"
// @Param blockId path string true "Blocked time ID"
// @Success 204
// @Router /professionals/{id}/blocked-times/{blockId} [delete]
func (h *AppointmentHandler) DeleteBlocked(c *gin.Context) {
	if err := h.bookings.DeleteBlockedTime(c.Request.Context(), professionalID(c), c.Param("blockId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *AppointmentHandler) recordOutcome(err error) {
	if h.metrics == nil {
		return
	}
	if err == nil {
		h.metrics.RecordBookingOutcome("created")
		return
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrSchedulingConflict.Code:
		h.metrics.RecordBookingOutcome("conflict")
	case appErrors.ErrPolicyViolation.Code:
		h.metrics.RecordBookingOutcome("policy_violation")
	case appErrors.ErrOutsideHours.Code:
		h.metrics.RecordBookingOutcome("outside_hours")
	default:
		h.metrics.RecordBookingOutcome("error")
	}
}

func appointmentFilterFromQuery(c *gin.Context) (models.AppointmentFilter, error) {
	var filter models.AppointmentFilter
	filter.ClientID = c.Query("clientId")
	filter.Status = models.AppointmentStatus(c.Query("status"))
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from, expected RFC3339")
		}
		filter.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to, expected RFC3339")
		}
		filter.To = &parsed
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter, nil
}
