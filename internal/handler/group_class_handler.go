package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/service"
	appErrors "github.com/velora-app/velora-api/pkg/errors"
	"github.com/velora-app/velora-api/pkg/response"
)

type groupClassService interface {
	ListClasses(ctx context.Context, professionalID string, activeOnly bool, page, pageSize int) ([]models.GroupClass, *models.Pagination, error)
	CreateClass(ctx context.Context, professionalID string, req service.CreateGroupClassRequest) (*models.GroupClass, error)
	DeleteClass(ctx context.Context, professionalID, classID string, force bool) (*service.DeletionResult, error)
	ListSessions(ctx context.Context, professionalID, classID string) ([]models.GroupClassSession, error)
	CreateSession(ctx context.Context, professionalID, classID string, req service.CreateSessionRequest) (*models.GroupClassSession, error)
	DeleteSession(ctx context.Context, professionalID, classID, sessionID string, force bool) (*service.DeletionResult, error)
	Register(ctx context.Context, professionalID, classID, sessionID string, req service.RegisterClientRequest) (*models.SessionRegistration, error)
	Unregister(ctx context.Context, professionalID, classID, sessionID, registrationID string) error
}

// GroupClassHandler exposes group class, session and registration endpoints.
type GroupClassHandler struct {
	classes groupClassService
}

// NewGroupClassHandler constructs GroupClassHandler.
func NewGroupClassHandler(classes groupClassService) *GroupClassHandler {
	return &GroupClassHandler{classes: classes}
}

// ListClasses godoc
// @Summary List group classes
// @Tags GroupClasses
// @Produce json
// @Param id path string true "Professional ID"
// @Param active query bool false "Only active classes"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/group-classes [get]
func (h *GroupClassHandler) ListClasses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	classes, pagination, err := h.classes.ListClasses(c.Request.Context(), professionalID(c), c.Query("active") == "true", page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// CreateClass godoc
// @Summary Create a group class
// @Tags GroupClasses
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param payload body service.CreateGroupClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /professionals/{id}/group-classes [post]
func (h *GroupClassHandler) CreateClass(c *gin.Context) {
	var req service.CreateGroupClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.classes.CreateClass(c.Request.Context(), professionalID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// DeleteClass godoc
// @Summary Delete a group class
// @Description Without force=true and with active registrants the call fails
// @Description with NEEDS_CONFIRMATION listing who would be affected.
// @Tags GroupClasses
// @Produce json
// @Param id path string true "Professional ID"
// @Param classId path string true "Class ID"
// @Param force query bool false "Confirm the deletion"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /professionals/{id}/group-classes/{classId} [delete]
func (h *GroupClassHandler) DeleteClass(c *gin.Context) {
	result, err := h.classes.DeleteClass(c.Request.Context(), professionalID(c), c.Param("classId"), c.Query("force") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListSessions godoc
// @Summary List sessions of a class
// @Tags GroupClasses
// @Produce json
// @Param id path string true "Professional ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /professionals/{id}/group-classes/{classId}/sessions [get]
func (h *GroupClassHandler) ListSessions(c *gin.Context) {
	sessions, err := h.classes.ListSessions(c.Request.Context(), professionalID(c), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// CreateSession godoc
// @Summary Schedule a session
// @Tags GroupClasses
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param classId path string true "Class ID"
// @Param payload body service.CreateSessionRequest true "Session times"
// @Success 201 {object} response.Envelope
// @Router /professionals/{id}/group-classes/{classId}/sessions [post]
func (h *GroupClassHandler) CreateSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.classes.CreateSession(c.Request.Context(), professionalID(c), c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// DeleteSession godoc
// @Summary Delete a session
// @Description Same two-phase protocol as class deletion.
// @Tags GroupClasses
// @Produce json
// @Param id path string true "Professional ID"
// @Param classId path string true "Class ID"
// @Param sessionId path string true "Session ID"
// @Param force query bool false "Confirm the deletion"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /professionals/{id}/group-classes/{classId}/sessions/{sessionId} [delete]
func (h *GroupClassHandler) DeleteSession(c *gin.Context) {
	result, err := h.classes.DeleteSession(c.Request.Context(), professionalID(c), c.Param("classId"), c.Param("sessionId"), c.Query("force") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Register godoc
// @Summary Register a client to a session
// @Tags GroupClasses
// @Accept json
// @Produce json
// @Param id path string true "Professional ID"
// @Param classId path string true "Class ID"
// @Param sessionId path string true "Session ID"
// @Param payload body service.RegisterClientRequest true "Client"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Session at capacity"
// @Router /professionals/{id}/group-classes/{classId}/sessions/{sessionId}/registrations [post]
func (h *GroupClassHandler) Register(c *gin.Context) {
	var req service.RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.classes.Register(c.Request.Context(), professionalID(c), c.Param("classId"), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Unregister godoc
// @Summary Cancel a registration
// @Tags GroupClasses
// @Param id path string true "Professional ID"
// @Param classId path string true "Class ID"
// @Param sessionId path string true "Session ID"
// @Param regId path string true "Registration ID"
// @Success 204
// @Router /professionals/{id}/group-classes/{classId}/sessions/{sessionId}/registrations/{regId} [delete]
func (h *GroupClassHandler) Unregister(c *gin.Context) {
	if err := h.classes.Unregister(c.Request.Context(), professionalID(c), c.Param("classId"), c.Param("sessionId"), c.Param("regId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
