package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/service"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
	"github.com/noah-isme/crs-api/pkg/response"
)

// RegistrationHandler serves the enrollment workflow endpoints.
type RegistrationHandler struct {
	service *service.RegistrationService
}

// NewRegistrationHandler creates a new handler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// Catalog godoc
// @Summary Course catalog with per-student status
// @Description Every course annotated with the student's registration status
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /registrations/catalog [get]
func (h *RegistrationHandler) Catalog(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	catalog, err := h.service.Catalog(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, catalog, map[string]interface{}{"count": len(catalog)})
}

// Mine godoc
// @Summary Courses the student has requested or enrolled in
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /registrations/mine [get]
func (h *RegistrationHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.service.MyCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"count": len(courses)})
}

// Request godoc
// @Summary Request enrollment in a course
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body object true "Course reference"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/requests [post]
func (h *RegistrationHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		CourseID string `json:"course_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "course_id required"))
		return
	}

	if err := h.service.Request(c.Request.Context(), claims.UserID, payload.CourseID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"course_id": payload.CourseID, "status": "REQUESTED"})
}

// Approve godoc
// @Summary Approve a pending enrollment request
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /registrations/approvals [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve, "ENROLLED")
}

// Decline godoc
// @Summary Decline a pending enrollment request
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /registrations/declines [post]
func (h *RegistrationHandler) Decline(c *gin.Context) {
	h.decide(c, h.service.Decline, "NONE")
}

// Drop godoc
// @Summary Drop an enrolled course
// @Tags Registrations
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /registrations/enrollments/{courseId} [delete]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Drop(c.Request.Context(), claims.UserID, c.Param("courseId"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Roster godoc
// @Summary Roster for a course
// @Description Pending and enrolled students for a course owned by the caller
// @Tags Registrations
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/roster [get]
func (h *RegistrationHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.Roster(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

func (h *RegistrationHandler) decide(c *gin.Context, decision func(ctx context.Context, instructorID string, req service.DecisionRequest, meta models.RequestMeta) error, resulting string) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id and course_id required"))
		return
	}

	if err := decision(c.Request.Context(), claims.UserID, req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"student_id": req.StudentID,
		"course_id":  req.CourseID,
		"status":     resulting,
	}, nil)
}
