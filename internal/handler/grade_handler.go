package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/pkg/response"
)

type gradeService interface {
	Submit(ctx context.Context, userID string, req dto.SubmitGradeRequest) (*models.Grade, error)
	AdminUpdate(ctx context.Context, id string, req dto.UpdateGradeRequest) (*models.Grade, error)
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Submit godoc
// @Summary Submit or replace a grade
// @Description The teacher is taken from the access token; resubmitting the same student, subject and quarter updates the grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.SubmitGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	claims, ok := principal(c)
	if !ok {
		return
	}
	var req dto.SubmitGradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	grade, err := h.grades.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Update godoc
// @Summary Correct a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body dto.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades/{id} [put]
func (h *GradeHandler) Update(c *gin.Context) {
	var req dto.UpdateGradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	grade, err := h.grades.AdminUpdate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}
