package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
}

type studentGradeReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error)
}

type loadSlipService interface {
	Render(ctx context.Context, studentID string) (*dto.ExportedFile, error)
	Resend(ctx context.Context, studentID string) error
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students  studentService
	grades    studentGradeReader
	loadSlips loadSlipService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, grades studentGradeReader, loadSlips loadSlipService) *StudentHandler {
	return &StudentHandler{students: students, grades: grades, loadSlips: loadSlips}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or student number"
// @Param sectionId query string false "Filter by section"
// @Param gradeLevel query string false "Filter by grade level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.SectionID = c.Query("sectionId")
	filter.GradeLevel = c.Query("gradeLevel")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Grades godoc
// @Summary List a student's grades
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *StudentHandler) Grades(c *gin.Context) {
	grades, err := h.grades.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// LoadSlip godoc
// @Summary Download the student's load slip
// @Tags Students
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/load-slip [get]
func (h *StudentHandler) LoadSlip(c *gin.Context) {
	file, err := h.loadSlips.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// ResendLoadSlip godoc
// @Summary Queue the load slip email again
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/load-slip/resend [post]
func (h *StudentHandler) ResendLoadSlip(c *gin.Context) {
	if err := h.loadSlips.Resend(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, "Load slip delivery queued.")
}
