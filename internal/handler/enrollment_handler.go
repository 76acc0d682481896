package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/response"
)

const (
	receiptFormField = "receipt"
	payloadFormField = "payload"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Submit(ctx context.Context, req dto.SubmitEnrollmentRequest, receipt *dto.ReceiptUpload) (*models.EnrollmentDetail, error)
	Approve(ctx context.Context, id string) (*dto.EnrollmentDecision, error)
	Reject(ctx context.Context, id string) (*models.Enrollment, error)
	EnrollAndApprove(ctx context.Context, req dto.WalkInEnrollmentRequest) (*dto.EnrollmentDecision, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments     enrollmentService
	maxReceiptBytes int64
}

// NewEnrollmentHandler constructs EnrollmentHandler. maxReceiptBytes caps how much of an upload is read.
func NewEnrollmentHandler(enrollments enrollmentService, maxReceiptBytes int64) *EnrollmentHandler {
	if maxReceiptBytes <= 0 {
		maxReceiptBytes = 5 * 1024 * 1024
	}
	return &EnrollmentHandler{enrollments: enrollments, maxReceiptBytes: maxReceiptBytes}
}

// Submit godoc
// @Summary Submit an enrollment application
// @Description Accepts JSON, or multipart/form-data with a JSON "payload" field and an optional "receipt" file
// @Tags Enrollments
// @Accept json,mpfd
// @Produce json
// @Param payload body dto.SubmitEnrollmentRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var (
		req     dto.SubmitEnrollmentRequest
		receipt *dto.ReceiptUpload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := json.Unmarshal([]byte(c.PostForm(payloadFormField)), &req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
			return
		}
		upload, err := h.readReceipt(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		receipt = upload
	} else if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}

	enrollment, err := h.enrollments.Submit(c.Request.Context(), req, receipt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

func (h *EnrollmentHandler) readReceipt(c *gin.Context) (*dto.ReceiptUpload, error) {
	header, err := c.FormFile(receiptFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, appErrors.Validation(receiptFormField, "could not read upload")
	}
	if header.Size > h.maxReceiptBytes {
		return nil, appErrors.Validation(receiptFormField, "file is too large")
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Validation(receiptFormField, "could not read upload")
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(io.LimitReader(file, h.maxReceiptBytes+1))
	if err != nil {
		return nil, appErrors.Validation(receiptFormField, "could not read upload")
	}
	return &dto.ReceiptUpload{Filename: header.Filename, Data: data}, nil
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param gradeLevel query string false "Filter by grade level"
// @Param search query string false "Search applicant or parent name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.Status = models.EnrollmentStatus(strings.ToLower(c.Query("status")))
	filter.GradeLevel = c.Query("gradeLevel")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment detail
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Approve godoc
// @Summary Approve a pending enrollment
// @Description Seats the applicant in a section with vacancy, creates the student and emails the load slip
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	decision, err := h.enrollments.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

// Reject godoc
// @Summary Reject a pending enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	enrollment, err := h.enrollments.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// WalkIn godoc
// @Summary Enroll and approve a walk-in applicant
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.WalkInEnrollmentRequest true "Walk-in application with initial payment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/walk-in [post]
func (h *EnrollmentHandler) WalkIn(c *gin.Context) {
	var req dto.WalkInEnrollmentRequest
	if !bindJSON(c, &req, "invalid walk-in payload") {
		return
	}
	decision, err := h.enrollments.EnrollAndApprove(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, decision)
}
