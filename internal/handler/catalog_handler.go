package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/pkg/response"
)

type catalogService interface {
	CreateSection(ctx context.Context, req dto.CreateSectionRequest) (*models.Section, error)
	ListSections(ctx context.Context, gradeLevel string) ([]models.SectionDetail, error)
	GetSection(ctx context.Context, id string) (*models.SectionDetail, error)
	CreateSubject(ctx context.Context, req dto.CreateSubjectRequest) (*models.Subject, error)
	ListSubjects(ctx context.Context, gradeLevel string) ([]models.Subject, error)
	CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	CreateTimeSlot(ctx context.Context, req dto.CreateTimeSlotRequest) (*models.TimeSlot, error)
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
}

// CatalogHandler serves sections, subjects, rooms and time slots.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// bindAndCreate decodes the body into req and responds 201 with the created value.
func bindAndCreate[Req any, Out any](c *gin.Context, message string, create func(context.Context, Req) (Out, error)) {
	var req Req
	if !bindJSON(c, &req, message) {
		return
	}
	out, err := create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, out)
}

// CreateSection godoc
// @Summary Create section
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *CatalogHandler) CreateSection(c *gin.Context) {
	bindAndCreate(c, "invalid section payload", h.catalog.CreateSection)
}

// ListSections godoc
// @Summary List sections with seat counts
// @Tags Catalog
// @Produce json
// @Param gradeLevel query string false "Filter by grade level"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *CatalogHandler) ListSections(c *gin.Context) {
	sections, err := h.catalog.ListSections(c.Request.Context(), c.Query("gradeLevel"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// GetSection godoc
// @Summary Get section
// @Tags Catalog
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *CatalogHandler) GetSection(c *gin.Context) {
	section, err := h.catalog.GetSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// CreateSubject godoc
// @Summary Create subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects [post]
func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	bindAndCreate(c, "invalid subject payload", h.catalog.CreateSubject)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Param gradeLevel query string false "Filter by grade level"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.catalog.ListSubjects(c.Request.Context(), c.Query("gradeLevel"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// CreateRoom godoc
// @Summary Create room
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Router /rooms [post]
func (h *CatalogHandler) CreateRoom(c *gin.Context) {
	bindAndCreate(c, "invalid room payload", h.catalog.CreateRoom)
}

// ListRooms godoc
// @Summary List rooms
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	rooms, err := h.catalog.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// CreateTimeSlot godoc
// @Summary Create time slot
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimeSlotRequest true "Time slot payload"
// @Success 201 {object} response.Envelope
// @Router /time-slots [post]
func (h *CatalogHandler) CreateTimeSlot(c *gin.Context) {
	bindAndCreate(c, "invalid time slot payload", h.catalog.CreateTimeSlot)
}

// ListTimeSlots godoc
// @Summary List time slots
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-slots [get]
func (h *CatalogHandler) ListTimeSlots(c *gin.Context) {
	slots, err := h.catalog.ListTimeSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
