package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

type gradeServiceMock struct {
	userID string
	req    dto.SubmitGradeRequest
}

func (m *gradeServiceMock) Submit(ctx context.Context, userID string, req dto.SubmitGradeRequest) (*models.Grade, error) {
	m.userID = userID
	m.req = req
	return &models.Grade{ID: "g-1", Score: *req.Score, Quarter: models.QuarterOne}, nil
}

func (m *gradeServiceMock) AdminUpdate(ctx context.Context, id string, req dto.UpdateGradeRequest) (*models.Grade, error) {
	return &models.Grade{ID: id, Score: *req.Score}, nil
}

func TestGradeHandlerSubmitUsesTokenUser(t *testing.T) {
	svc := &gradeServiceMock{}
	h := NewGradeHandler(svc)

	c, w := newJSONContext(t, http.MethodPost, "/grades", map[string]interface{}{"student_id": "stu-1", "subject_id": "sub-1", "score": 91.5})
	withUser(c, "user-teacher", models.RoleTeacher)
	h.Submit(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-teacher", svc.userID)
	assert.Equal(t, 91.5, *svc.req.Score)
}

func TestGradeHandlerSubmitRequiresUser(t *testing.T) {
	h := NewGradeHandler(&gradeServiceMock{})
	c, w := newJSONContext(t, http.MethodPost, "/grades", map[string]interface{}{"score": 80})
	h.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGradeHandlerUpdate(t *testing.T) {
	h := NewGradeHandler(&gradeServiceMock{})
	c, w := newJSONContext(t, http.MethodPut, "/grades/g-1", map[string]interface{}{"score": 75})
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"score":75`)
}
