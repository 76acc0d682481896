package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
)

type mockStudentRepo struct {
	items      map[string]models.StudentDetail
	lastFilter models.StudentFilter
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.lastFilter = filter
	var out []models.StudentDetail
	for _, s := range m.items {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.items[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func TestStudentServiceList(t *testing.T) {
	repo := &mockStudentRepo{items: map[string]models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", StudentNumber: "SICS-2026-0001"}, SectionName: "Sampaguita"},
	}}
	svc := NewStudentService(repo, nil)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{Search: "  juan ", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, "juan", repo.lastFilter.Search)
	assert.Equal(t, 20, repo.lastFilter.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestStudentServiceGet(t *testing.T) {
	repo := &mockStudentRepo{items: map[string]models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1"}, SectionName: "Sampaguita"},
	}}
	svc := NewStudentService(repo, nil)

	student, err := svc.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Sampaguita", student.SectionName)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
