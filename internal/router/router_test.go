package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/handler"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
)

type tokens map[string]*models.JWTClaims

func (t tokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, "/api/v1", Handlers{
		Auth:        handler.NewAuthHandler(nil),
		Enrollments: handler.NewEnrollmentHandler(nil, 0),
		Students:    handler.NewStudentHandler(nil, nil, nil),
		Billing:     handler.NewBillingHandler(nil),
		Schedules:   handler.NewScheduleHandler(nil),
		Grades:      handler.NewGradeHandler(nil),
		Teachers:    handler.NewTeacherHandler(nil),
		Catalog:     handler.NewCatalogHandler(nil),
		Files:       handler.NewFileHandler(nil, nil),
		Metrics:     handler.NewMetricsHandler(nil, nil),
	}, Dependencies{Tokens: tokens{
		"teacher":   {UserID: "u-t", Role: models.RoleTeacher},
		"registrar": {UserID: "u-r", Role: models.RoleRegistrar},
	}})
	return r
}

func TestRegisterMountsRoutes(t *testing.T) {
	r := newEngine()
	routes := map[string]bool{}
	for _, info := range r.Routes() {
		routes[info.Method+" "+info.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/enrollments",
		"POST /api/v1/enrollments/:id/approve",
		"POST /api/v1/enrollments/walk-in",
		"POST /api/v1/students/:id/payments",
		"GET /api/v1/students/:id/ledger/export",
		"POST /api/v1/schedules",
		"GET /api/v1/sections/:id/schedules",
		"POST /api/v1/grades",
		"PUT /api/v1/grades/:id",
		"GET /api/v1/files/:token",
		"GET /ready",
	} {
		assert.True(t, routes[want], want)
	}
}

func TestRoleGuards(t *testing.T) {
	r := newEngine()

	cases := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodGet, "/api/v1/enrollments", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/enrollments/enr-1/approve", "teacher", http.StatusForbidden},
		{http.MethodPost, "/api/v1/schedules", "registrar", http.StatusForbidden},
		{http.MethodPut, "/api/v1/grades/g-1", "teacher", http.StatusForbidden},
		{http.MethodPost, "/api/v1/grades", "registrar", http.StatusForbidden},
		{http.MethodGet, "/health", "", http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		r.ServeHTTP(w, req)
		require.Equal(t, tc.want, w.Code, "%s %s as %q", tc.method, tc.path, tc.token)
	}
}
