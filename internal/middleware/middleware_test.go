package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditRecorder struct {
	logs []*models.AuditLog
	err  error
}

func (r *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/enrollments/:id/approve", handlers...)
	return r
}

func serve(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/enrollments/enr-1/approve", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	validator := staticValidator{
		"registrar": {UserID: "u1", Role: models.RoleRegistrar},
		"teacher":   {UserID: "u2", Role: models.RoleTeacher},
	}
	r := newRouter(JWT(validator), RequireRoles(models.RoleAdmin, models.RoleRegistrar))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic registrar", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"unknown token", "Bearer forged", http.StatusUnauthorized},
		{"role not allowed", "Bearer teacher", http.StatusForbidden},
		{"allowed", "bearer registrar", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(r, tc.header).Code)
		})
	}
}

func TestRequireRolesWithoutJWT(t *testing.T) {
	r := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &auditRecorder{err: errors.New("insert failed")}
	validator := staticValidator{"registrar": {UserID: "u1", Role: models.RoleRegistrar}}
	r := newRouter(JWT(validator), Audit(recorder, nil, models.AuditActionApprove, models.AuditResourceEnrollment))

	require.Equal(t, http.StatusOK, serve(r, "Bearer registrar").Code)
	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, models.AuditActionApprove, entry.Action)
	assert.Equal(t, models.AuditResourceEnrollment, entry.Resource)
	assert.JSONEq(t, `{"path":"/enrollments/:id/approve","method":"POST","status":200}`, stripLatency(t, entry.NewValues))
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "enr-1", *entry.ResourceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u1", *entry.UserID)

	serve(r, "Bearer forged")
	assert.Len(t, recorder.logs, 1)
}

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/enrollments/:id/approve", ok)
	r.GET("/health", ok)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/enrollments/enr-1/approve", nil),
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodGet, "/nowhere", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	// the probe is skipped, the unmatched path is counted
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}

func stripLatency(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Contains(t, body, "latency")
	delete(body, "latency")
	out, err := json.Marshal(body)
	require.NoError(t, err)
	return string(out)
}
