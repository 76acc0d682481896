package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

func TestMetricsServiceSnapshotCountsDomainEvents(t *testing.T) {
	m := NewMetricsService()
	m.RecordEnrollmentTransition(models.EnrollmentStatusApproved)
	m.RecordEnrollmentTransition(models.EnrollmentStatusApproved)
	m.RecordEnrollmentTransition(models.EnrollmentStatusRejected)
	m.RecordScheduleConflict(models.ConflictRoom)
	m.RecordNotification(NotificationQueued)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.EnrollmentTransitions["approved"])
	assert.Equal(t, uint64(1), snap.EnrollmentTransitions["rejected"])
	assert.Equal(t, uint64(1), snap.ScheduleConflicts["ROOM"])
	assert.Equal(t, uint64(1), snap.Notifications["queued"])
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestMetricsServiceHandlerExposesCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordPayment(models.PaymentMethodGCash)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `payments_recorded_total{method="GCash"} 1`))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordPayment(models.PaymentMethodCash)
	m.RecordNotification(NotificationFailed)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())
}
