package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/completion-report-api/internal/models"
)

func TestMetricsServiceExposesCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/courses/:courseId/completion/users", http.StatusOK, 20*time.Millisecond)
	metrics.ObserveDBQuery("count_tracked_users", 5*time.Millisecond)
	metrics.RecordReportView(models.EventProgressReportViewed, models.EnrolFilterNotCurrent)
	metrics.RecordPreferenceFallback()

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, `completion_report_views_total{filter="notcurrent",report="progress_report_viewed"} 1`)
	assert.Contains(t, body, "preference_fallbacks_total 1")
	assert.Contains(t, body, `db_query_duration_seconds_count{query="count_tracked_users"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveDBQuery("x", time.Second)
	metrics.RecordPreferenceFallback()

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
