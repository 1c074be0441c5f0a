package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/completion-report-api/internal/dto"
	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
)

type preferenceServiceMock struct {
	stored models.EnrolStatusFilter
	setErr error
}

func (m *preferenceServiceMock) GetFilterPreference(ctx context.Context, viewerID int64) (models.EnrolStatusFilter, error) {
	return m.stored, nil
}

func (m *preferenceServiceMock) SetFilterPreference(ctx context.Context, viewerID int64, req dto.EnrolStatusPreferenceRequest) (models.EnrolStatusFilter, error) {
	if m.setErr != nil {
		return "", m.setErr
	}
	m.stored = models.EnrolStatusFilter(req.Value)
	return m.stored, nil
}

func (m *preferenceServiceMock) FilterOptions() []dto.EnrolStatusFilterOption {
	return []dto.EnrolStatusFilterOption{{Value: models.EnrolFilterAll, Title: "All"}}
}

func TestPreferenceHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPreferenceHandler(&preferenceServiceMock{stored: models.EnrolFilterActive})

	c, w := newGinContext(http.MethodGet, "/preferences/enrolstat", nil)
	withViewer(c)
	handler.GetEnrolStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"value":"active","options":[{"value":"all","title":"All"}]}}`, w.Body.String())
}

func TestPreferenceHandlerSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &preferenceServiceMock{}
	handler := NewPreferenceHandler(svc)

	payload, _ := json.Marshal(dto.EnrolStatusPreferenceRequest{Value: "notcurrent"})
	c, w := newGinContext(http.MethodPut, "/preferences/enrolstat", payload)
	withViewer(c)
	handler.SetEnrolStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnrolFilterNotCurrent, svc.stored)
}

func TestPreferenceHandlerSetErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, w := newGinContext(http.MethodPut, "/preferences/enrolstat", []byte("{"))
	withViewer(c)
	NewPreferenceHandler(&preferenceServiceMock{}).SetEnrolStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	unavailable := appErrors.Wrap(errors.New("circuit breaker is open"), appErrors.ErrPreferenceUnavailable.Code,
		appErrors.ErrPreferenceUnavailable.Status, appErrors.ErrPreferenceUnavailable.Message)
	c, w = newGinContext(http.MethodPut, "/preferences/enrolstat", []byte(`{"value":"active"}`))
	withViewer(c)
	NewPreferenceHandler(&preferenceServiceMock{setErr: unavailable}).SetEnrolStatus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "PREFERENCE_UNAVAILABLE")

	c, w = newGinContext(http.MethodGet, "/preferences/enrolstat", nil)
	NewPreferenceHandler(&preferenceServiceMock{}).GetEnrolStatus(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
