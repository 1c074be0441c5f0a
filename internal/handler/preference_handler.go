package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/completion-report-api/internal/dto"
	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
	"github.com/noah-isme/completion-report-api/pkg/response"
)

type filterPreferences interface {
	GetFilterPreference(ctx context.Context, viewerID int64) (models.EnrolStatusFilter, error)
	SetFilterPreference(ctx context.Context, viewerID int64, req dto.EnrolStatusPreferenceRequest) (models.EnrolStatusFilter, error)
	FilterOptions() []dto.EnrolStatusFilterOption
}

// PreferenceHandler reads and writes the viewer's enrolment status filter.
type PreferenceHandler struct {
	preferences filterPreferences
}

// NewPreferenceHandler constructs the handler.
func NewPreferenceHandler(preferences filterPreferences) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences}
}

// GetEnrolStatus godoc
// @Summary Current enrolment status filter
// @Tags Preferences
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /preferences/enrolstat [get]
func (h *PreferenceHandler) GetEnrolStatus(c *gin.Context) {
	viewer, err := requireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	value, err := h.preferences.GetFilterPreference(c.Request.Context(), viewer.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EnrolStatusPreferenceResponse{Value: value, Options: h.preferences.FilterOptions()}, nil)
}

// SetEnrolStatus godoc
// @Summary Store the enrolment status filter
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.EnrolStatusPreferenceRequest true "Filter"
// @Success 200 {object} response.Envelope
// @Router /preferences/enrolstat [put]
func (h *PreferenceHandler) SetEnrolStatus(c *gin.Context) {
	viewer, err := requireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EnrolStatusPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	value, err := h.preferences.SetFilterPreference(c.Request.Context(), viewer.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EnrolStatusPreferenceResponse{Value: value, Options: h.preferences.FilterOptions()}, nil)
}
