package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/completion-report-api/internal/dto"
	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
	"github.com/noah-isme/completion-report-api/pkg/response"
)

type completionReporter interface {
	ResolveFilter(ctx context.Context, viewerID int64, raw string) models.EnrolStatusFilter
	Activities(ctx context.Context, courseID int64) ([]models.Activity, error)
	Criteria(ctx context.Context, courseID int64, criteriaType models.CriteriaType) ([]models.CompletionCriterion, error)
	IsTracked(ctx context.Context, courseID, userID int64, filter models.EnrolStatusFilter) (bool, error)
	TrackedUsers(ctx context.Context, q dto.CompletionReportQuery) (*dto.TrackedUsersResponse, *models.Pagination, error)
	Progress(ctx context.Context, q dto.CompletionReportQuery) (*dto.ProgressResponse, *models.Pagination, error)
	Export(ctx context.Context, q dto.CompletionReportQuery, format string) (*dto.ExportFile, error)
}

type courseNavigator interface {
	CourseNodes(ctx context.Context, courseID int64, viewer *models.JWTClaims, groupID int64) ([]models.NavigationNode, error)
	PageTypes() map[string]string
}

// CompletionHandler exposes the course completion report endpoints.
type CompletionHandler struct {
	reports    completionReporter
	navigation courseNavigator
}

// NewCompletionHandler constructs the handler.
func NewCompletionHandler(reports completionReporter, navigation courseNavigator) *CompletionHandler {
	return &CompletionHandler{reports: reports, navigation: navigation}
}

// Navigation godoc
// @Summary Report links for a course
// @Tags Completion
// @Produce json
// @Param courseId path int true "Course ID"
// @Param group query int false "Selected group"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/navigation [get]
func (h *CompletionHandler) Navigation(c *gin.Context) {
	viewer, err := requireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	courseID, err := int64Param(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var groupID int64
	if raw := c.Query("group"); raw != "" {
		groupID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "group must be an integer"))
			return
		}
	}
	nodes, err := h.navigation.CourseNodes(c.Request.Context(), courseID, viewer, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nodes, nil)
}

// PageTypes godoc
// @Summary Report page types
// @Tags Completion
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /page-types [get]
func (h *CompletionHandler) PageTypes(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.navigation.PageTypes(), nil)
}

// Activities godoc
// @Summary Activities with completion tracking
// @Tags Completion
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/completion/activities [get]
func (h *CompletionHandler) Activities(c *gin.Context) {
	courseID, err := int64Param(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	activities, err := h.reports.Activities(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Criteria godoc
// @Summary Course completion criteria
// @Tags Completion
// @Produce json
// @Param courseId path int true "Course ID"
// @Param type query int false "Criteria type, 0 for all"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/completion/criteria [get]
func (h *CompletionHandler) Criteria(c *gin.Context) {
	courseID, err := int64Param(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var criteriaType int
	if raw := c.Query("type"); raw != "" {
		criteriaType, err = strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be an integer"))
			return
		}
	}
	criteria, err := h.reports.Criteria(c.Request.Context(), courseID, models.CriteriaType(criteriaType))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, criteria, nil)
}

// TrackedUsers godoc
// @Summary Tracked users of the completion report
// @Tags Completion
// @Produce json
// @Param courseId path int true "Course ID"
// @Param enrolstat query string false "Enrolment status filter"
// @Param group query int false "Group ID"
// @Param search query string false "Name or email search"
// @Param sort query string false "Sort key"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/completion/users [get]
func (h *CompletionHandler) TrackedUsers(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	result, pagination, err := h.reports.TrackedUsers(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, pagination)
}

// IsTracked godoc
// @Summary Whether a user is tracked in the course
// @Tags Completion
// @Produce json
// @Param courseId path int true "Course ID"
// @Param userId path int true "User ID"
// @Param enrolstat query string false "Enrolment status filter"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/completion/users/{userId}/tracked [get]
func (h *CompletionHandler) IsTracked(c *gin.Context) {
	viewer, err := requireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	courseID, err := int64Param(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := int64Param(c, "userId")
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	filter := h.reports.ResolveFilter(ctx, viewer.UserID, c.Query("enrolstat"))
	tracked, err := h.reports.IsTracked(ctx, courseID, userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TrackedUserResponse{UserID: userID, Filter: filter, Tracked: tracked}, nil)
}

// Progress godoc
// @Summary Activity completion progress
// @Tags Completion
// @Produce json
// @Param courseId path int true "Course ID"
// @Param enrolstat query string false "Enrolment status filter"
// @Param group query int false "Group ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/completion/progress [get]
func (h *CompletionHandler) Progress(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	result, pagination, err := h.reports.Progress(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, pagination)
}

// Export godoc
// @Summary Download the progress report
// @Tags Completion
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path int true "Course ID"
// @Param format query string false "csv or pdf"
// @Param enrolstat query string false "Enrolment status filter"
// @Param group query int false "Group ID"
// @Success 200 {file} file
// @Router /courses/{courseId}/completion/export [get]
func (h *CompletionHandler) Export(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", dto.ExportFormatCSV)
	file, err := h.reports.Export(c.Request.Context(), q, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// reportQuery binds the shared report parameters and resolves the filter.
// It writes the error response itself and reports false on failure.
func (h *CompletionHandler) reportQuery(c *gin.Context) (dto.CompletionReportQuery, bool) {
	var q dto.CompletionReportQuery
	viewer, err := requireViewer(c)
	if err != nil {
		response.Error(c, err)
		return q, false
	}
	courseID, err := int64Param(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return q, false
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return q, false
	}
	q.CourseID = courseID
	q.ViewerID = viewer.UserID
	q.Filter = h.reports.ResolveFilter(c.Request.Context(), viewer.UserID, c.Query("enrolstat"))
	return q, true
}
