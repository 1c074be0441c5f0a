package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/completion-report-api/internal/models"
)

type completionOpener interface {
	Open(ctx context.Context, courseID int64, filter models.EnrolStatusFilter) (*CompletionInfo, error)
}

// Navigation node keys.
const (
	NavigationCompletionReport = "report_completionall"
	NavigationProgressReport   = "report_completionall_progress"
)

// pageTypes is keyed by page type pattern.
var pageTypes = map[string]string{
	"*":                             "Any page",
	"report-*":                      "Any report",
	"report-completionall-*":        "Any completion report",
	"report-completionall-index":    "Course completion report",
	"report-completionall-user":     "User course completion report",
	"report-completionall-progress": "Activity completion report",
}

// NavigationService decides which report links a viewer sees in a course.
type NavigationService struct {
	reports completionOpener
	baseURL string
	logger  *zap.Logger
}

// NewNavigationService constructs the service. baseURL prefixes node links.
func NewNavigationService(reports completionOpener, baseURL string, logger *zap.Logger) *NavigationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NavigationService{reports: reports, baseURL: baseURL, logger: logger}
}

// CourseNodes returns the report links for the course. groupID is the group
// the viewer currently has selected, zero for none.
func (s *NavigationService) CourseNodes(ctx context.Context, courseID int64, viewer *models.JWTClaims, groupID int64) ([]models.NavigationNode, error) {
	nodes := []models.NavigationNode{}
	if !viewer.HasCapability(models.CapabilityCompletionView) {
		return nodes, nil
	}

	info, err := s.reports.Open(ctx, courseID, models.EnrolFilterAll)
	if err != nil {
		return nil, err
	}
	if !info.IsEnabled() {
		return nodes, nil
	}

	hasCriteria, err := info.HasCriteria(ctx)
	if err != nil {
		return nil, err
	}
	if hasCriteria {
		nodes = append(nodes, s.node(NavigationCompletionReport, "Course completion (all users)", "index", courseID))
	}

	showProgress := viewer.HasCapability(models.CapabilityProgressView)
	if groupID == 0 && info.Course().GroupMode == models.GroupModeSeparate {
		showProgress = showProgress && viewer.HasCapability(models.CapabilityAccessAllGroups)
	}
	if showProgress {
		hasActivities, err := info.HasActivities(ctx)
		if err != nil {
			return nil, err
		}
		showProgress = hasActivities
	}
	if showProgress {
		nodes = append(nodes, s.node(NavigationProgressReport, "Activity completion (all users)", "progress", courseID))
	}

	s.logger.Debug("course navigation resolved", zap.Int64("course_id", courseID), zap.Int("nodes", len(nodes)))
	return nodes, nil
}

// PageTypes lists the page types the report contributes.
func (s *NavigationService) PageTypes() map[string]string {
	types := make(map[string]string, len(pageTypes))
	for key, title := range pageTypes {
		types[key] = title
	}
	return types
}

func (s *NavigationService) node(key, title, page string, courseID int64) models.NavigationNode {
	return models.NavigationNode{
		Key:   key,
		Title: title,
		URL:   fmt.Sprintf("%s/report/completionall/%s?course=%d", s.baseURL, page, courseID),
		Type:  "setting",
		Icon:  "i/report",
	}
}
