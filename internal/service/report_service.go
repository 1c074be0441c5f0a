package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/completion-report-api/internal/dto"
	"github.com/noah-isme/completion-report-api/internal/enrolsql"
	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// PreferenceStore persists string preferences per user.
type PreferenceStore interface {
	Get(ctx context.Context, userID int64, name string) (string, bool, error)
	Set(ctx context.Context, userID int64, name, value string) error
}

// EventPublisher delivers report events.
type EventPublisher interface {
	Publish(ctx context.Context, event models.ReportViewedEvent) error
}

type reportMetrics interface {
	RecordReportView(report string, filter models.EnrolStatusFilter)
	RecordPreferenceFallback()
}

const searchWhere = "(LOWER(u.first_name) LIKE :search ESCAPE '\\' OR LOWER(u.last_name) LIKE :search ESCAPE '\\'" +
	" OR LOWER(u.email) LIKE :search ESCAPE '\\' OR LOWER(u.idnumber) LIKE :search ESCAPE '\\')"

var sortColumns = map[string]string{
	"id":        "u.id",
	"idnumber":  "u.idnumber",
	"firstname": "u.first_name",
	"lastname":  "u.last_name",
	"email":     "u.email",
}

// ReportServiceConfig tunes paging and tracking.
type ReportServiceConfig struct {
	TrackedCapabilities []string
	DefaultPageSize     int
	MaxPageSize         int
}

// ReportDeps groups the collaborators of ReportService.
type ReportDeps struct {
	Courses     courseRepository
	Completion  CompletionStore
	Preferences PreferenceStore
	Events      EventPublisher
	Builder     *enrolsql.Builder
	Exporters   map[string]Exporter
	Metrics     reportMetrics
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// ReportService serves the completion and progress reports.
type ReportService struct {
	courses     courseRepository
	completion  CompletionStore
	preferences PreferenceStore
	events      EventPublisher
	builder     *enrolsql.Builder
	exporters   map[string]Exporter
	metrics     reportMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ReportServiceConfig
	now         func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(deps ReportDeps, cfg ReportServiceConfig) *ReportService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Builder == nil {
		deps.Builder = enrolsql.NewBuilder(1)
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 5000
	}
	if len(cfg.TrackedCapabilities) == 0 {
		cfg.TrackedCapabilities = []string{models.CapabilityInCompletionReports}
	}
	return &ReportService{
		courses:     deps.Courses,
		completion:  deps.Completion,
		preferences: deps.Preferences,
		events:      deps.Events,
		builder:     deps.Builder,
		exporters:   deps.Exporters,
		metrics:     deps.Metrics,
		validator:   deps.Validator,
		logger:      deps.Logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Open loads the course and binds it to filter.
func (s *ReportService) Open(ctx context.Context, courseID int64, filter models.EnrolStatusFilter) (*CompletionInfo, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return NewCompletionInfo(*course, filter, CompletionDeps{
		Store:               s.completion,
		Builder:             s.builder,
		TrackedCapabilities: s.cfg.TrackedCapabilities,
		Logger:              s.logger,
	}), nil
}

// ResolveFilter returns the filter a report request should use. A non-empty
// raw value wins and is remembered for the viewer; otherwise the stored
// preference applies.
func (s *ReportService) ResolveFilter(ctx context.Context, viewerID int64, raw string) models.EnrolStatusFilter {
	if strings.TrimSpace(raw) == "" {
		filter, _ := s.GetFilterPreference(ctx, viewerID)
		return filter
	}
	filter := models.ParseEnrolStatusFilter(raw)
	if s.preferences != nil {
		if err := s.preferences.Set(ctx, viewerID, models.EnrolStatusPreferenceKey, string(filter)); err != nil {
			s.logger.Warn("failed to remember enrolment status filter",
				zap.Int64("user_id", viewerID),
				zap.String("filter", string(filter)),
				zap.Error(err),
			)
		}
	}
	return filter
}

// GetFilterPreference returns the viewer's stored filter. Missing or
// unreadable preferences fall back to EnrolFilterAll.
func (s *ReportService) GetFilterPreference(ctx context.Context, viewerID int64) (models.EnrolStatusFilter, error) {
	if s.preferences == nil {
		return models.EnrolFilterAll, nil
	}
	value, found, err := s.preferences.Get(ctx, viewerID, models.EnrolStatusPreferenceKey)
	if err != nil {
		s.logger.Warn("preference lookup failed, using default filter", zap.Int64("user_id", viewerID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordPreferenceFallback()
		}
		return models.EnrolFilterAll, nil
	}
	if !found {
		return models.EnrolFilterAll, nil
	}
	return models.ParseEnrolStatusFilter(value), nil
}

// SetFilterPreference validates and stores the viewer's filter.
func (s *ReportService) SetFilterPreference(ctx context.Context, viewerID int64, req dto.EnrolStatusPreferenceRequest) (models.EnrolStatusFilter, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrolment status filter")
	}
	filter := models.EnrolStatusFilter(req.Value)
	if s.preferences == nil {
		return "", appErrors.Clone(appErrors.ErrPreferenceUnavailable, "")
	}
	if err := s.preferences.Set(ctx, viewerID, models.EnrolStatusPreferenceKey, string(filter)); err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", appErrors.Wrap(err, appErrors.ErrPreferenceUnavailable.Code, appErrors.ErrPreferenceUnavailable.Status, appErrors.ErrPreferenceUnavailable.Message)
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store enrolment status filter")
	}
	return filter, nil
}

// FilterOptions lists the filters in menu order.
func (s *ReportService) FilterOptions() []dto.EnrolStatusFilterOption {
	options := make([]dto.EnrolStatusFilterOption, len(models.EnrolStatusFilters))
	for i, filter := range models.EnrolStatusFilters {
		options[i] = dto.EnrolStatusFilterOption{Value: filter, Title: filter.Title()}
	}
	return options
}

// Activities returns the tracked activities of a course.
func (s *ReportService) Activities(ctx context.Context, courseID int64) ([]models.Activity, error) {
	info, err := s.Open(ctx, courseID, models.EnrolFilterAll)
	if err != nil {
		return nil, err
	}
	activities, err := info.GetActivities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activities")
	}
	return activities, nil
}

// Criteria returns the completion criteria of a course, optionally of one type.
func (s *ReportService) Criteria(ctx context.Context, courseID int64, criteriaType models.CriteriaType) ([]models.CompletionCriterion, error) {
	if criteriaType < 0 || criteriaType > models.CriteriaTypeCourse {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown criteria type")
	}
	info, err := s.Open(ctx, courseID, models.EnrolFilterAll)
	if err != nil {
		return nil, err
	}
	criteria, err := info.GetCriteria(ctx, criteriaType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion criteria")
	}
	return criteria, nil
}

// IsTracked reports whether userID is tracked in the course under filter.
func (s *ReportService) IsTracked(ctx context.Context, courseID, userID int64, filter models.EnrolStatusFilter) (bool, error) {
	info, err := s.Open(ctx, courseID, filter)
	if err != nil {
		return false, err
	}
	tracked, err := info.IsTrackedUser(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check tracked user")
	}
	return tracked, nil
}

// TrackedUsers returns one page of the completion report users.
func (s *ReportService) TrackedUsers(ctx context.Context, q dto.CompletionReportQuery) (*dto.TrackedUsersResponse, *models.Pagination, error) {
	info, query, err := s.prepare(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	total, err := info.GetNumTrackedUsers(ctx, query)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count tracked users")
	}
	users, err := info.GetTrackedUsers(ctx, query)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tracked users")
	}

	s.viewed(ctx, models.EventCompletionReportViewed, info, q.ViewerID)
	return &dto.TrackedUsersResponse{Filter: info.Filter(), Users: users, Total: total},
		pagination(query, total), nil
}

// Progress returns one page of the activity completion report.
func (s *ReportService) Progress(ctx context.Context, q dto.CompletionReportQuery) (*dto.ProgressResponse, *models.Pagination, error) {
	info, query, err := s.prepare(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	activities, err := info.GetActivities(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activities")
	}
	total, err := info.GetNumTrackedUsers(ctx, query)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count tracked users")
	}
	users, err := info.GetProgressAll(ctx, query)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}

	s.viewed(ctx, models.EventProgressReportViewed, info, q.ViewerID)
	return &dto.ProgressResponse{
			Filter:     info.Filter(),
			Activities: activities,
			Report:     models.ProgressReport{Total: total, Start: query.LimitFrom, Users: users},
		},
		pagination(query, total), nil
}

func (s *ReportService) prepare(ctx context.Context, q dto.CompletionReportQuery) (*CompletionInfo, models.TrackedUsersQuery, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, models.TrackedUsersQuery{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query")
	}
	info, err := s.Open(ctx, q.CourseID, q.Filter)
	if err != nil {
		return nil, models.TrackedUsersQuery{}, err
	}
	if !info.IsEnabled() {
		return nil, models.TrackedUsersQuery{}, appErrors.Clone(appErrors.ErrCompletionDisabled, "")
	}
	return info, s.trackedUsersQuery(q), nil
}

// trackedUsersQuery turns request parameters into trusted SQL fragments. Only
// whitelisted sort keys and bound search values reach the query.
func (s *ReportService) trackedUsersQuery(q dto.CompletionReportQuery) models.TrackedUsersQuery {
	query := models.TrackedUsersQuery{GroupID: q.GroupID}

	if search := strings.TrimSpace(q.Search); search != "" {
		query.Where = searchWhere
		query.WhereParams = map[string]interface{}{"search": "%" + escapeLike(strings.ToLower(search)) + "%"}
	}

	column, ok := sortColumns[q.Sort]
	if !ok {
		column = "u.last_name"
	}
	direction := "ASC"
	if strings.EqualFold(q.Order, "desc") {
		direction = "DESC"
	}
	query.Sort = fmt.Sprintf("%s %s, u.id %s", column, direction, direction)

	size := q.PageSize
	switch {
	case size <= 0:
		size = s.cfg.DefaultPageSize
	case size > s.cfg.MaxPageSize:
		size = s.cfg.MaxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	query.LimitNum = size
	query.LimitFrom = (page - 1) * size
	return query
}

func (s *ReportService) viewed(ctx context.Context, name string, info *CompletionInfo, viewerID int64) {
	if s.metrics != nil {
		s.metrics.RecordReportView(name, info.Filter())
	}
	if s.events == nil {
		return
	}
	event := models.ReportViewedEvent{
		ID:         uuid.NewString(),
		Name:       name,
		CourseID:   info.Course().ID,
		ViewerID:   viewerID,
		Filter:     info.Filter(),
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish report event",
			zap.String("event", name),
			zap.Int64("course_id", event.CourseID),
			zap.Error(err),
		)
	}
}

func pagination(query models.TrackedUsersQuery, total int) *models.Pagination {
	return &models.Pagination{Page: query.LimitFrom/query.LimitNum + 1, PageSize: query.LimitNum, TotalCount: total}
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
