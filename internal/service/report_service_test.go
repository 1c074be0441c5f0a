package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/completion-report-api/internal/dto"
	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
	"github.com/noah-isme/completion-report-api/pkg/export"
)

type courseRepoStub struct {
	courses map[int64]*models.Course
}

func (s *courseRepoStub) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *course
	return &cp, nil
}

type mockPreferenceStore struct {
	mock.Mock
}

func (m *mockPreferenceStore) Get(ctx context.Context, userID int64, name string) (string, bool, error) {
	args := m.Called(ctx, userID, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockPreferenceStore) Set(ctx context.Context, userID int64, name, value string) error {
	args := m.Called(ctx, userID, name, value)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event models.ReportViewedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type metricsRecorder struct {
	views     []string
	fallbacks int
}

func (m *metricsRecorder) RecordReportView(report string, filter models.EnrolStatusFilter) {
	m.views = append(m.views, report+":"+string(filter))
}

func (m *metricsRecorder) RecordPreferenceFallback() { m.fallbacks++ }

type reportFixture struct {
	svc     *ReportService
	store   *completionStoreStub
	prefs   *mockPreferenceStore
	events  *mockPublisher
	metrics *metricsRecorder
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		store:   &completionStoreStub{},
		prefs:   &mockPreferenceStore{},
		events:  &mockPublisher{},
		metrics: &metricsRecorder{},
	}
	courses := &courseRepoStub{courses: map[int64]*models.Course{
		7: {ID: 7, ContextID: 70, FullName: "Biology 101", ShortName: "BIO 101", EnableCompletion: true},
		8: {ID: 8, ContextID: 80, FullName: "No tracking"},
	}}
	f.svc = NewReportService(ReportDeps{
		Courses:     courses,
		Completion:  f.store,
		Preferences: f.prefs,
		Events:      f.events,
		Builder:     testBuilder(),
		Exporters: map[string]Exporter{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		Metrics: f.metrics,
	}, ReportServiceConfig{DefaultPageSize: 20, MaxPageSize: 100})
	return f
}

func TestReportServiceResolveFilterRemembersExplicitValue(t *testing.T) {
	f := newReportFixture()
	f.prefs.On("Set", mock.Anything, int64(3), models.EnrolStatusPreferenceKey, "suspended").Return(nil).Once()

	filter := f.svc.ResolveFilter(context.Background(), 3, "Suspended")
	assert.Equal(t, models.EnrolFilterSuspended, filter)
	f.prefs.AssertExpectations(t)
}

func TestReportServiceResolveFilterUnknownValueIsAll(t *testing.T) {
	f := newReportFixture()
	f.prefs.On("Set", mock.Anything, int64(3), models.EnrolStatusPreferenceKey, "all").Return(errors.New("down")).Once()

	assert.Equal(t, models.EnrolFilterAll, f.svc.ResolveFilter(context.Background(), 3, "whatever"))
	f.prefs.AssertExpectations(t)
}

func TestReportServiceResolveFilterReadsPreference(t *testing.T) {
	f := newReportFixture()
	f.prefs.On("Get", mock.Anything, int64(3), models.EnrolStatusPreferenceKey).Return("notcurrent", true, nil).Once()

	assert.Equal(t, models.EnrolFilterNotCurrent, f.svc.ResolveFilter(context.Background(), 3, ""))
	f.prefs.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReportServicePreferenceReadFailureFallsBack(t *testing.T) {
	f := newReportFixture()
	f.prefs.On("Get", mock.Anything, int64(3), models.EnrolStatusPreferenceKey).Return("", false, gobreaker.ErrOpenState).Once()

	filter, err := f.svc.GetFilterPreference(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.EnrolFilterAll, filter)
	assert.Equal(t, 1, f.metrics.fallbacks)
}

func TestReportServiceSetFilterPreference(t *testing.T) {
	f := newReportFixture()

	_, err := f.svc.SetFilterPreference(context.Background(), 3, dto.EnrolStatusPreferenceRequest{Value: "bogus"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	f.prefs.On("Set", mock.Anything, int64(3), models.EnrolStatusPreferenceKey, "notactive").Return(nil).Once()
	filter, err := f.svc.SetFilterPreference(context.Background(), 3, dto.EnrolStatusPreferenceRequest{Value: "notactive"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrolFilterNotActive, filter)

	f.prefs.On("Set", mock.Anything, int64(3), models.EnrolStatusPreferenceKey, "active").Return(gobreaker.ErrOpenState).Once()
	_, err = f.svc.SetFilterPreference(context.Background(), 3, dto.EnrolStatusPreferenceRequest{Value: "active"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreferenceUnavailable.Status, appErrors.FromError(err).Status)
	f.prefs.AssertExpectations(t)
}

func TestReportServiceOpenMissingCourse(t *testing.T) {
	f := newReportFixture()

	_, err := f.svc.Open(context.Background(), 99, models.EnrolFilterAll)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceTrackedUsersPublishesEvent(t *testing.T) {
	f := newReportFixture()
	f.store.count = 1
	f.store.users = []models.TrackedUser{{ID: 5, FirstName: "Ada"}}
	f.store.enrolments = map[int64][]models.EnrolmentRecord{5: {record(models.UserEnrolActive, models.EnrolInstanceEnabled, 0, 0)}}
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(e models.ReportViewedEvent) bool {
		return e.Name == models.EventCompletionReportViewed && e.CourseID == 7 && e.ViewerID == 3 && e.Filter == models.EnrolFilterActive && e.ID != ""
	})).Return(errors.New("broker down")).Once()

	resp, page, err := f.svc.TrackedUsers(context.Background(), dto.CompletionReportQuery{
		CourseID: 7, ViewerID: 3, Filter: models.EnrolFilterActive, Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, models.EnrolLabelActive, resp.Users[0].EnrolStatus)
	assert.Equal(t, &models.Pagination{Page: 2, PageSize: 10, TotalCount: 1}, page)
	assert.Equal(t, 10, f.store.lastList.Offset)
	assert.Equal(t, []string{"completion_report_viewed:active"}, f.metrics.views)
	f.events.AssertExpectations(t)
}

func TestReportServiceRejectsDisabledCompletion(t *testing.T) {
	f := newReportFixture()

	_, _, err := f.svc.TrackedUsers(context.Background(), dto.CompletionReportQuery{CourseID: 8, ViewerID: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCompletionDisabled.Code, appErrors.FromError(err).Code)
}

func TestReportServiceTrackedUsersQuery(t *testing.T) {
	f := newReportFixture()

	q := f.svc.trackedUsersQuery(dto.CompletionReportQuery{Search: " 50%_Off ", Sort: "email", Order: "desc", PageSize: 500, GroupID: -1})
	assert.Equal(t, searchWhere, q.Where)
	assert.Equal(t, `%50\%\_off%`, q.WhereParams["search"])
	assert.Equal(t, "u.email DESC, u.id DESC", q.Sort)
	assert.Equal(t, 100, q.LimitNum)
	assert.Equal(t, 0, q.LimitFrom)
	assert.Equal(t, int64(-1), q.GroupID)

	q = f.svc.trackedUsersQuery(dto.CompletionReportQuery{Sort: "u.password; DROP TABLE users", Page: 3})
	assert.Empty(t, q.Where)
	assert.Equal(t, "u.last_name ASC, u.id ASC", q.Sort)
	assert.Equal(t, 20, q.LimitNum)
	assert.Equal(t, 40, q.LimitFrom)
}

func TestReportServiceValidatesQuery(t *testing.T) {
	f := newReportFixture()

	_, _, err := f.svc.Progress(context.Background(), dto.CompletionReportQuery{CourseID: 7, ViewerID: 3, Sort: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceProgress(t *testing.T) {
	f := newReportFixture()
	f.store.count = 1
	f.store.activities = []models.Activity{{ID: 40, Name: "Quiz"}}
	f.store.users = []models.TrackedUser{{ID: 5}}
	f.store.progress = []models.ModuleCompletion{{CourseModuleID: 40, UserID: 5, CompletionState: models.CompletionComplete}}
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

	resp, _, err := f.svc.Progress(context.Background(), dto.CompletionReportQuery{CourseID: 7, ViewerID: 3, Filter: models.EnrolFilterAll})
	require.NoError(t, err)
	require.Len(t, resp.Activities, 1)
	require.Len(t, resp.Report.Users, 1)
	assert.Equal(t, models.CompletionComplete, resp.Report.Users[0].Progress[40].CompletionState)
	assert.Equal(t, 1, resp.Report.Total)
}

func TestReportServiceExportCSV(t *testing.T) {
	f := newReportFixture()
	f.store.activities = []models.Activity{{ID: 40, Name: "Quiz"}}
	f.store.users = []models.TrackedUser{{ID: 5, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org"}}
	f.store.enrolments = map[int64][]models.EnrolmentRecord{5: {record(models.UserEnrolSuspended, models.EnrolInstanceEnabled, 0, 0)}}
	f.store.progress = []models.ModuleCompletion{{CourseModuleID: 40, UserID: 5, CompletionState: models.CompletionComplete}}
	f.store.completions = map[int64]*int64{5: int64Ptr(testNow)}
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(e models.ReportViewedEvent) bool {
		return e.Name == models.EventReportExported
	})).Return(nil).Once()

	file, err := f.svc.Export(context.Background(), dto.CompletionReportQuery{CourseID: 7, ViewerID: 3, Filter: models.EnrolFilterSuspended, PageSize: 5}, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "completion-bio-101-suspended.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Name,Email,ID number,Enrolment status,Quiz,Completion date", lines[0])
	assert.Equal(t, "Ada Lovelace,ada@example.org,,Suspended,Completed,2023-11-14", lines[1])
	assert.Zero(t, f.store.lastList.Limit)
	f.events.AssertExpectations(t)
}

func TestReportServiceExportRejectsUnknownFormat(t *testing.T) {
	f := newReportFixture()

	_, err := f.svc.Export(context.Background(), dto.CompletionReportQuery{CourseID: 7, ViewerID: 3}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceFilterOptions(t *testing.T) {
	options := newReportFixture().svc.FilterOptions()
	require.Len(t, options, 6)
	assert.Equal(t, models.EnrolFilterAll, options[0].Value)
	assert.Equal(t, "Not current", options[5].Title)
}
