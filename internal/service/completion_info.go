package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/completion-report-api/internal/enrolsql"
	"github.com/noah-isme/completion-report-api/internal/models"
	"github.com/noah-isme/completion-report-api/internal/repository"
)

// CompletionStore runs the completion report queries.
type CompletionStore interface {
	CountUsersIn(ctx context.Context, sub enrolsql.Subquery, where string, whereParams map[string]interface{}) (int, error)
	ListUsersIn(ctx context.Context, sub enrolsql.Subquery, q repository.UserListQuery) ([]models.TrackedUser, error)
	EnrolmentsForUsers(ctx context.Context, courseID int64, userIDs []int64) (map[int64][]models.EnrolmentRecord, error)
	ListActivities(ctx context.Context, courseID int64) ([]models.Activity, error)
	ListCriteria(ctx context.Context, courseID int64) ([]models.CompletionCriterion, error)
	ProgressByUsers(ctx context.Context, courseID int64, userIDs []int64) ([]models.ModuleCompletion, error)
	CourseCompletions(ctx context.Context, courseID int64, userIDs []int64) (map[int64]*int64, error)
}

// CompletionDeps are the collaborators of a CompletionInfo.
type CompletionDeps struct {
	Store   CompletionStore
	Builder *enrolsql.Builder
	// TrackedCapabilities restricts tracked users to holders of any of them.
	TrackedCapabilities []string
	Logger              *zap.Logger
}

// CompletionInfo answers completion questions for one course under one
// enrolment status filter. It is request scoped and not safe for concurrent
// use.
type CompletionInfo struct {
	course       models.Course
	filter       models.EnrolStatusFilter
	store        CompletionStore
	builder      *enrolsql.Builder
	capabilities []string
	logger       *zap.Logger

	criteria       []models.CompletionCriterion
	criteriaLoaded bool
}

// NewCompletionInfo binds a course and filter to the report queries. Invalid
// filters behave as EnrolFilterAll.
func NewCompletionInfo(course models.Course, filter models.EnrolStatusFilter, deps CompletionDeps) *CompletionInfo {
	if !filter.Valid() {
		filter = models.EnrolFilterAll
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := deps.Builder
	if builder == nil {
		builder = enrolsql.NewBuilder(0)
	}
	return &CompletionInfo{
		course:       course,
		filter:       filter,
		store:        deps.Store,
		builder:      builder,
		capabilities: deps.TrackedCapabilities,
		logger:       logger,
	}
}

// Course returns the bound course.
func (i *CompletionInfo) Course() models.Course { return i.course }

// Filter returns the bound enrolment status filter.
func (i *CompletionInfo) Filter() models.EnrolStatusFilter { return i.filter }

// IsEnabled reports whether completion tracking is on for the course.
func (i *CompletionInfo) IsEnabled() bool { return i.course.EnableCompletion }

// GetActivities returns the tracked activities in course order.
func (i *CompletionInfo) GetActivities(ctx context.Context) ([]models.Activity, error) {
	return i.store.ListActivities(ctx, i.course.ID)
}

// HasActivities reports whether any activity is tracked.
func (i *CompletionInfo) HasActivities(ctx context.Context) (bool, error) {
	activities, err := i.GetActivities(ctx)
	if err != nil {
		return false, err
	}
	return len(activities) > 0, nil
}

// IsTrackedUser reports whether userID belongs to the tracked users.
func (i *CompletionInfo) IsTrackedUser(ctx context.Context, userID int64) (bool, error) {
	sub := i.builder.EnrolledSQL(i.course, i.capabilities, 0, i.filter, 0)
	total, err := i.store.CountUsersIn(ctx, sub, "u.id = :tracked_userid", map[string]interface{}{"tracked_userid": userID})
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// GetNumTrackedUsers counts the tracked users matching q. Sorting and paging
// fields are ignored.
func (i *CompletionInfo) GetNumTrackedUsers(ctx context.Context, q models.TrackedUsersQuery) (int, error) {
	sub := i.builder.EnrolledSQL(i.course, i.capabilities, q.GroupID, i.filter, 0)
	return i.store.CountUsersIn(ctx, sub, q.Where, q.WhereParams)
}

// GetTrackedUsers returns one page of tracked users, each carrying its
// enrolment records in the course and the label derived from them.
func (i *CompletionInfo) GetTrackedUsers(ctx context.Context, q models.TrackedUsersQuery) ([]models.TrackedUser, error) {
	sub := i.builder.EnrolledSQL(i.course, i.capabilities, q.GroupID, i.filter, 0)
	users, err := i.store.ListUsersIn(ctx, sub, repository.UserListQuery{
		Where:  q.Where,
		Params: q.WhereParams,
		Sort:   q.Sort,
		Offset: q.LimitFrom,
		Limit:  q.LimitNum,
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return users, nil
	}

	// Everyone is enrolled in the site course without a record.
	if i.course.ID == i.builder.SiteCourseID() {
		for idx := range users {
			users[idx].EnrolStatus = models.EnrolLabelActive
		}
		return users, nil
	}

	enrolments, err := i.store.EnrolmentsForUsers(ctx, i.course.ID, userIDs(users))
	if err != nil {
		return nil, err
	}
	now := i.builder.Now()
	for idx := range users {
		records := enrolments[users[idx].ID]
		users[idx].Enrolments = records
		users[idx].EnrolStatus = EnrolmentLabelFor(records, now)
	}
	return users, nil
}

// GetCriteria returns the course completion criteria, optionally only those of
// criteriaType. Zero selects every type. Activity criteria follow the course
// activity order; other criteria keep their positions.
func (i *CompletionInfo) GetCriteria(ctx context.Context, criteriaType models.CriteriaType) ([]models.CompletionCriterion, error) {
	if !i.criteriaLoaded {
		criteria, err := i.store.ListCriteria(ctx, i.course.ID)
		if err != nil {
			return nil, err
		}
		if hasActivityCriteria(criteria) {
			activities, err := i.GetActivities(ctx)
			if err != nil {
				return nil, err
			}
			orderActivityCriteria(criteria, activities)
		}
		i.criteria = criteria
		i.criteriaLoaded = true
	}

	if criteriaType == 0 {
		return i.criteria, nil
	}
	filtered := make([]models.CompletionCriterion, 0, len(i.criteria))
	for _, criterion := range i.criteria {
		if criterion.CriteriaType == criteriaType {
			filtered = append(filtered, criterion)
		}
	}
	return filtered, nil
}

// HasCriteria reports whether the course defines completion criteria.
func (i *CompletionInfo) HasCriteria(ctx context.Context) (bool, error) {
	criteria, err := i.GetCriteria(ctx, 0)
	if err != nil {
		return false, err
	}
	return len(criteria) > 0, nil
}

// GetProgressAll returns the tracked users matching q with their activity
// completion states and course completion time.
func (i *CompletionInfo) GetProgressAll(ctx context.Context, q models.TrackedUsersQuery) ([]models.UserProgress, error) {
	users, err := i.GetTrackedUsers(ctx, q)
	if err != nil {
		return nil, err
	}

	result := make([]models.UserProgress, len(users))
	if len(users) == 0 {
		return result, nil
	}

	index := make(map[int64]int, len(users))
	for idx, user := range users {
		index[user.ID] = idx
		result[idx] = models.UserProgress{TrackedUser: user, Progress: map[int64]models.ModuleCompletion{}}
	}

	ids := userIDs(users)
	rows, err := i.store.ProgressByUsers(ctx, i.course.ID, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		idx, ok := index[row.UserID]
		if !ok {
			i.logger.Debug("progress row for untracked user", zap.Int64("user_id", row.UserID))
			continue
		}
		result[idx].Progress[row.CourseModuleID] = row
	}

	completions, err := i.store.CourseCompletions(ctx, i.course.ID, ids)
	if err != nil {
		return nil, err
	}
	for idx := range result {
		result[idx].TimeCompleted = completions[result[idx].ID]
	}
	return result, nil
}

// EnrolmentLabelFor derives a user's label from all their records in a course.
// Any active, enabled and current record makes the user active; otherwise any
// suspended record or disabled method makes them suspended; otherwise they are
// not current.
func EnrolmentLabelFor(records []models.EnrolmentRecord, now int64) models.EnrolmentLabel {
	suspended := false
	for _, record := range records {
		if record.Status == models.UserEnrolSuspended || record.InstanceStatus == models.EnrolInstanceDisabled {
			suspended = true
			continue
		}
		if record.Current(now) {
			return models.EnrolLabelActive
		}
	}
	if suspended {
		return models.EnrolLabelSuspended
	}
	return models.EnrolLabelNotCurrent
}

func userIDs(users []models.TrackedUser) []int64 {
	ids := make([]int64, len(users))
	for idx, user := range users {
		ids[idx] = user.ID
	}
	return ids
}

func hasActivityCriteria(criteria []models.CompletionCriterion) bool {
	for _, criterion := range criteria {
		if criterion.CriteriaType == models.CriteriaTypeActivity {
			return true
		}
	}
	return false
}

// orderActivityCriteria sorts the activity criteria among the slots they
// already occupy. Criteria pointing at unknown modules sort last.
func orderActivityCriteria(criteria []models.CompletionCriterion, activities []models.Activity) {
	position := make(map[int64]int, len(activities))
	for idx, activity := range activities {
		position[activity.ID] = idx
	}
	rank := func(c models.CompletionCriterion) int {
		if c.ModuleInstance != nil {
			if idx, ok := position[*c.ModuleInstance]; ok {
				return idx
			}
		}
		return len(activities)
	}

	var slots []int
	var items []models.CompletionCriterion
	for idx, criterion := range criteria {
		if criterion.CriteriaType == models.CriteriaTypeActivity {
			slots = append(slots, idx)
			items = append(items, criterion)
		}
	}
	sort.SliceStable(items, func(a, b int) bool { return rank(items[a]) < rank(items[b]) })
	for n, slot := range slots {
		criteria[slot] = items[n]
	}
}
