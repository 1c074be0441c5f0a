package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/completion-report-api/internal/enrolsql"
	"github.com/noah-isme/completion-report-api/internal/models"
)

// DefaultBatchSize caps the number of user ids bound into one IN list.
const DefaultBatchSize = 1000

const defaultUserSort = "u.last_name ASC, u.first_name ASC, u.id ASC"

// QueryObserver receives query timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// UserListQuery narrows and pages a user listing joined to an enrolment
// subquery. Where and Sort are trusted SQL over u.* columns.
type UserListQuery struct {
	Where  string
	Params map[string]interface{}
	Sort   string
	Offset int
	Limit  int
}

// CompletionRepository runs the completion report queries.
type CompletionRepository struct {
	db        *sqlx.DB
	batchSize int
	observer  QueryObserver
}

// NewCompletionRepository constructs the repository. A non-positive batchSize
// falls back to DefaultBatchSize; observer may be nil.
func NewCompletionRepository(db *sqlx.DB, batchSize int, observer QueryObserver) *CompletionRepository {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &CompletionRepository{db: db, batchSize: batchSize, observer: observer}
}

// CountUsersIn counts the users selected by sub, narrowed by where.
func (r *CompletionRepository) CountUsersIn(ctx context.Context, sub enrolsql.Subquery, where string, whereParams map[string]interface{}) (int, error) {
	defer r.observe("count_tracked_users", time.Now())

	query := "SELECT COUNT(u.id) FROM users u JOIN (" + sub.SQL + ") je ON je.id = u.id" + whereClause(where)
	bound, args, err := r.bind(query, sub.Params, whereParams)
	if err != nil {
		return 0, fmt.Errorf("count tracked users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, bound, args...); err != nil {
		return 0, fmt.Errorf("count tracked users: %w", err)
	}
	return total, nil
}

// ListUsersIn returns identity rows for the users selected by sub.
func (r *CompletionRepository) ListUsersIn(ctx context.Context, sub enrolsql.Subquery, q UserListQuery) ([]models.TrackedUser, error) {
	defer r.observe("list_tracked_users", time.Now())

	sort := strings.TrimSpace(q.Sort)
	if sort == "" {
		sort = defaultUserSort
	}

	var sb strings.Builder
	sb.WriteString("SELECT u.id, u.idnumber, u.first_name, u.last_name, u.email FROM users u JOIN (")
	sb.WriteString(sub.SQL)
	sb.WriteString(") je ON je.id = u.id")
	sb.WriteString(whereClause(q.Where))
	sb.WriteString(" ORDER BY ")
	sb.WriteString(sort)
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", q.Limit, max(q.Offset, 0))
	}

	bound, args, err := r.bind(sb.String(), sub.Params, q.Params)
	if err != nil {
		return nil, fmt.Errorf("list tracked users: %w", err)
	}

	var users []models.TrackedUser
	if err := r.db.SelectContext(ctx, &users, bound, args...); err != nil {
		return nil, fmt.Errorf("list tracked users: %w", err)
	}

	// OFFSET without LIMIT is not portable, so unbounded pages skip in memory.
	if q.Limit <= 0 && q.Offset > 0 {
		if q.Offset >= len(users) {
			return []models.TrackedUser{}, nil
		}
		users = users[q.Offset:]
	}
	return users, nil
}

// EnrolmentsForUsers returns every enrolment record of the given users in the
// course, keyed by user id.
func (r *CompletionRepository) EnrolmentsForUsers(ctx context.Context, courseID int64, userIDs []int64) (map[int64][]models.EnrolmentRecord, error) {
	defer r.observe("user_enrolments", time.Now())

	const base = `SELECT ue.id, ue.user_id, ue.enrol_id, e.enrol_method, ue.status, e.status AS instance_status, ue.time_start, ue.time_end
FROM user_enrolments ue
JOIN enrol e ON e.id = ue.enrol_id
WHERE e.course_id = ? AND ue.user_id IN (?)
ORDER BY ue.user_id, ue.id`

	result := make(map[int64][]models.EnrolmentRecord, len(userIDs))
	for _, chunk := range chunkIDs(userIDs, r.batchSize) {
		query, args, err := sqlx.In(base, courseID, chunk)
		if err != nil {
			return nil, fmt.Errorf("build enrolment query: %w", err)
		}
		var rows []models.EnrolmentRecord
		if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("list user enrolments: %w", err)
		}
		for _, row := range rows {
			result[row.UserID] = append(result[row.UserID], row)
		}
	}
	return result, nil
}

// ListActivities returns the course modules with completion tracking that are
// not being deleted, in course order.
func (r *CompletionRepository) ListActivities(ctx context.Context, courseID int64) ([]models.Activity, error) {
	defer r.observe("list_activities", time.Now())

	query := r.db.Rebind(`SELECT id, course_id, module_name, instance, name, section, position, completion, deletion_in_progress
FROM course_modules
WHERE course_id = ? AND completion <> ? AND NOT deletion_in_progress
ORDER BY section, position, id`)

	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, courseID, models.CompletionTrackingNone); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// ListCriteria returns the completion criteria of a course by id.
func (r *CompletionRepository) ListCriteria(ctx context.Context, courseID int64) ([]models.CompletionCriterion, error) {
	defer r.observe("list_criteria", time.Now())

	query := r.db.Rebind(`SELECT id, course_id, criteria_type, module, module_instance, course_instance, enrol_period, time_end, grade_pass, role_id
FROM course_completion_criteria
WHERE course_id = ?
ORDER BY id`)

	var criteria []models.CompletionCriterion
	if err := r.db.SelectContext(ctx, &criteria, query, courseID); err != nil {
		return nil, fmt.Errorf("list completion criteria: %w", err)
	}
	return criteria, nil
}

// ProgressByUsers returns the activity completion rows of the given users in
// the course. Ids are bound in chunks of the configured batch size.
func (r *CompletionRepository) ProgressByUsers(ctx context.Context, courseID int64, userIDs []int64) ([]models.ModuleCompletion, error) {
	defer r.observe("progress_by_users", time.Now())

	const base = `SELECT cmc.id, cmc.course_module_id, cmc.user_id, cmc.completion_state, cmc.viewed, cmc.time_modified
FROM course_modules_completion cmc
JOIN course_modules cm ON cm.id = cmc.course_module_id
WHERE cm.course_id = ? AND cmc.user_id IN (?)
ORDER BY cmc.user_id, cmc.course_module_id`

	var result []models.ModuleCompletion
	for _, chunk := range chunkIDs(userIDs, r.batchSize) {
		query, args, err := sqlx.In(base, courseID, chunk)
		if err != nil {
			return nil, fmt.Errorf("build progress query: %w", err)
		}
		var rows []models.ModuleCompletion
		if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("list module completions: %w", err)
		}
		result = append(result, rows...)
	}
	return result, nil
}

// CourseCompletions returns the course completion rows of the given users.
func (r *CompletionRepository) CourseCompletions(ctx context.Context, courseID int64, userIDs []int64) (map[int64]*int64, error) {
	defer r.observe("course_completions", time.Now())

	const base = `SELECT user_id, time_completed FROM course_completions WHERE course_id = ? AND user_id IN (?)`

	result := make(map[int64]*int64, len(userIDs))
	for _, chunk := range chunkIDs(userIDs, r.batchSize) {
		query, args, err := sqlx.In(base, courseID, chunk)
		if err != nil {
			return nil, fmt.Errorf("build course completion query: %w", err)
		}
		var rows []models.CourseCompletion
		if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("list course completions: %w", err)
		}
		for _, row := range rows {
			result[row.UserID] = row.TimeCompleted
		}
	}
	return result, nil
}

func (r *CompletionRepository) bind(query string, sets ...map[string]interface{}) (string, []interface{}, error) {
	params, err := enrolsql.MergeParams(sets...)
	if err != nil {
		return "", nil, err
	}
	bound, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, fmt.Errorf("bind named query: %w", err)
	}
	return r.db.Rebind(bound), args, nil
}

func (r *CompletionRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

func whereClause(where string) string {
	where = strings.TrimSpace(where)
	if where == "" {
		return ""
	}
	return " WHERE " + where
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
