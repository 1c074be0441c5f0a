package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/completion-report-api/internal/enrolsql"
	"github.com/noah-isme/completion-report-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

type recordingObserver struct {
	labels []string
}

func (o *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func testSubquery() enrolsql.Subquery {
	return enrolsql.Subquery{
		SQL:    "SELECT DISTINCT eu1_u.id AS id FROM users eu1_u WHERE eu1_u.deleted = :eu1_deleted",
		Params: map[string]interface{}{"eu1_deleted": 0},
	}
}

func TestCompletionRepositoryCountUsersIn(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	observer := &recordingObserver{}
	repo := NewCompletionRepository(db, 0, observer)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(u.id) FROM users u JOIN (SELECT DISTINCT eu1_u.id AS id FROM users eu1_u WHERE eu1_u.deleted = ?) je ON je.id = u.id WHERE u.email LIKE ?")).
		WithArgs(0, "%@example.org").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	total, err := repo.CountUsersIn(context.Background(), testSubquery(), "u.email LIKE :search", map[string]interface{}{"search": "%@example.org"})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Equal(t, []string{"count_tracked_users"}, observer.labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryRejectsCollidingParams(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompletionRepository(db, 0, nil)

	_, err := repo.CountUsersIn(context.Background(), testSubquery(), "u.deleted = :eu1_deleted", map[string]interface{}{"eu1_deleted": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate sql parameter")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryListUsersInPaging(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompletionRepository(db, 0, nil)

	columns := []string{"id", "idnumber", "first_name", "last_name", "email"}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.last_name ASC, u.first_name ASC, u.id ASC LIMIT 10 OFFSET 20")).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(5, "S-5", "Ada", "Lovelace", "ada@example.org"))

	users, err := repo.ListUsersIn(context.Background(), testSubquery(), UserListQuery{Offset: 20, Limit: 10})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada Lovelace", users[0].FullName())

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.id DESC")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(3, "", "C", "C", "c@example.org").
			AddRow(2, "", "B", "B", "b@example.org").
			AddRow(1, "", "A", "A", "a@example.org"))

	users, err = repo.ListUsersIn(context.Background(), testSubquery(), UserListQuery{Sort: "u.id DESC", Offset: 2})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryEnrolmentsForUsersGroupsByUser(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompletionRepository(db, 0, nil)

	rows := sqlmock.NewRows([]string{"id", "user_id", "enrol_id", "enrol_method", "status", "instance_status", "time_start", "time_end"}).
		AddRow(1, 10, 100, "manual", models.UserEnrolActive, models.EnrolInstanceEnabled, 0, 0).
		AddRow(2, 10, 101, "self", models.UserEnrolSuspended, models.EnrolInstanceEnabled, 0, 0).
		AddRow(3, 11, 100, "manual", models.UserEnrolActive, models.EnrolInstanceEnabled, 0, 0)
	mock.ExpectQuery("FROM user_enrolments ue\\s+JOIN enrol e ON e.id = ue.enrol_id\\s+WHERE e.course_id = \\? AND ue.user_id IN \\(\\?, \\?\\)").
		WithArgs(int64(7), int64(10), int64(11)).
		WillReturnRows(rows)

	result, err := repo.EnrolmentsForUsers(context.Background(), 7, []int64{10, 11})
	require.NoError(t, err)
	require.Len(t, result[10], 2)
	require.Len(t, result[11], 1)
	assert.Equal(t, "self", result[10][1].Method)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryProgressByUsersChunks(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	observer := &recordingObserver{}
	repo := NewCompletionRepository(db, 1000, observer)

	ids := make([]int64, 2500)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	columns := []string{"id", "course_module_id", "user_id", "completion_state", "viewed", "time_modified"}
	for _, first := range []int64{1, 1001, 2001} {
		mock.ExpectQuery("FROM course_modules_completion cmc").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(first, 40, first, models.CompletionComplete, true, 1_700_000_000))
	}

	rows, err := repo.ProgressByUsers(context.Background(), 7, ids)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{1, 1001, 2001}, []int64{rows[0].UserID, rows[1].UserID, rows[2].UserID})
	assert.Equal(t, []string{"progress_by_users"}, observer.labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryProgressByUsersEmpty(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompletionRepository(db, 0, nil)

	rows, err := repo.ProgressByUsers(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryListActivities(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompletionRepository(db, 0, nil)

	rows := sqlmock.NewRows([]string{"id", "course_id", "module_name", "instance", "name", "section", "position", "completion", "deletion_in_progress"}).
		AddRow(40, 7, "quiz", 3, "Quiz 1", 1, 0, models.CompletionTrackingAutomatic, false)
	mock.ExpectQuery("FROM course_modules\\s+WHERE course_id = \\? AND completion <> \\? AND NOT deletion_in_progress\\s+ORDER BY section, position, id").
		WithArgs(int64(7), models.CompletionTrackingNone).
		WillReturnRows(rows)

	activities, err := repo.ListActivities(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "Quiz 1", activities[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryListCriteriaWrapsErrors(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompletionRepository(db, 0, nil)

	mock.ExpectQuery("FROM course_completion_criteria").WillReturnError(sql.ErrConnDone)

	_, err := repo.ListCriteria(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "list completion criteria")
}

func TestCompletionRepositoryCourseCompletions(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCompletionRepository(db, 0, nil)

	mock.ExpectQuery("SELECT user_id, time_completed FROM course_completions").
		WithArgs(int64(7), int64(10), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "time_completed"}).
			AddRow(10, 1_700_000_500).
			AddRow(11, nil))

	result, err := repo.CourseCompletions(context.Background(), 7, []int64{10, 11})
	require.NoError(t, err)
	require.NotNil(t, result[10])
	assert.Equal(t, int64(1_700_000_500), *result[10])
	assert.Nil(t, result[11])
}

func TestChunkIDs(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}
	assert.Equal(t, [][]int64{{1, 2}, {3, 4}, {5}}, chunkIDs(ids, 2))
	assert.Nil(t, chunkIDs(nil, 2))
	assert.Len(t, chunkIDs(ids, 0), 1)
}
