package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/completion-report-api/internal/models"
)

func TestProgressDataset(t *testing.T) {
	completed := int64(1_700_000_000)
	course := models.Course{ID: 7, FullName: "Biology"}
	activities := []models.Activity{{ID: 11, Name: "Quiz"}, {ID: 12, Name: "Essay"}}
	users := []models.UserProgress{
		{
			TrackedUser: models.TrackedUser{ID: 1, FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", IDNumber: "S1", EnrolStatus: models.EnrolLabelActive},
			Progress: map[int64]models.ModuleCompletion{
				11: {CourseModuleID: 11, UserID: 1, CompletionState: models.CompletionCompletePass},
			},
			TimeCompleted: &completed,
		},
		{
			TrackedUser: models.TrackedUser{ID: 2, FirstName: "Bo", LastName: "Kim", EnrolStatus: models.EnrolLabelSuspended},
			Progress:    map[int64]models.ModuleCompletion{},
		},
	}

	data := progressDataset(course, models.EnrolFilterNotCurrent, activities, users)

	assert.Equal(t, "Biology: activity completion (Not current)", data.Title)
	assert.Equal(t, []string{"Name", "Email", "ID number", "Enrolment status", "Quiz", "Essay", "Completion date"}, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"Ann Lee", "ann@example.com", "S1", "Active", "Completed (pass)", "Not completed", "2023-11-14"}, data.Rows[0])
	assert.Equal(t, []string{"Bo Kim", "", "", "Suspended", "Not completed", "Not completed", ""}, data.Rows[1])
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "bio-101", slug("BIO 101", 7))
	assert.Equal(t, "intro-to-go", slug("  Intro -- to Go! ", 7))
	assert.Equal(t, "course-9", slug("???", 9))
}
