package models

// Course group modes.
const (
	GroupModeNone     = 0
	GroupModeSeparate = 1
	GroupModeVisible  = 2
)

// Course is the subset of course settings the report needs.
type Course struct {
	ID               int64  `db:"id" json:"id"`
	ContextID        int64  `db:"context_id" json:"context_id"`
	FullName         string `db:"full_name" json:"full_name"`
	ShortName        string `db:"short_name" json:"short_name"`
	EnableCompletion bool   `db:"enable_completion" json:"enable_completion"`
	GroupMode        int    `db:"group_mode" json:"group_mode"`
}

// Activity completion tracking modes stored in course_modules.completion.
const (
	CompletionTrackingNone      = 0
	CompletionTrackingManual    = 1
	CompletionTrackingAutomatic = 2
)

// Activity is a course module with completion tracking.
type Activity struct {
	ID                 int64  `db:"id" json:"id"`
	CourseID           int64  `db:"course_id" json:"course_id"`
	ModuleName         string `db:"module_name" json:"module_name"`
	Instance           int64  `db:"instance" json:"instance"`
	Name               string `db:"name" json:"name"`
	Section            int    `db:"section" json:"section"`
	Position           int    `db:"position" json:"position"`
	Completion         int    `db:"completion" json:"completion"`
	DeletionInProgress bool   `db:"deletion_in_progress" json:"-"`
}

// CriteriaType identifies the kind of a completion criterion.
type CriteriaType int

// Completion criteria types.
const (
	CriteriaTypeSelf     CriteriaType = 1
	CriteriaTypeDate     CriteriaType = 2
	CriteriaTypeUnenrol  CriteriaType = 3
	CriteriaTypeActivity CriteriaType = 4
	CriteriaTypeDuration CriteriaType = 5
	CriteriaTypeGrade    CriteriaType = 6
	CriteriaTypeRole     CriteriaType = 7
	CriteriaTypeCourse   CriteriaType = 8
)

// CompletionCriterion is one rule contributing to course completion.
type CompletionCriterion struct {
	ID             int64        `db:"id" json:"id"`
	CourseID       int64        `db:"course_id" json:"course_id"`
	CriteriaType   CriteriaType `db:"criteria_type" json:"criteria_type"`
	Module         *string      `db:"module" json:"module,omitempty"`
	ModuleInstance *int64       `db:"module_instance" json:"module_instance,omitempty"`
	CourseInstance *int64       `db:"course_instance" json:"course_instance,omitempty"`
	EnrolPeriod    *int64       `db:"enrol_period" json:"enrol_period,omitempty"`
	TimeEnd        *int64       `db:"time_end" json:"time_end,omitempty"`
	GradePass      *float64     `db:"grade_pass" json:"grade_pass,omitempty"`
	Role           *int64       `db:"role_id" json:"role_id,omitempty"`
}

// Activity completion states stored in course_modules_completion.completion_state.
const (
	CompletionIncomplete   = 0
	CompletionComplete     = 1
	CompletionCompletePass = 2
	CompletionCompleteFail = 3
)

// ModuleCompletion is a user's completion state for one course module.
type ModuleCompletion struct {
	ID              int64 `db:"id" json:"id"`
	CourseModuleID  int64 `db:"course_module_id" json:"course_module_id"`
	UserID          int64 `db:"user_id" json:"user_id"`
	CompletionState int   `db:"completion_state" json:"completion_state"`
	Viewed          bool  `db:"viewed" json:"viewed"`
	TimeModified    int64 `db:"time_modified" json:"time_modified"`
}

// CompletionStateTitle renders a completion state for exports.
func CompletionStateTitle(state int) string {
	switch state {
	case CompletionComplete:
		return "Completed"
	case CompletionCompletePass:
		return "Completed (pass)"
	case CompletionCompleteFail:
		return "Completed (fail)"
	}
	return "Not completed"
}
