package models

// TrackedUsersQuery narrows and pages a tracked-users lookup.
//
// Where is trusted SQL referring to u.* columns with :named parameters taken
// from WhereParams. It is appended as-is.
type TrackedUsersQuery struct {
	Where       string
	WhereParams map[string]interface{}
	GroupID     int64
	Sort        string
	LimitFrom   int
	LimitNum    int
}

// UserProgress is a tracked user with per-activity completion states.
type UserProgress struct {
	TrackedUser
	Progress      map[int64]ModuleCompletion `json:"progress"`
	TimeCompleted *int64                     `json:"time_completed,omitempty"`
}

// ProgressReport is the paged result of a progress lookup.
type ProgressReport struct {
	Total int            `json:"total"`
	Start int            `json:"start"`
	Users []UserProgress `json:"users"`
}

// CourseCompletion is the course-level completion row for one user.
type CourseCompletion struct {
	UserID        int64  `db:"user_id" json:"user_id"`
	TimeCompleted *int64 `db:"time_completed" json:"time_completed,omitempty"`
}

// NavigationNode is a report link added to the course navigation.
type NavigationNode struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
	Icon  string `json:"icon"`
}
