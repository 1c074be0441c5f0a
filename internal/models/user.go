package models

// UserRole represents the coarse role carried in access tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Capabilities checked by the report.
const (
	CapabilityCompletionView      = "report/completionall:view"
	CapabilityProgressView        = "report/progress:view"
	CapabilityAccessAllGroups     = "moodle/site:accessallgroups"
	CapabilityInCompletionReports = "moodle/course:isincompletionreports"
)

// TrackedUser is a user row returned by the completion report.
type TrackedUser struct {
	ID          int64             `db:"id" json:"id"`
	IDNumber    string            `db:"idnumber" json:"idnumber"`
	FirstName   string            `db:"first_name" json:"first_name"`
	LastName    string            `db:"last_name" json:"last_name"`
	Email       string            `db:"email" json:"email"`
	Enrolments  []EnrolmentRecord `db:"-" json:"enrolments"`
	EnrolStatus EnrolmentLabel    `db:"-" json:"enrol_status,omitempty"`
}

// FullName joins first and last name.
func (u TrackedUser) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
