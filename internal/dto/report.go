package dto

import "github.com/noah-isme/completion-report-api/internal/models"

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// CompletionReportQuery captures the query string of the completion report
// endpoints. Filter is resolved by the handler before the service sees it.
type CompletionReportQuery struct {
	CourseID int64                    `validate:"required,gt=0"`
	ViewerID int64                    `validate:"required"`
	Filter   models.EnrolStatusFilter `validate:"-"`
	GroupID  int64                    `form:"group" validate:"gte=-1"`
	Search   string                   `form:"search" validate:"max=100"`
	Sort     string                   `form:"sort" validate:"omitempty,oneof=id idnumber firstname lastname email"`
	Order    string                   `form:"order" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page     int                      `form:"page" validate:"gte=0"`
	PageSize int                      `form:"limit" validate:"gte=0,lte=5000"`
}

// TrackedUsersResponse is one page of tracked users.
type TrackedUsersResponse struct {
	Filter models.EnrolStatusFilter `json:"filter"`
	Users  []models.TrackedUser     `json:"users"`
	Total  int                      `json:"total"`
}

// ProgressResponse is one page of the activity completion report.
type ProgressResponse struct {
	Filter     models.EnrolStatusFilter `json:"filter"`
	Activities []models.Activity        `json:"activities"`
	Report     models.ProgressReport    `json:"report"`
}

// TrackedUserResponse answers whether a user is tracked.
type TrackedUserResponse struct {
	UserID  int64                    `json:"user_id"`
	Filter  models.EnrolStatusFilter `json:"filter"`
	Tracked bool                     `json:"tracked"`
}

// EnrolStatusPreferenceRequest writes the enrolment status filter preference.
type EnrolStatusPreferenceRequest struct {
	Value string `json:"value" validate:"required,oneof=all active suspended notsuspended notactive notcurrent"`
}

// EnrolStatusPreferenceResponse reports the stored filter and the choices.
type EnrolStatusPreferenceResponse struct {
	Value   models.EnrolStatusFilter   `json:"value"`
	Options []EnrolStatusFilterOption `json:"options"`
}

// EnrolStatusFilterOption is one entry of the filter menu.
type EnrolStatusFilterOption struct {
	Value models.EnrolStatusFilter `json:"value"`
	Title string                   `json:"title"`
}

// ExportFile is a rendered report download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
