package models

import "time"

// Report names used in viewed events.
const (
	EventCompletionReportViewed = "completion_report_viewed"
	EventProgressReportViewed   = "progress_report_viewed"
	EventReportExported         = "completion_report_exported"
)

// ReportViewedEvent is published whenever a report is read.
type ReportViewedEvent struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	CourseID   int64             `json:"course_id"`
	ViewerID   int64             `json:"viewer_id"`
	Filter     EnrolStatusFilter `json:"filter"`
	OccurredAt time.Time         `json:"occurred_at"`
}
