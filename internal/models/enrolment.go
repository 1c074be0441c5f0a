package models

import "strings"

// EnrolStatusFilter selects which enrolment states a completion report includes.
type EnrolStatusFilter string

// Supported filters. Values double as the stored preference value.
const (
	EnrolFilterAll           EnrolStatusFilter = "all"
	EnrolFilterActive        EnrolStatusFilter = "active"
	EnrolFilterSuspended     EnrolStatusFilter = "suspended"
	EnrolFilterNotSuspended  EnrolStatusFilter = "notsuspended"
	EnrolFilterNotActive     EnrolStatusFilter = "notactive"
	EnrolFilterNotCurrent    EnrolStatusFilter = "notcurrent"
	EnrolStatusPreferenceKey                   = "report_completionall_enrolstat"
)

// EnrolStatusFilters lists every filter in menu order.
var EnrolStatusFilters = []EnrolStatusFilter{
	EnrolFilterAll,
	EnrolFilterActive,
	EnrolFilterSuspended,
	EnrolFilterNotSuspended,
	EnrolFilterNotActive,
	EnrolFilterNotCurrent,
}

// ParseEnrolStatusFilter converts a raw value into a filter. Unknown values
// resolve to EnrolFilterAll.
func ParseEnrolStatusFilter(raw string) EnrolStatusFilter {
	candidate := EnrolStatusFilter(strings.ToLower(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate
	}
	return EnrolFilterAll
}

// Valid reports whether f is one of the known filters.
func (f EnrolStatusFilter) Valid() bool {
	for _, known := range EnrolStatusFilters {
		if f == known {
			return true
		}
	}
	return false
}

// Title returns the menu label of the filter.
func (f EnrolStatusFilter) Title() string {
	switch f {
	case EnrolFilterAll:
		return "All"
	case EnrolFilterActive:
		return "Active only"
	case EnrolFilterSuspended:
		return "Suspended only"
	case EnrolFilterNotSuspended:
		return "Not suspended"
	case EnrolFilterNotActive:
		return "Not active"
	case EnrolFilterNotCurrent:
		return "Not current"
	}
	return ""
}

// User enrolment status values stored in user_enrolments.status.
const (
	UserEnrolActive    = 0
	UserEnrolSuspended = 1
)

// Enrolment method status values stored in enrol.status.
const (
	EnrolInstanceEnabled  = 0
	EnrolInstanceDisabled = 1
)

// EnrolmentRecord is one user enrolment through one enrolment method.
type EnrolmentRecord struct {
	ID             int64  `db:"id" json:"id"`
	UserID         int64  `db:"user_id" json:"user_id"`
	EnrolID        int64  `db:"enrol_id" json:"enrol_id"`
	Method         string `db:"enrol_method" json:"method"`
	Status         int    `db:"status" json:"status"`
	InstanceStatus int    `db:"instance_status" json:"instance_status"`
	TimeStart      int64  `db:"time_start" json:"time_start"`
	TimeEnd        int64  `db:"time_end" json:"time_end"`
}

// Current reports whether the record's validity window contains now.
func (r EnrolmentRecord) Current(now int64) bool {
	return (r.TimeStart == 0 || r.TimeStart < now) && (r.TimeEnd == 0 || r.TimeEnd > now)
}

// EnrolmentLabel describes a user's overall enrolment state in a course.
type EnrolmentLabel string

// Labels in precedence order.
const (
	EnrolLabelActive     EnrolmentLabel = "active"
	EnrolLabelSuspended  EnrolmentLabel = "suspended"
	EnrolLabelNotCurrent EnrolmentLabel = "notcurrent"
)

// Title returns the display string for the label.
func (l EnrolmentLabel) Title() string {
	switch l {
	case EnrolLabelActive:
		return "Active"
	case EnrolLabelSuspended:
		return "Suspended"
	case EnrolLabelNotCurrent:
		return "Not current"
	}
	return ""
}
