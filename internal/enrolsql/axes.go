package enrolsql

import "github.com/noah-isme/completion-report-api/internal/models"

// Axes splits an enrolment-status filter into the status and currency checks
// it implies.
type Axes struct {
	// CheckStat restricts on user/instance status; StatActive picks the active side.
	CheckStat  bool
	StatActive bool
	// CheckCurrent restricts on the validity window; Current picks the in-window side.
	CheckCurrent bool
	Current      bool
}

// AxesFor maps a filter onto its axes. Unknown filters behave like
// models.EnrolFilterAll.
func AxesFor(filter models.EnrolStatusFilter) Axes {
	switch filter {
	case models.EnrolFilterActive:
		return Axes{CheckStat: true, StatActive: true, CheckCurrent: true, Current: true}
	case models.EnrolFilterSuspended:
		return Axes{CheckStat: true}
	case models.EnrolFilterNotSuspended:
		return Axes{CheckStat: true, StatActive: true}
	case models.EnrolFilterNotActive:
		return Axes{CheckStat: true, CheckCurrent: true}
	case models.EnrolFilterNotCurrent:
		return Axes{CheckCurrent: true}
	}
	return Axes{}
}

// Inclusive reports whether every checked axis wants its inclusive side, in
// which case matching users are those holding a matching enrolment. Otherwise
// matching users are those holding none.
func (a Axes) Inclusive() bool {
	return (!a.CheckStat || a.StatActive) && (!a.CheckCurrent || a.Current)
}
