package enrolsql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/completion-report-api/internal/models"
)

func TestAxesFor(t *testing.T) {
	cases := []struct {
		filter    models.EnrolStatusFilter
		want      Axes
		inclusive bool
	}{
		{models.EnrolFilterAll, Axes{}, true},
		{models.EnrolFilterActive, Axes{CheckStat: true, StatActive: true, CheckCurrent: true, Current: true}, true},
		{models.EnrolFilterSuspended, Axes{CheckStat: true, StatActive: false, CheckCurrent: false}, false},
		{models.EnrolFilterNotSuspended, Axes{CheckStat: true, StatActive: true, CheckCurrent: false}, true},
		{models.EnrolFilterNotActive, Axes{CheckStat: true, StatActive: false, CheckCurrent: true, Current: false}, false},
		{models.EnrolFilterNotCurrent, Axes{CheckStat: false, CheckCurrent: true, Current: false}, false},
		{models.EnrolStatusFilter("bogus"), Axes{}, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			got := AxesFor(tc.filter)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.inclusive, got.Inclusive())
		})
	}
}
