package enrolsql

import (
	"fmt"
	"strings"

	"github.com/noah-isme/completion-report-api/internal/models"
)

// Role capability permissions stored in role_capabilities.permission.
const (
	PermissionAllow    = 1
	PermissionProhibit = -1000
)

// RoleCapabilityJoiner resolves capabilities through role assignments in the
// course context. Any allowed capability qualifies; a prohibit on any of them
// excludes the user.
type RoleCapabilityJoiner struct {
	counter *Counter
}

// NewRoleCapabilityJoiner constructs the joiner. A nil counter gets a private one.
func NewRoleCapabilityJoiner(counter *Counter) *RoleCapabilityJoiner {
	if counter == nil {
		counter = &Counter{}
	}
	return &RoleCapabilityJoiner{counter: counter}
}

// CapabilityJoin implements CapabilityJoiner.
func (j *RoleCapabilityJoiner) CapabilityJoin(course models.Course, capabilities []string, userIDColumn string) Join {
	prefix := fmt.Sprintf("wc%d_", j.counter.Next())
	join := newJoin()
	if len(capabilities) == 0 {
		return join
	}

	placeholders := make([]string, len(capabilities))
	for i, capability := range capabilities {
		name := fmt.Sprintf("%scap%d", prefix, i)
		placeholders[i] = ":" + name
		join.Params[name] = capability
	}
	in := strings.Join(placeholders, ", ")
	join.Params[prefix+"contextid"] = course.ContextID
	join.Params[prefix+"allow"] = PermissionAllow
	join.Params[prefix+"prohibit"] = PermissionProhibit

	join.Joins = append(join.Joins, fmt.Sprintf(
		"JOIN (SELECT DISTINCT %[1]sra.user_id FROM role_assignments %[1]sra"+
			" JOIN role_capabilities %[1]src ON %[1]src.role_id = %[1]sra.role_id"+
			" WHERE %[1]sra.context_id = :%[1]scontextid AND %[1]src.capability IN (%[2]s)"+
			" AND %[1]src.permission = :%[1]sallow) %[1]sc ON %[1]sc.user_id = %[3]s",
		prefix, in, userIDColumn))
	join.Wheres = fmt.Sprintf(
		"%[3]s NOT IN (SELECT %[1]spra.user_id FROM role_assignments %[1]spra"+
			" JOIN role_capabilities %[1]sprc ON %[1]sprc.role_id = %[1]spra.role_id"+
			" WHERE %[1]spra.context_id = :%[1]scontextid AND %[1]sprc.capability IN (%[2]s)"+
			" AND %[1]sprc.permission = :%[1]sprohibit)",
		prefix, in, userIDColumn)
	return join
}
