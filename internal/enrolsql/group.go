package enrolsql

import (
	"fmt"

	"github.com/noah-isme/completion-report-api/internal/models"
)

// UsersWithoutGroup selects users belonging to no group of the course.
const UsersWithoutGroup int64 = -1

// GroupMembersJoiner restricts users to a group through groups_members.
type GroupMembersJoiner struct {
	counter *Counter
}

// NewGroupMembersJoiner constructs the joiner. A nil counter gets a private one.
func NewGroupMembersJoiner(counter *Counter) *GroupMembersJoiner {
	if counter == nil {
		counter = &Counter{}
	}
	return &GroupMembersJoiner{counter: counter}
}

// GroupJoin implements GroupJoiner.
func (j *GroupMembersJoiner) GroupJoin(groupID int64, userIDColumn string, course models.Course) Join {
	prefix := fmt.Sprintf("gm%d_", j.counter.Next())
	join := newJoin()

	if groupID == UsersWithoutGroup {
		join.Joins = append(join.Joins, fmt.Sprintf(
			"LEFT JOIN (SELECT DISTINCT %[1]sm.user_id FROM groups_members %[1]sm"+
				" JOIN course_groups %[1]sg ON %[1]sg.id = %[1]sm.group_id"+
				" WHERE %[1]sg.course_id = :%[1]scourseid) %[1]sgm ON %[1]sgm.user_id = %[2]s",
			prefix, userIDColumn))
		join.Wheres = prefix + "gm.user_id IS NULL"
		join.Params[prefix+"courseid"] = course.ID
		return join
	}

	join.Joins = append(join.Joins, fmt.Sprintf(
		"JOIN groups_members %[1]sgm ON (%[1]sgm.user_id = %[2]s AND %[1]sgm.group_id = :%[1]sgroupid)",
		prefix, userIDColumn))
	join.Params[prefix+"groupid"] = groupID
	return join
}
