// Package enrolsql builds the SQL fragments that select the users enrolled in
// a course under a given enrolment-status filter.
package enrolsql

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/completion-report-api/internal/models"
)

// DefaultTimeRounding is the granularity applied to "now" before it is bound.
const DefaultTimeRounding = 100 * time.Second

// CapabilityJoiner restricts a user id column to users holding a capability in
// the course context.
type CapabilityJoiner interface {
	CapabilityJoin(course models.Course, capabilities []string, userIDColumn string) Join
}

// GroupJoiner restricts a user id column to members of a group.
type GroupJoiner interface {
	GroupJoin(groupID int64, userIDColumn string, course models.Course) Join
}

// Builder produces enrolment joins. It owns the counter used for alias
// prefixes, so fragments from one Builder can be nested freely.
type Builder struct {
	counter      *Counter
	siteCourseID int64
	rounding     time.Duration
	now          func() time.Time
	capabilities CapabilityJoiner
	groups       GroupJoiner
}

// Option customises a Builder.
type Option func(*Builder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithTimeRounding overrides DefaultTimeRounding. Values under a second
// disable rounding.
func WithTimeRounding(d time.Duration) Option {
	return func(b *Builder) { b.rounding = d }
}

// WithCounter shares a counter with other builders.
func WithCounter(c *Counter) Option {
	return func(b *Builder) { b.counter = c }
}

// WithCapabilityJoiner replaces the role based capability join.
func WithCapabilityJoiner(j CapabilityJoiner) Option {
	return func(b *Builder) { b.capabilities = j }
}

// WithGroupJoiner replaces the group membership join.
func WithGroupJoiner(j GroupJoiner) Option {
	return func(b *Builder) { b.groups = j }
}

// NewBuilder constructs a Builder. Users of siteCourseID count as enrolled
// without any enrolment record.
func NewBuilder(siteCourseID int64, opts ...Option) *Builder {
	b := &Builder{
		siteCourseID: siteCourseID,
		rounding:     DefaultTimeRounding,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.counter == nil {
		b.counter = &Counter{}
	}
	if b.capabilities == nil {
		b.capabilities = NewRoleCapabilityJoiner(b.counter)
	}
	if b.groups == nil {
		b.groups = NewGroupMembersJoiner(b.counter)
	}
	return b
}

// SiteCourseID returns the id of the course every user is enrolled in.
func (b *Builder) SiteCourseID() int64 {
	return b.siteCourseID
}

// Now returns the rounded unix time bound into time predicates.
func (b *Builder) Now() int64 {
	now := b.now().Unix()
	step := int64(b.rounding / time.Second)
	if step <= 1 {
		return now
	}
	return (now + step/2) / step * step
}

// EnrolledJoin restricts userIDColumn to users enrolled in course according to
// filter. A non-zero enrolID limits the check to one enrolment method.
func (b *Builder) EnrolledJoin(course models.Course, userIDColumn string, filter models.EnrolStatusFilter, enrolID int64) Join {
	prefix := fmt.Sprintf("ej%d_", b.counter.Next())
	join := newJoin()

	if course.ID == b.siteCourseID {
		return join
	}

	axes := AxesFor(filter)
	if axes.Inclusive() {
		join.Joins = append(join.Joins,
			fmt.Sprintf("JOIN user_enrolments %[1]sue ON %[1]sue.user_id = %[2]s", prefix, userIDColumn),
			enrolJoin(prefix, "e", "ue", course.ID, enrolID, join.Params),
		)
		if predicate := b.predicate(prefix, axes, join.Params); predicate != "" {
			join.Wheres += " AND " + predicate
		}
		return join
	}

	// Users lacking any enrolment on the inclusive side of the checked axes.
	inner := fmt.Sprintf("SELECT DISTINCT %[1]sue.user_id FROM user_enrolments %[1]sue %[2]s WHERE %[3]s",
		prefix,
		enrolJoin(prefix, "e", "ue", course.ID, enrolID, join.Params),
		b.predicate(prefix, axes, join.Params),
	)
	join.Joins = append(join.Joins,
		fmt.Sprintf("JOIN user_enrolments %[1]sue1 ON %[1]sue1.user_id = %[2]s", prefix, userIDColumn),
		enrolJoin(prefix, "e1", "ue1", course.ID, enrolID, join.Params),
	)
	join.Wheres += fmt.Sprintf(" AND %s NOT IN (%s)", userIDColumn, inner)
	return join
}

// EnrolledWithCapabilitiesJoin combines the enrolment join on <prefix>u.id
// with optional capability and group restrictions and excludes deleted users.
func (b *Builder) EnrolledWithCapabilitiesJoin(course models.Course, prefix string, capabilities []string, groupID int64, filter models.EnrolStatusFilter, enrolID int64) Join {
	userID := prefix + "u.id"

	enrolled := b.EnrolledJoin(course, userID, filter, enrolID)
	joins := append([]string{}, enrolled.Joins...)
	wheres := []string{enrolled.Wheres}
	params := enrolled.Params

	if len(capabilities) > 0 {
		capJoin := b.capabilities.CapabilityJoin(course, capabilities, userID)
		joins = append(joins, capJoin.Joins...)
		wheres = append(wheres, capJoin.Wheres)
		mergeInto(params, capJoin.Params)
	}
	if groupID != 0 {
		groupJoin := b.groups.GroupJoin(groupID, userID, course)
		joins = append(joins, groupJoin.Joins...)
		wheres = append(wheres, groupJoin.Wheres)
		mergeInto(params, groupJoin.Params)
	}

	wheres = append(wheres, prefix+"u.deleted = 0")
	return Join{Joins: joins, Wheres: strings.Join(wheres, " AND "), Params: params}
}

// EnrolledSQL returns a subquery selecting the distinct ids of the matching
// users as column "id".
func (b *Builder) EnrolledSQL(course models.Course, capabilities []string, groupID int64, filter models.EnrolStatusFilter, enrolID int64) Subquery {
	prefix := fmt.Sprintf("eu%d_", b.counter.Next())
	join := b.EnrolledWithCapabilitiesJoin(course, prefix, capabilities, groupID, filter, enrolID)

	var sql strings.Builder
	fmt.Fprintf(&sql, "SELECT DISTINCT %[1]su.id AS id FROM users %[1]su", prefix)
	if len(join.Joins) > 0 {
		sql.WriteString("\n")
		sql.WriteString(join.JoinSQL())
	}
	sql.WriteString("\nWHERE ")
	sql.WriteString(join.Wheres)
	return Subquery{SQL: sql.String(), Params: join.Params}
}

func (b *Builder) predicate(prefix string, axes Axes, params map[string]interface{}) string {
	var parts []string
	if axes.CheckStat {
		parts = append(parts, fmt.Sprintf("%[1]sue.status = :%[1]sactive AND %[1]se.status = :%[1]senabled", prefix))
		params[prefix+"active"] = models.UserEnrolActive
		params[prefix+"enabled"] = models.EnrolInstanceEnabled
	}
	if axes.CheckCurrent {
		parts = append(parts, fmt.Sprintf("%[1]sue.time_start < :%[1]snow1 AND (%[1]sue.time_end = 0 OR %[1]sue.time_end > :%[1]snow2)", prefix))
		now := b.Now()
		params[prefix+"now1"] = now
		params[prefix+"now2"] = now
	}
	return strings.Join(parts, " AND ")
}

func enrolJoin(prefix, enrolAlias, ueAlias string, courseID, enrolID int64, params map[string]interface{}) string {
	e := prefix + enrolAlias
	conditions := []string{
		fmt.Sprintf("%s.id = %s%s.enrol_id", e, prefix, ueAlias),
		fmt.Sprintf("%s.course_id = :%s_courseid", e, e),
	}
	params[e+"_courseid"] = courseID
	if enrolID != 0 {
		conditions = append(conditions, fmt.Sprintf("%s.id = :%s_enrolid", e, e))
		params[e+"_enrolid"] = enrolID
	}
	return fmt.Sprintf("JOIN enrol %s ON (%s)", e, strings.Join(conditions, " AND "))
}
