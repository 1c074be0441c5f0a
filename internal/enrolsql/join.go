package enrolsql

import (
	"fmt"
	"strings"
)

// Join is a composable SQL fragment: join clauses, a where predicate and the
// named parameters both refer to.
type Join struct {
	Joins  []string
	Wheres string
	Params map[string]interface{}
}

func newJoin() Join {
	return Join{Wheres: "1 = 1", Params: map[string]interface{}{}}
}

// JoinSQL renders the join clauses one per line.
func (j Join) JoinSQL() string {
	return strings.Join(j.Joins, "\n")
}

// Subquery is a complete SELECT returning a single id column.
type Subquery struct {
	SQL    string
	Params map[string]interface{}
}

// MergeParams copies every map into a new one and fails on duplicate keys.
func MergeParams(sets ...map[string]interface{}) (map[string]interface{}, error) {
	size := 0
	for _, set := range sets {
		size += len(set)
	}
	merged := make(map[string]interface{}, size)
	for _, set := range sets {
		for key, value := range set {
			if _, exists := merged[key]; exists {
				return nil, fmt.Errorf("duplicate sql parameter %q", key)
			}
			merged[key] = value
		}
	}
	return merged, nil
}

func mergeInto(dst map[string]interface{}, src map[string]interface{}) {
	for key, value := range src {
		dst[key] = value
	}
}
