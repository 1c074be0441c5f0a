package enrolsql

import "sync/atomic"

// Counter hands out the numeric suffixes used for table aliases and parameter
// names. A single Counter shared by every builder of a query guarantees that
// nested fragments never collide.
type Counter struct {
	n atomic.Int64
}

// Next returns the next suffix, starting at 1.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}
