package apkg

import (
	"sync/atomic"
	"time"
)

// IDSource hands out blocks of ids.
type IDSource interface {
	// NextBlock reserves n consecutive ids and returns the half-open range
	// [start, end). No two calls on the same source return overlapping ranges.
	NextBlock(n int) (start, end int64)
}

// ClockIDs allocates ids from the millisecond clock, the convention the
// format's producers use. A high-water mark keeps blocks disjoint when calls
// land in the same millisecond. It is safe for concurrent use.
type ClockIDs struct {
	now  func() time.Time
	next atomic.Int64
}

// NewClockIDs returns a ClockIDs reading the given clock, or the wall clock
// when now is nil.
func NewClockIDs(now func() time.Time) *ClockIDs {
	if now == nil {
		now = time.Now
	}
	return &ClockIDs{now: now}
}

// NextBlock implements IDSource.
func (c *ClockIDs) NextBlock(n int) (start, end int64) {
	for {
		next := c.next.Load()
		start = c.now().UnixMilli()
		if start < next {
			start = next
		}
		end = start + int64(n)
		if c.next.CompareAndSwap(next, end) {
			return start, end
		}
	}
}
