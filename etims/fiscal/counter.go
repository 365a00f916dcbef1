package fiscal

import "sync/atomic"

// Counter issues strictly increasing receipt numbers starting at its seed.
// It lives as long as the fiscaliser that owns it, so numbering resumes across batches.
type Counter struct {
	next atomic.Int64
}

func NewCounter(seed int64) *Counter {
	c := &Counter{}
	c.next.Store(seed)
	return c
}

// Next returns the current value and advances the counter.
func (c *Counter) Next() int64 {
	return c.next.Add(1) - 1
}

// Peek returns the value the next call to Next will return.
func (c *Counter) Peek() int64 {
	return c.next.Load()
}
