package metrics

import (
	"sync"
	"sync/atomic"
)

// OverflowValue replaces attribute values past the cardinality limit.
const OverflowValue = "other"

// CardinalityLimiter bounds the distinct values of one attribute. The
// first max values seen are kept as-is; later new values collapse into
// OverflowValue.
type CardinalityLimiter struct {
	max      int
	seen     sync.Map
	size     atomic.Int64
	mu       sync.Mutex
	overflow atomic.Int64
}

// NewCardinalityLimiter creates a limiter keeping at most max values.
func NewCardinalityLimiter(max int) *CardinalityLimiter {
	return &CardinalityLimiter{max: max}
}

// Normalize returns value when it is already known or there is room for
// it, and OverflowValue otherwise.
func (cl *CardinalityLimiter) Normalize(value string) string {
	if _, ok := cl.seen.Load(value); ok {
		return value
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, ok := cl.seen.Load(value); ok {
		return value
	}
	if int(cl.size.Load()) >= cl.max {
		cl.overflow.Add(1)
		return OverflowValue
	}
	cl.seen.Store(value, struct{}{})
	cl.size.Add(1)
	return value
}

// Count returns the number of distinct values kept.
func (cl *CardinalityLimiter) Count() int {
	return int(cl.size.Load())
}

// Overflowed returns how many observations were collapsed into
// OverflowValue.
func (cl *CardinalityLimiter) Overflowed() int64 {
	return cl.overflow.Load()
}
