// Package lifecycle holds process drain state for health reporting.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// drainStart is the UnixNano time shutdown began, or 0 while serving.
var drainStart atomic.Int64

// BeginShutdown marks the process as draining. Later calls keep the first start time.
func BeginShutdown() {
	drainStart.CompareAndSwap(0, time.Now().UnixNano())
}

// IsShuttingDown reports whether BeginShutdown has been called.
func IsShuttingDown() bool {
	return drainStart.Load() != 0
}

// ShutdownSince returns when draining began.
func ShutdownSince() (time.Time, bool) {
	n := drainStart.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// Reset returns to the serving state. For tests.
func Reset() {
	drainStart.Store(0)
}
