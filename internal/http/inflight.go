package http

import (
	"context"
	"sync/atomic"
	"time"
)

// InFlightTracker counts requests between MetricsMiddleware entry and exit so
// shutdown can wait for them to drain.
type InFlightTracker struct {
	n atomic.Int64
}

// Begin counts one request and returns the function that un-counts it.
func (t *InFlightTracker) Begin() (done func()) {
	t.n.Add(1)
	return func() { t.n.Add(-1) }
}

func (t *InFlightTracker) Count() int64 { return t.n.Load() }

// WaitForZero polls every interval until no request is in flight or ctx is done.
func (t *InFlightTracker) WaitForZero(ctx context.Context, interval time.Duration) error {
	if t.Count() == 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.Count() == 0 {
				return nil
			}
		}
	}
}

var inFlight InFlightTracker

// InFlightCount returns the number of requests being served.
func InFlightCount() int64 { return inFlight.Count() }

// WaitForInFlight blocks until in-flight requests drain or ctx is done.
func WaitForInFlight(ctx context.Context, interval time.Duration) error {
	return inFlight.WaitForZero(ctx, interval)
}
