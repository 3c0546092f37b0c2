package pipeline

import (
	"context"
	"sync"
)

// Dispatcher is the presentation context: a single goroutine running posted
// callbacks one at a time in post order.
type Dispatcher struct {
	queue   chan func()
	stopped chan struct{}

	// mu is held shared by Post while sending and exclusively by Run while
	// closing, so no send can land after the final drain.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher returns a dispatcher whose queue holds up to buffer pending callbacks.
func NewDispatcher(buffer int) *Dispatcher {
	if buffer < 0 {
		buffer = 0
	}
	return &Dispatcher{
		queue:   make(chan func(), buffer),
		stopped: make(chan struct{}),
	}
}

// Run executes callbacks until ctx is done. Callbacks accepted before that
// still run before Run returns.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case fn := <-d.queue:
			fn()
		}
	}
}

func (d *Dispatcher) stop() {
	close(d.stopped)
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	for {
		select {
		case fn := <-d.queue:
			fn()
		default:
			return
		}
	}
}

// Post queues fn. It blocks while the queue is full. A true result means fn
// will run; false means the dispatcher has stopped and fn was discarded.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- fn:
		return true
	case <-d.stopped:
		return false
	}
}
