package loop

import (
	"context"
	"sync"
)

// Loop is a single-consumer run loop. Every function submitted to it runs to
// completion before the next one starts, so state touched only from loop
// functions needs no locking. Inbound transport messages and watchdog expiries
// are both funneled through Submit, which serializes them in arrival order.
type Loop struct {
	queue chan func()

	mu     sync.Mutex
	closed bool
}

// New creates a Loop with the given queue depth. A depth of zero falls back to
// a default of 256.
func New(depth int) *Loop {
	if depth <= 0 {
		depth = 256
	}
	return &Loop{queue: make(chan func(), depth)}
}

// Submit enqueues fn for execution on the loop. It is safe to call from any
// goroutine. Submissions after Close are dropped.
func (l *Loop) Submit(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	l.queue <- fn
}

// Run executes submitted functions until the context is canceled.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Close marks the loop as closed. Pending functions are discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}
