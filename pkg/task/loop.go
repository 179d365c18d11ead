package task

import (
	"context"
	"sync"
)

// Loop is a FIFO queue of deferred work driven by a single goroutine at a time.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop constructs an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

var (
	defaultLoop     *Loop
	defaultLoopOnce sync.Once
)

// DefaultLoop returns the process-wide loop used when callers do not supply one.
func DefaultLoop() *Loop {
	defaultLoopOnce.Do(func() {
		defaultLoop = NewLoop()
	})
	return defaultLoop
}

// Defer schedules fn to run on a later turn. Safe to call from any goroutine.
func (l *Loop) Defer(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending reports how many callbacks are queued.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunOnce runs the oldest queued callback, returning false when the queue is empty.
func (l *Loop) RunOnce() bool {
	fn := l.pop()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Drain runs callbacks until the queue is empty, including callbacks queued
// while draining. Work settled by other goroutines after Drain returns is
// picked up by the next Drain or Wait.
func (l *Loop) Drain() int {
	n := 0
	for l.RunOnce() {
		n++
	}
	return n
}

// Await drives the loop until f settles or ctx is done.
func (l *Loop) Await(ctx context.Context, f *Future) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if f.IsSettled() {
			return nil
		}
		if l.RunOnce() {
			continue
		}
		select {
		case <-l.wake:
		case <-f.settledCh():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}
