package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNilFuture is returned when waiting on a nil future.
var ErrNilFuture = errors.New("task: nil future")

type state int

const (
	pending state = iota
	resolved
	rejected
)

// Future is the eventual result of an asynchronous computation bound to a Loop.
type Future struct {
	loop *Loop

	mu        sync.Mutex
	state     state
	value     any
	err       error
	callbacks []func(any, error)
	done      chan struct{}
}

// NewFuture returns a pending future bound to l.
func (l *Loop) NewFuture() *Future {
	return &Future{loop: l, done: make(chan struct{})}
}

// Resolved returns a future already resolved with value.
func (l *Loop) Resolved(value any) *Future {
	f := l.NewFuture()
	f.Resolve(value)
	return f
}

// Rejected returns a future already rejected with err.
func (l *Loop) Rejected(err error) *Future {
	f := l.NewFuture()
	f.Reject(err)
	return f
}

// Loop returns the loop the future settles on.
func (f *Future) Loop() *Loop {
	return f.loop
}

// Resolve settles the future with value. Settling twice is a no-op.
func (f *Future) Resolve(value any) {
	f.settle(resolved, value, nil)
}

// Reject settles the future with err. A nil err is replaced so that a
// rejected future always carries an error.
func (f *Future) Reject(err error) {
	if err == nil {
		err = fmt.Errorf("task: rejected without error")
	}
	f.settle(rejected, nil, err)
}

func (f *Future) settle(s state, value any, err error) {
	f.mu.Lock()
	if f.state != pending {
		f.mu.Unlock()
		return
	}
	f.state = s
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb := cb
		f.loop.Defer(func() { cb(value, err) })
	}
}

// IsSettled reports whether the future has resolved or rejected.
func (f *Future) IsSettled() bool {
	if f == nil {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != pending
}

// IsRejected reports whether the future settled with an error.
func (f *Future) IsRejected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == rejected
}

// Result returns the settled value and error, or zero values while pending.
func (f *Future) Result() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// OnSettle registers fn to run on a later loop turn once the future settles.
// Callbacks never run inline, even when the future is already settled.
func (f *Future) OnSettle(fn func(value any, err error)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	if f.state == pending {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	f.loop.Defer(func() { fn(value, err) })
}

// Then chains fn onto a successful result. Rejections pass through untouched.
// When fn returns a *Future the chained future adopts its outcome.
func (f *Future) Then(fn func(value any) (any, error)) *Future {
	next := f.loop.NewFuture()
	f.OnSettle(func(value any, err error) {
		if err != nil {
			next.Reject(err)
			return
		}
		out, err := fn(value)
		if err != nil {
			next.Reject(err)
			return
		}
		if inner, ok := out.(*Future); ok && inner != nil {
			inner.OnSettle(func(v any, e error) {
				if e != nil {
					next.Reject(e)
					return
				}
				next.Resolve(v)
			})
			return
		}
		next.Resolve(out)
	})
	return next
}

// Wait drives the future's loop until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	if f == nil {
		return nil, ErrNilFuture
	}
	if err := f.loop.Await(ctx, f); err != nil {
		return nil, err
	}
	return f.Result()
}

func (f *Future) settledCh() <-chan struct{} {
	return f.done
}
