package task

import "context"

// Outcome is the settled state of one future inside AllSettled.
type Outcome struct {
	Value any
	Err   error
}

// All resolves with the values of futures in order, or rejects with the first
// rejection observed.
func All(l *Loop, futures ...*Future) *Future {
	out := l.NewFuture()
	if len(futures) == 0 {
		out.Resolve([]any{})
		return out
	}
	values := make([]any, len(futures))
	remaining := len(futures)
	for i, f := range futures {
		i := i
		f.OnSettle(func(value any, err error) {
			if err != nil {
				out.Reject(err)
				return
			}
			values[i] = value
			remaining--
			if remaining == 0 {
				out.Resolve(values)
			}
		})
	}
	return out
}

// AllSettled resolves with one Outcome per future once every future settled.
// It never rejects.
func AllSettled(l *Loop, futures ...*Future) *Future {
	out := l.NewFuture()
	if len(futures) == 0 {
		out.Resolve([]Outcome{})
		return out
	}
	outcomes := make([]Outcome, len(futures))
	remaining := len(futures)
	for i, f := range futures {
		i := i
		f.OnSettle(func(value any, err error) {
			outcomes[i] = Outcome{Value: value, Err: err}
			remaining--
			if remaining == 0 {
				out.Resolve(outcomes)
			}
		})
	}
	return out
}

// Go runs fn on its own goroutine and settles the returned future with its
// result. Callbacks attached to the future still run on l.
func Go(ctx context.Context, l *Loop, fn func(context.Context) (any, error)) *Future {
	out := l.NewFuture()
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		value, err := fn(ctx)
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(value)
	}()
	return out
}
