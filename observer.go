package models

import "time"

// Observer is notified about the calculation engine of every model built
// with it. Implementations run on the loop driving the model and must not
// block.
type Observer interface {
	PassStarted(schema string, depth int)
	CycleSettled(schema string, passes int, elapsed time.Duration)
	CycleFailed(schema string, passes int, err error)
}

type noopObserver struct{}

func (noopObserver) PassStarted(string, int)                  {}
func (noopObserver) CycleSettled(string, int, time.Duration) {}
func (noopObserver) CycleFailed(string, int, error)           {}
