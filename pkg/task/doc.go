// Package task provides the single-timeline scheduling primitives used by the
// models calculation engine: a cooperative Loop with a "defer to next turn"
// queue and a Future that settles exactly once.
//
// Everything scheduled on a Loop runs on the goroutine that drives it (via
// Future.Wait, Loop.Drain or Loop.RunOnce). Other goroutines may settle
// futures or Defer work; the callbacks still run on the driving goroutine.
//
//	loop := task.NewLoop()
//	f := loop.NewFuture()
//	loop.Defer(func() { f.Resolve(42) })
//	value, err := f.Wait(ctx)
//
// There is no cancellation: a Future either resolves or rejects. Wait only
// stops early when its context is done, leaving the Future untouched.
package task
