package models

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-models/pkg/task"
)

type cycleStats struct {
	started time.Time
}

// IsReady reports whether no calculation pass is outstanding.
func (m *Model) IsReady() bool { return m.ready }

// Ready returns the future of the current settle cycle. It resolves once the
// model is ready, and rejects when the cycle failed unless calculation errors
// are swallowed.
func (m *Model) Ready() *task.Future { return m.readyFuture }

// Calculate starts a settle cycle when the model is ready and returns its
// future. While a cycle is outstanding it returns that cycle's future.
func (m *Model) Calculate() *task.Future {
	if m.destructed {
		return m.loop.Rejected(ErrDestructed)
	}
	return m.calculate()
}

func (m *Model) calculate() *task.Future {
	if m.ready {
		m.ready = false
		m.readyFuture = m.loop.NewFuture()
		m.cycle = cycleStats{started: time.Now()}
		m.loop.Defer(m.runPass)
		m.emit(EventCalculate)
	}
	return m.readyFuture
}

func (m *Model) attributeChanged(name string) {
	m.changed[name] = struct{}{}
	if _, seen := m.notifySeen[name]; !seen {
		m.notifySeen[name] = struct{}{}
		m.notify = append(m.notify, name)
	}
	m.calculate()
}

func (m *Model) runPass() {
	m.depth++
	if max := m.cfg.maxPasses(); m.depth > max {
		m.fail(&NonConvergenceError{
			Schema:     m.schema.name,
			Max:        max,
			Attributes: m.changedNames(),
		})
		return
	}
	m.cfg.calculationObserver().PassStarted(m.schema.name, m.depth)
	m.cfg.log().Debug("models: calculation pass", slog.String("schema", m.schema.name), slog.Int("depth", m.depth))

	changed := m.changed
	m.changed = map[string]struct{}{}

	var (
		derivedNames []string
		derived      []*task.Future
		blocking     []*task.Future
	)
	for _, attr := range m.attrs {
		name := attr.Name()
		t := attr.Type()
		m.hookAttr = name

		if deriver, ok := lookup[Deriver](t); ok {
			result, err := deriver.Derive(m)
			if err != nil {
				m.fail(fmt.Errorf("models: %s.%s: derive: %w", m.schema.name, name, err))
				return
			}
			switch value := result.(type) {
			case nil:
			case *task.Future:
				derivedNames = append(derivedNames, name)
				derived = append(derived, value)
			default:
				if err := attr.Set(value); err != nil {
					m.fail(err)
					return
				}
			}
		}

		if amender, ok := lookup[Amender](t); ok {
			if _, hit := changed[name]; hit {
				pending, err := amender.Amend(m)
				if err != nil {
					m.fail(fmt.Errorf("models: %s.%s: amend: %w", m.schema.name, name, err))
					return
				}
				if pending != nil {
					blocking = append(blocking, pending)
				}
			}
		}

		if readier, ok := attr.(Readier); ok {
			if pending := readier.Ready(); pending != nil && (!pending.IsSettled() || pending.IsRejected()) {
				blocking = append(blocking, pending)
			}
		}
	}

	m.hookAttr = ""

	if len(derived) == 0 && len(blocking) == 0 {
		m.afterPass()
		return
	}

	task.All(m.loop, task.All(m.loop, derived...), task.All(m.loop, blocking...)).
		OnSettle(func(value any, err error) {
			if err != nil {
				m.fail(err)
				return
			}
			values, _ := value.([]any)[0].([]any)
			batch := make(map[string]any, len(derivedNames))
			for i, name := range derivedNames {
				if values[i] != nil {
					batch[name] = values[i]
				}
			}
			if err := m.SetMany(batch); err != nil {
				m.fail(err)
				return
			}
			m.afterPass()
		})
}

func (m *Model) afterPass() {
	if len(m.changed) > 0 {
		m.runPass()
		return
	}
	m.settle()
}

func (m *Model) settle() {
	passes := m.depth
	future := m.readyFuture
	names := m.notify

	m.ready = true
	m.depth = 0
	m.notify = nil
	m.notifySeen = map[string]struct{}{}

	m.cfg.calculationObserver().CycleSettled(m.schema.name, passes, time.Since(m.cycle.started))
	for _, name := range names {
		m.emit(ChangeEvent(name))
	}
	m.emit(EventChange)
	future.Resolve(nil)
}

func (m *Model) fail(err error) {
	passes := m.depth
	future := m.readyFuture

	m.ready = true
	m.depth = 0
	m.hookAttr = ""
	m.changed = map[string]struct{}{}
	m.notify = nil
	m.notifySeen = map[string]struct{}{}

	m.cfg.calculationObserver().CycleFailed(m.schema.name, passes, err)
	m.cfg.log().Error("models: calculation failed",
		slog.String("schema", m.schema.name),
		slog.Int("passes", passes),
		slog.Any("error", err),
	)
	if m.cfg.swallowErrors {
		future.Resolve(nil)
		return
	}
	future.Reject(err)
}

func (m *Model) changedNames() []string {
	names := make([]string, 0, len(m.changed))
	for _, attr := range m.attrs {
		if _, ok := m.changed[attr.Name()]; ok {
			names = append(names, attr.Name())
		}
	}
	return names
}

// Validate waits for the model to be ready, then validates every attribute.
// It resolves with true or rejects with a *ValidationError listing every
// failing attribute in declaration order. A destructed model rejects with
// ErrDestructed.
func (m *Model) Validate() *task.Future {
	if m.destructed {
		return m.loop.Rejected(ErrDestructed)
	}
	return m.Ready().Then(func(any) (any, error) {
		attrs := m.attrs
		futures := make([]*task.Future, len(attrs))
		for i, attr := range attrs {
			futures[i] = attr.Validate()
		}
		return task.AllSettled(m.loop, futures...).Then(func(value any) (any, error) {
			outcomes, _ := value.([]task.Outcome)
			var failures []*AttributeError
			for i, outcome := range outcomes {
				if outcome.Err != nil {
					failures = append(failures, asAttributeError(attrs[i].Name(), outcome.Err))
				}
			}
			if len(failures) > 0 {
				return nil, &ValidationError{Schema: m.schema.name, Errors: failures}
			}
			return true, nil
		}), nil
	})
}
