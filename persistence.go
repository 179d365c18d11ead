package models

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-models/pkg/activity"
)

// Storage persists models. Implementations are called only after the model is
// ready; their errors are returned to callers unchanged.
type Storage interface {
	// Insert stores a new model and returns its identity.
	Insert(ctx context.Context, m *Model) (any, error)
	Update(ctx context.Context, m *Model) error
	// Find returns the stored data of the model identified by m.ID().
	Find(ctx context.Context, m *Model) (map[string]any, error)
	Remove(ctx context.Context, m *Model) error
}

// Storage returns the configured backend, or nil.
func (m *Model) Storage() Storage { return m.cfg.storage }

func (m *Model) checkPersistable() error {
	if m.identity == nil {
		return fmt.Errorf("%w: %s", ErrNoIdentity, m.schema.name)
	}
	if m.cfg.storage == nil {
		return fmt.Errorf("%w: %s", ErrNoStorage, m.schema.name)
	}
	if m.destructed {
		return ErrDestructed
	}
	return nil
}

// Save inserts new models and updates persisted ones, committing on success.
// An insert assigns the returned identity and waits for the resulting
// recalculation.
func (m *Model) Save(ctx context.Context) error {
	if err := m.checkPersistable(); err != nil {
		return err
	}
	if _, err := m.Ready().Wait(ctx); err != nil {
		return err
	}
	storage := m.cfg.storage
	changes, previous := m.pendingChanges()

	if m.IsNew() {
		id, err := storage.Insert(ctx, m)
		if err != nil {
			return err
		}
		if err := m.identity.Set(id); err != nil {
			return err
		}
		m.Commit(DefaultBranch)
		if _, err := m.Calculate().Wait(ctx); err != nil {
			return err
		}
		m.logStorage("insert")
		m.emitActivity(ctx, activity.BuildModelCreatedEvent(activity.ModelEventInput{
			Schema:   m.schema.name,
			ObjectID: idKey(m.ID()),
			Changes:  m.ToJSON(),
		}))
		return nil
	}

	if err := storage.Update(ctx, m); err != nil {
		return err
	}
	m.Commit(DefaultBranch)
	m.logStorage("update")
	m.emitActivity(ctx, activity.BuildModelUpdatedEvent(activity.ModelEventInput{
		Schema:   m.schema.name,
		ObjectID: idKey(m.ID()),
		Changes:  changes,
		Previous: previous,
	}))
	return nil
}

// Fetch loads the stored data of the model, waits for the recalculation and
// commits the result.
func (m *Model) Fetch(ctx context.Context) error {
	if err := m.checkPersistable(); err != nil {
		return err
	}
	if _, err := m.Ready().Wait(ctx); err != nil {
		return err
	}
	data, err := m.cfg.storage.Find(ctx, m)
	if err != nil {
		return err
	}
	if err := m.SetMany(data); err != nil {
		return err
	}
	if _, err := m.Ready().Wait(ctx); err != nil {
		return err
	}
	m.Commit(DefaultBranch)
	m.logStorage("find")
	return nil
}

// Remove deletes a persisted model from storage and destructs it. New models
// are destructed without touching storage.
func (m *Model) Remove(ctx context.Context) error {
	if m.IsNew() {
		m.Destruct()
		return nil
	}
	if err := m.checkPersistable(); err != nil {
		return err
	}
	if err := m.cfg.storage.Remove(ctx, m); err != nil {
		return err
	}
	id := idKey(m.ID())
	m.logStorage("remove")
	m.Destruct()
	m.emitActivity(ctx, activity.BuildModelDeletedEvent(activity.ModelEventInput{
		Schema:   m.schema.name,
		ObjectID: id,
	}))
	return nil
}

// pendingChanges returns the non-internal values changed since the last
// commit, with their committed counterparts.
func (m *Model) pendingChanges() (changes, previous map[string]any) {
	for _, attr := range m.attrs {
		if attr.Internal() || !attr.IsChanged(DefaultBranch) {
			continue
		}
		if changes == nil {
			changes = map[string]any{}
			previous = map[string]any{}
		}
		changes[attr.Name()] = attr.JSON()
		previous[attr.Name()] = attr.LastCommitted(DefaultBranch)
	}
	return changes, previous
}

func (m *Model) logStorage(op string) {
	m.cfg.log().Debug("models: storage",
		slog.String("schema", m.schema.name),
		slog.String("op", op),
		slog.Any("id", m.ID()),
	)
}

func (m *Model) emitActivity(ctx context.Context, event activity.Event) {
	if !m.activity.Enabled() {
		return
	}
	if err := m.activity.Emit(ctx, event); err != nil {
		m.cfg.log().Warn("models: activity hook failed",
			slog.String("schema", m.schema.name),
			slog.String("verb", event.Verb),
			slog.Any("error", err),
		)
	}
}
