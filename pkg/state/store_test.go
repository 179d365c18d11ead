package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "github.com/goliatone/go-models"
	"github.com/goliatone/go-models/pkg/state"
)

func userSchema(t *testing.T, storage models.Storage) *models.Schema {
	t.Helper()
	schema, err := models.Define("user", []models.Field{
		{Name: "id", Type: models.ID},
		{Name: "name", Type: models.Text},
		{Name: "secret", Type: models.Text, Internal: true},
	}, models.WithStorage(storage))
	require.NoError(t, err)
	return schema
}

func TestStoreSaveFetchRemove(t *testing.T) {
	ctx := context.Background()
	backend := state.NewMemoryBackend()
	store := state.NewStore(backend, state.WithIDGenerator(func() string { return "u-1" }))
	schema := userSchema(t, store)

	m := schema.MustNew(map[string]any{"name": "ada", "secret": "x"})
	require.NoError(t, m.Save(ctx))
	assert.Equal(t, "u-1", m.ID())
	assert.False(t, m.IsChanged(models.DefaultBranch))

	record, err := backend.Get(ctx, state.Key{Schema: "user", ID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "u-1", "name": "ada"}, record.Data)
	assert.Equal(t, 1, record.Meta.Version)

	require.NoError(t, m.Set("name", "grace"))
	require.NoError(t, m.Save(ctx))
	record, err = backend.Get(ctx, state.Key{Schema: "user", ID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "grace", record.Data["name"])
	assert.Equal(t, 2, record.Meta.Version)

	other := schema.MustNew(map[string]any{"id": "u-1"})
	require.NoError(t, other.Fetch(ctx))
	assert.Equal(t, "grace", other.Value("name"))
	assert.False(t, other.IsChanged(models.DefaultBranch))

	require.NoError(t, m.Remove(ctx))
	assert.True(t, m.IsDestructed())
	assert.Equal(t, 0, backend.Len())

	err = other.Fetch(ctx)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestStoreDefaultIDsAreUUIDs(t *testing.T) {
	ctx := context.Background()
	store := state.NewStore(state.NewMemoryBackend())
	schema := userSchema(t, store)

	a := schema.MustNew(map[string]any{"name": "a"})
	b := schema.MustNew(map[string]any{"name": "b"})
	require.NoError(t, a.Save(ctx))
	require.NoError(t, b.Save(ctx))

	assert.Len(t, a.ID(), 36)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestMemoryBackendPutModes(t *testing.T) {
	ctx := context.Background()
	backend := state.NewMemoryBackend()
	key := state.Key{Schema: "user", ID: "1"}

	_, err := backend.Put(ctx, key, map[string]any{"a": 1}, state.UpdateOnly)
	assert.ErrorIs(t, err, state.ErrNotFound)

	meta, err := backend.Put(ctx, key, map[string]any{"a": 1}, state.CreateOnly)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Version)

	_, err = backend.Put(ctx, key, map[string]any{"a": 2}, state.CreateOnly)
	assert.ErrorIs(t, err, state.ErrConflict)

	meta, err = backend.Put(ctx, key, map[string]any{"a": 3}, state.Upsert)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Version)
	assert.False(t, meta.UpdatedAt.Before(meta.CreatedAt))
}

func TestMemoryBackendReturnsCopies(t *testing.T) {
	ctx := context.Background()
	backend := state.NewMemoryBackend()
	key := state.Key{Schema: "user", ID: "1"}
	data := map[string]any{"name": "ada"}

	_, err := backend.Put(ctx, key, data, state.Upsert)
	require.NoError(t, err)
	data["name"] = "mutated"

	record, err := backend.Get(ctx, key)
	require.NoError(t, err)
	record.Data["name"] = "again"

	record, err = backend.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "ada", record.Data["name"])
}

func TestKeyIdentifier(t *testing.T) {
	id, err := state.Key{Schema: "user", ID: " 7 "}.Identifier()
	require.NoError(t, err)
	assert.Equal(t, "user/7", id)

	_, err = state.Key{ID: "7"}.Identifier()
	assert.Error(t, err)
	_, err = state.Key{Schema: "user"}.Identifier()
	assert.Error(t, err)
	_, err = state.Key{Schema: "a/b", ID: "1"}.Identifier()
	assert.Error(t, err)
}
