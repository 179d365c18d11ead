package models

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-models/pkg/task"
)

func bookSchema(loop *task.Loop) *Schema {
	return MustDefine("book", []Field{
		{Name: "id", Type: ID},
		{Name: "title", Type: ValidateTag(Text, "required")},
		{Name: "year", Type: Number},
	}, WithLoop(loop))
}

func drainCollection(t *testing.T, c *Collection) {
	t.Helper()
	if _, err := c.Ready().Wait(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func TestCollectionIndexesByIdentity(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, err := NewCollection(books, []any{
		map[string]any{"id": 1, "title": "Dune", "year": 1965},
		map[string]any{"title": "Draft"},
	})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	drainCollection(t, c)

	if c.Len() != 2 || c.IsChanged(DefaultBranch) {
		t.Fatalf("expected two committed members")
	}
	dune, ok := c.Get(1)
	if !ok || dune.Value("title") != "Dune" {
		t.Fatalf("expected lookup by numeric id")
	}
	if dune.Collection() != c {
		t.Fatalf("member must point back at the collection")
	}

	draft := c.At(1)
	_ = draft.Set("id", "x-1")
	drainCollection(t, c)
	if got, ok := c.Get("x-1"); !ok || got != draft {
		t.Fatalf("identity change must reindex the member")
	}

	_ = draft.Set("id", "x-2")
	drainCollection(t, c)
	if _, ok := c.Get("x-1"); ok {
		t.Fatalf("stale identity must be dropped")
	}
}

func TestCollectionAddSkipsDuplicates(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, _ := NewCollection(books, []any{map[string]any{"id": 1, "title": "Dune"}})
	drainCollection(t, c)

	existing := c.At(0)
	var added []int
	c.On(EventAdd, func(e Event) { added = append(added, e.Index) })

	if err := c.Add(existing, map[string]any{"id": 1, "title": "Dupe"}, map[string]any{"id": 2, "title": "Emma"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if c.Len() != 2 || len(added) != 1 || added[0] != 1 {
		t.Fatalf("expected only Emma to be added at 1, got len %d events %v", c.Len(), added)
	}

	if err := c.Insert(0, map[string]any{"id": 3, "title": "Ulysses"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if c.At(0).Value("title") != "Ulysses" {
		t.Fatalf("expected insert at the front")
	}

	other := MustDefine("other", []Field{{Name: "id", Type: ID}}, WithLoop(loop))
	if err := c.Add(other.MustNew(nil)); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if err := c.Add(42); !errors.Is(err, ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
}

func TestCollectionSetReorderAndRevert(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, _ := NewCollection(books, []any{
		map[string]any{"id": 1, "title": "A"},
		map[string]any{"id": 2, "title": "B"},
	})
	drainCollection(t, c)
	a, b := c.At(0), c.At(1)

	resets := 0
	c.On(EventReset, func(Event) { resets++ })

	if err := c.SetModels(b, a, b); err != nil {
		t.Fatalf("set: %v", err)
	}
	if resets != 1 || c.Len() != 2 || c.At(0) != b {
		t.Fatalf("expected reordered members without duplicates")
	}
	if !c.IsChanged(DefaultBranch) {
		t.Fatalf("reorder must count as a change")
	}
	prev := c.Previous()
	if len(prev) != 2 || prev[0]["title"] != "A" {
		t.Fatalf("expected previous membership, got %v", prev)
	}

	_ = a.Set("title", "A2")
	drainCollection(t, c)

	c.Revert()
	drainCollection(t, c)
	if c.At(0) != a || a.Value("title") != "A" || c.IsChanged(DefaultBranch) {
		t.Fatalf("expected committed membership and values, got %v", c.ToJSON())
	}

	if err := c.SetModels(b); err != nil {
		t.Fatalf("set: %v", err)
	}
	if a.Collection() != nil {
		t.Fatalf("released member must drop its back reference")
	}
	if c.Commit(DefaultBranch) != true || c.IsChanged(DefaultBranch) {
		t.Fatalf("expected commit of new membership")
	}
	committed := c.LastCommitted(DefaultBranch)
	if len(committed) != 1 || committed[0]["id"] != "2" {
		t.Fatalf("unexpected committed membership %v", committed)
	}
}

func TestCollectionFailedBatchLeavesNoMembers(t *testing.T) {
	loop := task.NewLoop()
	var built []*Model
	tracked := MustDefine("tracked", []Field{
		{Name: "id", Type: ID},
		{Name: "seen", Type: Derived(Boolean, func(m *Model) (any, error) {
			built = append(built, m)
			return true, nil
		})},
	}, WithLoop(loop))

	c, err := NewCollection(tracked, []any{map[string]any{"id": 1}})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	drainCollection(t, c)
	kept := c.At(0)
	built = nil

	if err := c.Add(map[string]any{"id": 2}, 42); !errors.Is(err, ErrConversion) {
		t.Fatalf("Add: expected ErrConversion, got %v", err)
	}
	if err := c.Set([]any{map[string]any{"id": 3}, "nope"}); !errors.Is(err, ErrConversion) {
		t.Fatalf("Set: expected ErrConversion, got %v", err)
	}
	loop.Drain()

	if c.Len() != 1 || c.At(0) != kept {
		t.Fatalf("failed batches must leave the membership untouched, got %v", c.ToJSON())
	}
	if len(built) != 2 {
		t.Fatalf("expected the two batch models to have been built, got %d", len(built))
	}
	for _, m := range built {
		if !m.IsDestructed() {
			t.Fatalf("model built by a failed batch must be destructed")
		}
	}
}

func TestCollectionForwardsMemberEvents(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, _ := NewCollection(books, []any{map[string]any{"id": 1, "title": "A"}})
	drainCollection(t, c)

	var forwarded []Event
	c.On(ChangeEvent("title"), func(e Event) { forwarded = append(forwarded, e) })
	member := c.At(0)
	_ = member.Set("title", "B")
	drainCollection(t, c)

	if len(forwarded) != 1 || forwarded[0].Model != member || forwarded[0].Collection != c {
		t.Fatalf("expected forwarded change:title event, got %+v", forwarded)
	}
}

func TestCollectionDropsDestructedMembers(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, _ := NewCollection(books, []any{
		map[string]any{"id": 1, "title": "A"},
		map[string]any{"id": 2, "title": "B"},
	})
	drainCollection(t, c)

	removed := -1
	c.On(EventRemove, func(e Event) { removed = e.Index })
	c.At(0).Destruct()

	if c.Len() != 1 || removed != 0 {
		t.Fatalf("destructed member must be removed, got len %d index %d", c.Len(), removed)
	}
	if _, ok := c.Get(1); ok {
		t.Fatalf("destructed member must leave the index")
	}

	member := c.At(0)
	c.Remove(member)
	if c.Len() != 0 || member.IsDestructed() {
		t.Fatalf("Remove releases without destructing")
	}
}

func TestCollectionQueries(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, _ := NewCollection(books, []any{
		map[string]any{"id": 1, "title": "A", "year": 1990},
		map[string]any{"id": 2, "title": "B", "year": 2000},
		map[string]any{"id": 3, "title": "C", "year": 1990},
	})
	drainCollection(t, c)

	if got := c.Where(map[string]any{"year": 1990}); len(got) != 2 {
		t.Fatalf("expected two 1990 books, got %d", len(got))
	}
	if got := c.FindWhere(map[string]any{"year": "2000"}); got == nil || got.Value("title") != "B" {
		t.Fatalf("conditions must be converted like Set")
	}
	if got := c.Find(func(_ *Model, i int) bool { return i == 2 }); got != c.At(2) {
		t.Fatalf("expected third member")
	}
	titles := c.Pluck("title")
	if len(titles) != 3 || titles[2] != "C" {
		t.Fatalf("unexpected pluck %v", titles)
	}
	if c.IndexOf(c.At(1)) != 1 || c.At(9) != nil {
		t.Fatalf("unexpected index lookups")
	}
}

func TestCollectionValidateReportsMemberIndexes(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, _ := NewCollection(books, []any{
		map[string]any{"id": 1, "title": "A"},
		map[string]any{"id": 2},
	})

	_, err := c.Validate().Wait(context.Background())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validationErr.Errors) != 1 || validationErr.Errors[0].Attribute != "1" {
		t.Fatalf("expected failure of member 1, got %v", validationErr.Errors)
	}
}

func TestCollectionDestruct(t *testing.T) {
	loop := task.NewLoop()
	books := bookSchema(loop)
	c, _ := NewCollection(books, []any{map[string]any{"id": 1, "title": "A"}})
	drainCollection(t, c)
	member := c.At(0)

	c.Destruct()
	if !c.IsDestructed() || member.Collection() != nil || member.IsDestructed() {
		t.Fatalf("collection destruct must release members without destructing them")
	}
}
