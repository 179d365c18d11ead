package state

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend intended for tests and examples.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: map[string]Record{}, now: time.Now}
}

func (b *MemoryBackend) Get(_ context.Context, key Key) (Record, error) {
	id, err := key.Identifier()
	if err != nil {
		return Record{}, err
	}
	b.mu.RLock()
	record, ok := b.records[id]
	b.mu.RUnlock()
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneRecord(record), nil
}

func (b *MemoryBackend) Put(_ context.Context, key Key, data map[string]any, mode PutMode) (Meta, error) {
	id, err := key.Identifier()
	if err != nil {
		return Meta{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, exists := b.records[id]
	if err := CheckMode(key, mode, exists); err != nil {
		return Meta{}, err
	}
	meta := NextMeta(prev.Meta, exists, b.now())
	b.records[id] = Record{Key: key, Data: maps.Clone(data), Meta: meta}
	return meta, nil
}

func (b *MemoryBackend) Delete(_ context.Context, key Key) error {
	id, err := key.Identifier()
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(b.records, id)
	return nil
}

// Len returns the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func cloneRecord(record Record) Record {
	out := record
	out.Data = maps.Clone(record.Data)
	return out
}
