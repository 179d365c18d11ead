package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("state: record not found")
	// ErrConflict is returned when inserting a key that already exists.
	ErrConflict = errors.New("state: record already exists")
)

// Key identifies one persisted model.
type Key struct {
	Schema string
	ID     string
}

// Identifier returns the canonical "<schema>/<id>" storage key.
func (k Key) Identifier() (string, error) {
	schema := strings.TrimSpace(k.Schema)
	id := strings.TrimSpace(k.ID)
	if schema == "" {
		return "", fmt.Errorf("state: schema is required")
	}
	if id == "" {
		return "", fmt.Errorf("state: id is required for schema %q", schema)
	}
	if strings.Contains(schema, "/") {
		return "", fmt.Errorf("state: schema %q must not contain '/'", schema)
	}
	return schema + "/" + id, nil
}

// Meta is backend-owned record metadata.
type Meta struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is one stored model snapshot.
type Record struct {
	Key  Key            `json:"key"`
	Data map[string]any `json:"data"`
	Meta Meta           `json:"meta"`
}

// PutMode selects the precondition of Backend.Put.
type PutMode int

const (
	// Upsert writes the record whether or not it exists.
	Upsert PutMode = iota
	// CreateOnly fails with ErrConflict when the key exists.
	CreateOnly
	// UpdateOnly fails with ErrNotFound when the key is missing.
	UpdateOnly
)

// Backend stores records by key.
type Backend interface {
	Get(ctx context.Context, key Key) (Record, error)
	// Put stores data under key and returns the resulting metadata.
	Put(ctx context.Context, key Key, data map[string]any, mode PutMode) (Meta, error)
	Delete(ctx context.Context, key Key) error
}

// NextMeta advances metadata for a write at now.
func NextMeta(prev Meta, exists bool, now time.Time) Meta {
	if !exists {
		return Meta{Version: 1, CreatedAt: now, UpdatedAt: now}
	}
	return Meta{Version: prev.Version + 1, CreatedAt: prev.CreatedAt, UpdatedAt: now}
}

// CheckMode validates mode against whether the key exists.
func CheckMode(key Key, mode PutMode, exists bool) error {
	switch {
	case mode == CreateOnly && exists:
		return fmt.Errorf("%w: %s/%s", ErrConflict, key.Schema, key.ID)
	case mode == UpdateOnly && !exists:
		return fmt.Errorf("%w: %s/%s", ErrNotFound, key.Schema, key.ID)
	}
	return nil
}
