// Package badgerstore persists model records in BadgerDB.
//
// Records are stored as JSON under "<schema>/<id>" keys. Open with
// Config{InMemory: true} for tests.
package badgerstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"

	"github.com/goliatone/go-models/pkg/state"
)

// Config configures a BadgerDB backend.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger
}

// Backend is a state.Backend over a BadgerDB instance.
type Backend struct {
	db  *badger.DB
	now func() time.Time
}

var _ state.Backend = (*Backend)(nil)

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Backend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerstore: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badgerstore: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Backend{db: db, now: time.Now}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Get(_ context.Context, key state.Key) (state.Record, error) {
	id, err := key.Identifier()
	if err != nil {
		return state.Record{}, err
	}
	var record state.Record
	err = b.db.View(func(txn *badger.Txn) error {
		found, err := read(txn, id)
		if err != nil {
			return err
		}
		record = found
		return nil
	})
	return record, err
}

func (b *Backend) Put(_ context.Context, key state.Key, data map[string]any, mode state.PutMode) (state.Meta, error) {
	id, err := key.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	var meta state.Meta
	err = b.db.Update(func(txn *badger.Txn) error {
		prev, err := read(txn, id)
		exists := err == nil
		if err != nil && !errors.Is(err, state.ErrNotFound) {
			return err
		}
		if err := state.CheckMode(key, mode, exists); err != nil {
			return err
		}
		meta = state.NextMeta(prev.Meta, exists, b.now().UTC())
		raw, err := json.Marshal(state.Record{Key: key, Data: data, Meta: meta})
		if err != nil {
			return fmt.Errorf("badgerstore: encode %s: %w", id, err)
		}
		return txn.Set([]byte(id), raw)
	})
	return meta, err
}

func (b *Backend) Delete(_ context.Context, key state.Key) error {
	id, err := key.Identifier()
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", state.ErrNotFound, id)
			}
			return err
		}
		return txn.Delete([]byte(id))
	})
}

// Keys returns the ids stored for schema, in key order.
func (b *Backend) Keys(schema string) ([]string, error) {
	prefix := []byte(schema + "/")
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

func read(txn *badger.Txn, id string) (state.Record, error) {
	item, err := txn.Get([]byte(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return state.Record{}, fmt.Errorf("%w: %s", state.ErrNotFound, id)
	}
	if err != nil {
		return state.Record{}, err
	}
	var record state.Record
	err = item.Value(func(raw []byte) error {
		return json.Unmarshal(raw, &record)
	})
	if err != nil {
		return state.Record{}, fmt.Errorf("badgerstore: decode %s: %w", id, err)
	}
	return record, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexicographically sortable identity, so Keys lists
// records in insertion order.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewStore opens cfg and returns a models.Storage using ULID identities.
func NewStore(cfg Config) (*state.Store, *Backend, error) {
	backend, err := Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return state.NewStore(backend, state.WithIDGenerator(NewULID)), backend, nil
}
