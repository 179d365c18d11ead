package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	models "github.com/goliatone/go-models"
)

// IDGenerator returns a fresh identity for an inserted model.
type IDGenerator func() string

// UUIDGenerator returns random UUIDv4 identities.
func UUIDGenerator() string {
	return uuid.NewString()
}

// Store implements models.Storage on top of a Backend.
type Store struct {
	backend Backend
	ids     IDGenerator
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(gen IDGenerator) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.ids = gen
		}
	}
}

// NewStore adapts backend to models.Storage.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{backend: backend, ids: UUIDGenerator}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ models.Storage = (*Store)(nil)

// Backend returns the underlying record backend.
func (s *Store) Backend() Backend { return s.backend }

func (s *Store) Insert(ctx context.Context, m *models.Model) (any, error) {
	id := s.ids()
	key := Key{Schema: m.Schema().Name(), ID: id}
	if _, err := s.backend.Put(ctx, key, s.data(m, id), CreateOnly); err != nil {
		return nil, err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, m *models.Model) error {
	key, err := keyOf(m)
	if err != nil {
		return err
	}
	_, err = s.backend.Put(ctx, key, s.data(m, key.ID), UpdateOnly)
	return err
}

func (s *Store) Find(ctx context.Context, m *models.Model) (map[string]any, error) {
	key, err := keyOf(m)
	if err != nil {
		return nil, err
	}
	record, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return record.Data, nil
}

func (s *Store) Remove(ctx context.Context, m *models.Model) error {
	key, err := keyOf(m)
	if err != nil {
		return err
	}
	return s.backend.Delete(ctx, key)
}

// data is the JSON snapshot of m with the identity filled in.
func (s *Store) data(m *models.Model, id string) map[string]any {
	data := m.ToJSON()
	if name := m.Schema().Identity(); name != "" {
		data[name] = id
	}
	return data
}

func keyOf(m *models.Model) (Key, error) {
	id := m.ID()
	if id == nil {
		return Key{}, fmt.Errorf("state: %s model has no identity", m.Schema().Name())
	}
	return Key{Schema: m.Schema().Name(), ID: strings.TrimSpace(fmt.Sprint(id))}, nil
}
