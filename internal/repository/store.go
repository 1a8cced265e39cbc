package repository

import (
	"context"
	"sync"
)

// OrderNumberKey is the only key the storefront persists.
const OrderNumberKey = "order_number"

// Store is a durable key-value store scoped to one client session.
// Load on a missing key returns ok=false and a nil error.
type Store interface {
	Save(ctx context.Context, key, value string) error
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Clear(ctx context.Context, key string) error
}

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
