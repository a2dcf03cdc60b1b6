package session

import (
	"context"
	"sync"
)

// Keys under which session fields persist. Values are plain strings and are
// absent when unset.
const (
	KeyToken         = "token"
	KeyRefreshToken  = "refresh_token"
	KeyUserRole      = "userRole"
	KeyUserID        = "userId"
	KeyRelatedEntity = "relatedEntityId"
)

var allKeys = []string{KeyToken, KeyRefreshToken, KeyUserRole, KeyUserID, KeyRelatedEntity}

// Store is the key-value persistence behind a session Manager. The Manager
// is the only writer; implementations need to be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemStore is an in-memory Store. It backs short-lived sessions and tests.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
