// Package memory is the in-memory KV used by tests and by dev environments
// that do not need durability.
package memory

import (
	"context"
	"sync"

	"github.com/quillback/fingerid/internal/fingerid/store"
)

type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (s *KV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *KV) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *KV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
