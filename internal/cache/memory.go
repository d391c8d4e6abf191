package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback for deployments without Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]envelope
	prefix  string
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]envelope),
		prefix:  prefix,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool) {
	s.mu.RLock()
	env, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Since(env.Timestamp) > maxAge {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}

	return env.Value, true
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = envelope{Timestamp: time.Now().UTC(), Value: value}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	marker := s.prefix + ":" + sessionID + ":"

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, marker) {
			delete(s.entries, key)
		}
	}
	return nil
}
