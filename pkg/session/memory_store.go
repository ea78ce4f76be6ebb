package session

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (m *MemoryStore) Load(ctx context.Context) (Session, error) {
	return load(m.snapshot())
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	return lookup(m.snapshot(), key)
}

func (m *MemoryStore) Save(ctx context.Context, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	entries := s.Entries()

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
	return nil
}

// Set writes a raw key. It exists so callers can seed partial or legacy data.
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
}

func (m *MemoryStore) snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}
