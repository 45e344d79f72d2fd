package workspace

import (
	"context"
	"sync"
)

// Record keys. They match the keys the browser editor writes so stored
// records can be moved between the two.
const (
	KeyWorkspace = "codeharbor-workspace"
	KeySettings  = "codeharbor-settings"
	KeyToken     = "github-token"
)

// Store is a string key-value persistence port.
type Store interface {
	// Load returns the value for key; ok is false when the key is unset.
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
