package testing

import (
	"context"
	"sync"
)

// MockStore is an in-memory key/value store with error injection.
// It satisfies persistence.Store without importing it.
type MockStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	saves   map[string]int
	loadErr error
	saveErr error
}

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		data:  make(map[string][]byte),
		saves: make(map[string]int),
	}
}

// SetLoadError sets the error returned by Load
func (m *MockStore) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetSaveError sets the error returned by Save
func (m *MockStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Load returns a copy of the stored value
func (m *MockStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, false, m.loadErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Save stores a copy of the value
func (m *MockStore) Save(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	m.saves[key]++
	return nil
}

// SaveBatch stores copies of every value, or none when a save error is set
func (m *MockStore) SaveBatch(ctx context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	for key, value := range values {
		v := make([]byte, len(value))
		copy(v, value)
		m.data[key] = v
		m.saves[key]++
	}
	return nil
}

// SaveCount returns how many successful saves were made for a key
func (m *MockStore) SaveCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves[key]
}

// MockInvalidator counts invalidations
type MockInvalidator struct {
	mu    sync.Mutex
	count int
}

// Invalidate records one invalidation
func (m *MockInvalidator) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
}

// Count returns how many times Invalidate was called
func (m *MockInvalidator) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
