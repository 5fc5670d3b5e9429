package kvstore

import (
	"encoding/json"
	"sync"
)

var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend keeps values in process memory
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]json.RawMessage)}
}

func (m *MemoryBackend) Load(key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (m *MemoryBackend) Save(key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
