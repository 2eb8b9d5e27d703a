package kvstore

import (
	"sync"

	"github.com/pkg/errors"
)

// KV is the flat key/value string storage the transcript and configuration
// persist through. Implementations must be safe for concurrent use.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// MemoryKV is an in-memory KV used by tests and by ephemeral sessions.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

var _ KV = &MemoryKV{}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]string{}}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	if m == nil {
		return "", false, errors.New("memory kv: nil store")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	if m == nil {
		return errors.New("memory kv: nil store")
	}
	if key == "" {
		return errors.New("memory kv: key is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	if m == nil {
		return errors.New("memory kv: nil store")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
