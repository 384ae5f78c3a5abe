package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("store: record not found")

// Store is a small JSON-valued key/value store for engine state that must
// survive restarts: the policy record, the rate-limit window and the session ledger.
type Store interface {
	Get(key string, v any) error
	Put(key string, v any) error
	Delete(key string) error
	DeletePrefix(prefix string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

// Open builds a store for the configured driver ("badger", "file" or "memory").
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "badger":
		return OpenBadger(path)
	case "file":
		return OpenFile(path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func decode(key string, raw []byte, v any) error {
	if len(raw) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Memory keeps records in process memory. Used by tests and the "memory" driver.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string, v any) error {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return decode(key, raw, v)
}

func (m *Memory) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

// PutRaw stores bytes as-is, bypassing encoding.
func (m *Memory) PutRaw(key string, raw []byte) {
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeletePrefix(prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }
