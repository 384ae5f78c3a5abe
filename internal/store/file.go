package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// fileState is the on-disk shape of the file driver.
type fileState struct {
	Records   map[string]json.RawMessage `json:"records"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// File keeps every record in one JSON document, rewritten on each change.
type File struct {
	mu    sync.Mutex
	path  string
	state *fileState
}

// OpenFile loads the document at path. A missing file yields an empty store;
// an unreadable document is discarded and overwritten on the next save.
func OpenFile(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: file path is required")
	}
	state, err := loadState(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, state: state}, nil
}

func loadState(path string) (*fileState, error) {
	empty := &fileState{Records: make(map[string]json.RawMessage)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return nil, err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return empty, nil
	}
	if state.Records == nil {
		state.Records = make(map[string]json.RawMessage)
	}
	return &state, nil
}

func (f *File) save() error {
	f.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(f.state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *File) Get(key string, v any) error {
	f.mu.Lock()
	raw, ok := f.state.Records[key]
	f.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return decode(key, raw, v)
}

func (f *File) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Records[key] = raw
	return f.save()
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.Records[key]; !ok {
		return nil
	}
	delete(f.state.Records, key)
	return f.save()
}

func (f *File) DeletePrefix(prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := false
	for k := range f.state.Records {
		if strings.HasPrefix(k, prefix) {
			delete(f.state.Records, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.save()
}

func (f *File) Keys(prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0)
	for k := range f.state.Records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *File) Close() error { return nil }
