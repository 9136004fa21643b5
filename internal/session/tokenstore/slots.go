package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Slots is a small named key/value area that outlives a single command, the
// equivalent of browser local storage. WriteAll must apply all values in one step.
type Slots interface {
	Read(key string) (string, bool, error)
	WriteAll(values map[string]string) error
	Delete(keys ...string) error
}

// MemorySlots keeps slots in process memory.
type MemorySlots struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{values: make(map[string]string)}
}

func (m *MemorySlots) Read(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySlots) WriteAll(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemorySlots) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// FileSlots persists slots as a flat YAML mapping. Every change rewrites the whole
// file through a temporary file and a rename, so readers never see a partial update.
// Concurrent writers in different processes resolve as last-write-wins.
type FileSlots struct {
	mu   sync.Mutex
	path string
}

// NewFileSlots returns slots stored at path. The file is created on first write.
func NewFileSlots(path string) *FileSlots {
	return &FileSlots{path: path}
}

// Path returns the backing file location.
func (f *FileSlots) Path() string {
	return f.path
}

func (f *FileSlots) Read(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileSlots) WriteAll(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.load()
	if err != nil {
		// an unreadable file is replaced rather than blocking a fresh login
		current = make(map[string]string)
	}
	for k, v := range values {
		current[k] = v
	}
	return f.save(current)
}

func (f *FileSlots) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.load()
	if err != nil {
		current = make(map[string]string)
	}
	for _, k := range keys {
		delete(current, k)
	}
	return f.save(current)
}

func (f *FileSlots) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("unable to read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("unable to parse session file: %w", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (f *FileSlots) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("unable to create session directory: %w", err)
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("unable to encode session: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("unable to write session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("unable to write session file: %w", err)
	}
	return nil
}
