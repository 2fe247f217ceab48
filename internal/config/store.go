package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Provider hands out the current wallet settings. Callers must not assume two
// calls return the same value.
type Provider interface {
	Current() WalletSettings
}

// Store is a Provider whose value can be replaced and observed.
type Store interface {
	Provider
	// Replace swaps the settings wholesale and notifies subscribers.
	Replace(settings WalletSettings) error
	// Subscribe registers fn for future replacements and returns a function
	// that removes it.
	Subscribe(fn func(WalletSettings)) (unsubscribe func())
}

// FileStore keeps the settings in memory and mirrors them to a JSON file,
// which is the source of truth at startup.
type FileStore struct {
	path string

	mu      sync.RWMutex
	current WalletSettings
	nextID  int
	subs    map[int]func(WalletSettings)
}

// NewFileStore loads settings from path. A missing file yields defaults.
func NewFileStore(path string, defaults WalletSettings) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		current: defaults,
		subs:    make(map[int]func(WalletSettings)),
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("NewFileStore: read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.current); err != nil {
		return nil, fmt.Errorf("NewFileStore: decode %q: %w", path, err)
	}
	return s, nil
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore(settings WalletSettings) *FileStore {
	s, _ := NewFileStore("", settings)
	return s
}

// Current implements Provider.
func (s *FileStore) Current() WalletSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace implements Store. The file is written before subscribers run.
func (s *FileStore) Replace(settings WalletSettings) error {
	if s.path != "" {
		if err := writeFileAtomic(s.path, settings); err != nil {
			return fmt.Errorf("Replace: %w", err)
		}
	}

	s.mu.Lock()
	s.current = settings
	subs := make([]func(WalletSettings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(settings)
	}
	return nil
}

// Subscribe implements Store.
func (s *FileStore) Subscribe(fn func(WalletSettings)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func writeFileAtomic(path string, settings WalletSettings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".wallet-settings-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
