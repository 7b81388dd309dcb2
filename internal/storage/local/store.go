package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/practicum/internal/storage"
)

// Store provides thread-safe file storage, one file per key
type Store struct {
	basePath string
	mu       sync.RWMutex
}

var _ storage.KV = (*Store)(nil)

// NewStore creates a new local file store
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// keyReplacer maps key characters that are unsafe in file names
var keyReplacer = strings.NewReplacer("/", "%2F", "\\", "%5C", ":", "%3A", "..", "%2E%2E")

func (s *Store) path(key string) string {
	return filepath.Join(s.basePath, keyReplacer.Replace(key)+".json")
}

// Get reads the value stored under key
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

// Set writes value under key. The write goes to a temp file first and is
// renamed into place so readers never observe a partial value.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename file: %w", err)
	}

	return nil
}

// Remove deletes the file for key. Missing keys are not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Exists checks if a value is stored under key
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(key))
	return err == nil
}

// List returns all stored keys in sorted order
func (s *Store) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".tmp-") || filepath.Ext(name) != ".json" {
			continue
		}
		keys = append(keys, unescapeKey(strings.TrimSuffix(name, ".json")))
	}
	sort.Strings(keys)

	return keys, nil
}

var keyUnreplacer = strings.NewReplacer("%2F", "/", "%5C", "\\", "%3A", ":", "%2E%2E", "..")

func unescapeKey(name string) string {
	return keyUnreplacer.Replace(name)
}
