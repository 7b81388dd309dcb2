// Package storage defines the key-value persistence contract used by the
// progress and bookmark stores, plus small in-process implementations.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when a key has no stored value
var ErrNotFound = errors.New("not found")

// Logical keys under which records are persisted. Each value is a JSON
// object keyed by record id.
const (
	KeyProgress    = "exercise-progress-data"
	KeySessions    = "exercise-session-data"
	KeyCollections = "exercise-bookmark-collections"
	KeyTags        = "exercise-bookmark-tags"
)

// KV is the persistence contract: string values addressed by string keys.
// Get returns ErrNotFound for missing keys.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Nop discards writes and never finds anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (string, error) { return "", ErrNotFound }
func (Nop) Set(context.Context, string, string) error   { return nil }
func (Nop) Remove(context.Context, string) error        { return nil }

// OrNop returns kv, or a Nop store when kv is nil
func OrNop(kv KV) KV {
	if kv == nil {
		return Nop{}
	}
	return kv
}

// Memory is a thread-safe in-memory KV
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get returns the value for key
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Remove deletes key. Missing keys are not an error.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns all stored keys in sorted order
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Scoped prefixes every key with a user id so several learners can share
// one backend without seeing each other's records.
type Scoped struct {
	kv     KV
	prefix string
}

// NewScoped wraps kv so all keys live under "user:<userID>:".
// An empty userID returns a wrapper that leaves keys untouched.
func NewScoped(kv KV, userID string) *Scoped {
	prefix := ""
	if userID = strings.TrimSpace(userID); userID != "" {
		prefix = "user:" + userID + ":"
	}
	return &Scoped{kv: OrNop(kv), prefix: prefix}
}

// Key returns the backend key for a logical key
func (s *Scoped) Key(key string) string {
	return s.prefix + key
}

func (s *Scoped) Get(ctx context.Context, key string) (string, error) {
	return s.kv.Get(ctx, s.Key(key))
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	return s.kv.Set(ctx, s.Key(key), value)
}

func (s *Scoped) Remove(ctx context.Context, key string) error {
	return s.kv.Remove(ctx, s.Key(key))
}

var (
	_ KV = Nop{}
	_ KV = (*Memory)(nil)
	_ KV = (*Scoped)(nil)
)
