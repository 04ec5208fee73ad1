// Package answers holds the per-session Answer Store: a flat mapping from
// field identifier to string value, plus the reserved progress flags.
package answers

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/regform/regform/internal/storage"
)

// Store is the key/value contract every questionnaire component works
// against. Multi-select values are stored comma-joined.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	All() (map[string]string, error)
	// Clear removes every key, flags included.
	Clear() error
}

// Memory is an in-process Store used by tests and the CLI.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns a Memory store seeded with a copy of initial.
func NewMemory(initial map[string]string) *Memory {
	m := &Memory{data: make(map[string]string, len(initial))}
	maps.Copy(m.data, initial)
	return m
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) All() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data), nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.data)
	return nil
}

// Backend is the persistent storage a Session delegates to. Implemented by
// storage.Store.
type Backend interface {
	SetAnswer(sessionID, key, value string) error
	GetAnswer(sessionID, key string) (string, error)
	AllAnswers(sessionID string) (map[string]string, error)
	DeleteAnswer(sessionID, key string) error
	ClearAnswers(sessionID string) error
}

// Session is a Store scoped to one visitor session.
type Session struct {
	backend Backend
	id      string
}

// ForSession binds a Backend to a session id.
func ForSession(b Backend, sessionID string) *Session {
	return &Session{backend: b, id: sessionID}
}

func (s *Session) Get(key string) (string, bool, error) {
	v, err := s.backend.GetAnswer(s.id, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading answer %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Session) Set(key, value string) error {
	if err := s.backend.SetAnswer(s.id, key, value); err != nil {
		return fmt.Errorf("writing answer %q: %w", key, err)
	}
	return nil
}

func (s *Session) Delete(key string) error {
	if err := s.backend.DeleteAnswer(s.id, key); err != nil {
		return fmt.Errorf("deleting answer %q: %w", key, err)
	}
	return nil
}

func (s *Session) All() (map[string]string, error) {
	all, err := s.backend.AllAnswers(s.id)
	if err != nil {
		return nil, fmt.Errorf("loading answers: %w", err)
	}
	return all, nil
}

func (s *Session) Clear() error {
	if err := s.backend.ClearAnswers(s.id); err != nil {
		return fmt.Errorf("clearing answers: %w", err)
	}
	return nil
}

// Join encodes a multi-select set.
func Join(values []string) string {
	return strings.Join(values, ",")
}

// Split decodes a comma-joined multi-select value, dropping empty entries.
func Split(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
