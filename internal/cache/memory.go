package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is a process-local Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	current map[string]uuid.UUID
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*Entry),
		current: make(map[string]uuid.UUID),
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, sessionID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[sessionID].Clone(), nil
}

// Begin implements Cache.
func (m *Memory) Begin(_ context.Context, sessionID string, searchID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current[sessionID] = searchID
	delete(m.entries, sessionID)
	return nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, sessionID string, entry *Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.current[sessionID]; !ok || current != entry.SearchID {
		return false, nil
	}
	m.entries[sessionID] = entry.Clone()
	return true, nil
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	delete(m.current, sessionID)
	return nil
}

// Len returns the number of sessions the cache holds an entry or a current search for.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.current)
	for id := range m.entries {
		if _, ok := m.current[id]; !ok {
			n++
		}
	}
	return n
}
