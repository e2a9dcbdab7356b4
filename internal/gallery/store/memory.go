package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by the standalone dev binary and
// the unit tests. It enforces the same conditional-write contract as the
// remote backends and exposes fault hooks so tests can force conflicts and
// transient failures on specific calls.
type MemoryStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	tokens  map[string]string
	counter int

	// FailWrites returns an error to inject for the given write attempt
	// (1-based per key since the hook was set), or nil to let it through.
	FailWrites func(key string, attempt int) error
	attempts   map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string][]byte),
		tokens:   make(map[string]string),
		attempts: make(map[string]int),
	}
}

func (m *MemoryStore) Fetch(ctx context.Context, key string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	return &Snapshot{Content: cp, Token: m.tokens[key]}, nil
}

func (m *MemoryStore) Write(ctx context.Context, key string, content []byte, token, message string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("change description is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		m.attempts[key]++
		if err := m.FailWrites(key, m.attempts[key]); err != nil {
			return "", err
		}
	}

	current, exists := m.tokens[key]
	if exists && token != current {
		return "", ErrConflict
	}
	if !exists && token != "" {
		return "", ErrConflict
	}

	cp := make([]byte, len(content))
	copy(cp, content)
	m.docs[key] = cp
	m.counter++
	next := fmt.Sprintf("rev-%d", m.counter)
	m.tokens[key] = next
	return next, nil
}

// Token returns the current revision token for key (test helper).
func (m *MemoryStore) Token(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[key]
}

// BumpToken advances the token without changing content, simulating a write
// by another client (test helper).
func (m *MemoryStore) BumpToken(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[key]; ok {
		m.counter++
		m.tokens[key] = fmt.Sprintf("rev-%d", m.counter)
	}
}
