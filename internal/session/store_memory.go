package session

import (
	"context"
	"sync"
)

// MemoryStore is a development-only, non-durable Store. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Get(_ context.Context, conversationID string) (*Session, error) {
	id, err := normalizeKey(conversationID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, conversationID string, fn Mutator) (*Session, error) {
	id, err := normalizeKey(conversationID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := m.keyLock(id)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	cur := m.sessions[id].Clone()
	m.mu.Unlock()

	next, err := apply(id, cur, fn)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return cur, nil
	}
	m.mu.Lock()
	m.sessions[id] = next.Clone()
	m.mu.Unlock()
	return next, nil
}

func (m *MemoryStore) keyLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}
