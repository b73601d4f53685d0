package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is the development-only counterpart of MemoryStore.
type MemoryRepository struct {
	mu      sync.RWMutex
	byGame  map[string]*Result
	ordered map[string][]string // conversation id -> game ids, insertion order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byGame: make(map[string]*Result), ordered: make(map[string][]string)}
}

func (m *MemoryRepository) Record(_ context.Context, res *Result) error {
	if res == nil {
		return nil
	}
	cp := *res
	cp.Moves = append([]int(nil), res.Moves...)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byGame[res.GameID]; !exists {
		m.ordered[res.ConversationID] = append(m.ordered[res.ConversationID], res.GameID)
	}
	m.byGame[res.GameID] = &cp
	return nil
}

func (m *MemoryRepository) Recent(_ context.Context, conversationID string, limit int) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.ordered[conversationID]
	out := make([]*Result, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *m.byGame[ids[i]]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
