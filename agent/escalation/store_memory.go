package escalation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]contractx.EscalationItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]contractx.EscalationItem)}
}

func (m *MemoryStore) Put(ctx context.Context, item contractx.EscalationItem) error {
	m.mu.Lock()
	m.items[item.SessionID] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (contractx.EscalationItem, error) {
	m.mu.RLock()
	item, ok := m.items[sessionID]
	m.mu.RUnlock()
	if !ok {
		return contractx.EscalationItem{}, fmt.Errorf("%w: session=%s", contractx.ErrEscalationNotFound, sessionID)
	}
	return item, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.items, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]contractx.EscalationItem, error) {
	m.mu.RLock()
	out := make([]contractx.EscalationItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
