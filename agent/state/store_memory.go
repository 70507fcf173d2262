package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps sessions in process. Values are copied on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	byLead   map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		byLead:   make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	m.mu.RLock()
	raw, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (m *MemoryStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return ErrNilSession
	}
	if err := session.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = raw
	ids, ok := m.byLead[session.LeadID]
	if !ok {
		ids = make(map[string]struct{})
		m.byLead[session.LeadID] = ids
	}
	ids[session.ID] = struct{}{}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	session, err := m.Load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	delete(m.byLead[session.LeadID], sessionID)
	return nil
}

func (m *MemoryStore) ListByLead(ctx context.Context, leadID string) ([]string, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, errors.New("lead id is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.byLead[leadID]))
	for id := range m.byLead[leadID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
