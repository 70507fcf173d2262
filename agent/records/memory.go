package records

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type ownerKey struct {
	kind    contractx.CollectionKind
	ownerID string
}

// MemoryStore is an in-process RecordStore partitioned by owner.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[ownerKey][]contractx.Record
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[ownerKey][]contractx.Record), now: time.Now}
}

func (m *MemoryStore) CreateRecord(ctx context.Context, kind contractx.CollectionKind, ownerID string, data any) (contractx.Record, error) {
	if err := validate(kind, ownerID); err != nil {
		return contractx.Record{}, err
	}
	raw, err := encode(data)
	if err != nil {
		return contractx.Record{}, err
	}

	rec := contractx.Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		OwnerID:   ownerID,
		Data:      raw,
		CreatedAt: m.now().UTC(),
	}

	key := ownerKey{kind: kind, ownerID: ownerID}
	m.mu.Lock()
	m.rows[key] = append(m.rows[key], rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *MemoryStore) QueryRecords(ctx context.Context, kind contractx.CollectionKind, ownerID string) ([]contractx.Record, error) {
	if err := validate(kind, ownerID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.rows[ownerKey{kind: kind, ownerID: ownerID}]
	out := make([]contractx.Record, len(rows))
	for i, r := range rows {
		r.Data = append([]byte(nil), r.Data...)
		out[i] = r
	}
	return out, nil
}
