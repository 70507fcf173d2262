package records

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

func TestMemoryStoreOwnerIsolation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	lead := contractx.Lead{ID: "ada--acme", Name: "Ada", Company: "Acme", Contact: "ada@acme.io"}
	if _, err := store.CreateRecord(ctx, contractx.CollectionLeads, "owner-a", lead); err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if _, err := store.CreateRecord(ctx, contractx.CollectionLeads, "owner-b", lead); err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if _, err := store.CreateRecord(ctx, contractx.CollectionPlans, "owner-a", map[string]any{"steps": []any{}}); err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	got, err := store.QueryRecords(ctx, contractx.CollectionLeads, "owner-a")
	if err != nil {
		t.Fatalf("QueryRecords() error = %v", err)
	}
	if len(got) != 1 || got[0].OwnerID != "owner-a" || got[0].Kind != contractx.CollectionLeads {
		t.Fatalf("unexpected records: %+v", got)
	}

	var decoded contractx.Lead
	if err := json.Unmarshal(got[0].Data, &decoded); err != nil {
		t.Fatalf("decode record data: %v", err)
	}
	if decoded.ID != "ada--acme" {
		t.Fatalf("unexpected lead: %+v", decoded)
	}

	none, err := store.QueryRecords(ctx, contractx.CollectionCallLogs, "owner-a")
	if err != nil {
		t.Fatalf("QueryRecords() error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no call logs, got %d", len(none))
	}
}

func TestMemoryStoreValidates(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name  string
		kind  contractx.CollectionKind
		owner string
		data  any
	}{
		{name: "unknown_kind", kind: "campaigns", owner: "o", data: 1},
		{name: "empty_owner", kind: contractx.CollectionLeads, owner: " ", data: 1},
		{name: "bad_raw_json", kind: contractx.CollectionLeads, owner: "o", data: json.RawMessage(`{`)},
		{name: "unmarshalable", kind: contractx.CollectionLeads, owner: "o", data: make(chan int)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := store.CreateRecord(ctx, tt.kind, tt.owner, tt.data); !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}
