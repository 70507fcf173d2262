package escalation

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

func TestRedisStoreIntegration(t *testing.T) {
	url := os.Getenv("OUTREACH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("OUTREACH_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisConfig{URL: url})
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	prefix := "outreach-test:" + uuid.NewString()
	store := NewRedisStore(client, prefix)
	t.Cleanup(func() {
		_ = client.Del(context.Background(), prefix+":items", prefix+":order").Err()
	})

	now := time.Now().UTC()
	late := pricingItem("s-late")
	late.CreatedAt = now.Add(time.Minute)
	early := pricingItem("s-early")
	early.CreatedAt = now

	for _, item := range []contractx.EscalationItem{late, early} {
		if err := store.Put(ctx, item); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 || items[0].SessionID != "s-early" {
		t.Fatalf("unexpected list: %+v", items)
	}

	got, err := store.Get(ctx, "s-late")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.DraftReply != late.DraftReply {
		t.Fatalf("unexpected item: %+v", got)
	}

	if err := store.Delete(ctx, "s-late"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "s-late"); !errors.Is(err, contractx.ErrEscalationNotFound) {
		t.Fatalf("expected ErrEscalationNotFound, got %v", err)
	}
}
