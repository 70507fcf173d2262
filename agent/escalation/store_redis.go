package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type RedisConfig struct {
	URL       string `envconfig:"REDIS_URL" split_words:"true" required:"true"`
	KeyPrefix string `envconfig:"KEY_PREFIX" split_words:"true" default:"outreach:escalation"`
}

// RedisStore keeps items in a hash keyed by session id and their order in a
// sorted set scored by creation time.
type RedisStore struct {
	client   *redis.Client
	itemsKey string
	orderKey string
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = "outreach:escalation"
	}
	return &RedisStore{
		client:   client,
		itemsKey: prefix + ":items",
		orderKey: prefix + ":order",
	}
}

func (s *RedisStore) Put(ctx context.Context, item contractx.EscalationItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.itemsKey, item.SessionID, payload)
		pipe.ZAdd(ctx, s.orderKey, redis.Z{
			Score:  float64(item.CreatedAt.UnixMilli()),
			Member: item.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put escalation: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (contractx.EscalationItem, error) {
	raw, err := s.client.HGet(ctx, s.itemsKey, sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return contractx.EscalationItem{}, fmt.Errorf("%w: session=%s", contractx.ErrEscalationNotFound, sessionID)
	}
	if err != nil {
		return contractx.EscalationItem{}, fmt.Errorf("get escalation: %w", err)
	}

	var item contractx.EscalationItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return contractx.EscalationItem{}, fmt.Errorf("unmarshal escalation: %w", err)
	}
	return item, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.itemsKey, sessionID)
		pipe.ZRem(ctx, s.orderKey, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete escalation: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]contractx.EscalationItem, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list escalation order: %w", err)
	}
	if len(ids) == 0 {
		return []contractx.EscalationItem{}, nil
	}

	values, err := s.client.HMGet(ctx, s.itemsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	items := make([]contractx.EscalationItem, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// order entry without an item; skip it
			continue
		}
		var item contractx.EscalationItem
		if err := json.Unmarshal([]byte(str), &item); err != nil {
			return nil, fmt.Errorf("unmarshal escalation %s: %w", ids[i], err)
		}
		items = append(items, item)
	}
	return items, nil
}
