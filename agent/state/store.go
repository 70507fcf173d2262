package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

const (
	defaultKeyPrefix    = "outreach"
	defaultRetention    = 72 * time.Hour
	maxResponseBodySize = 16 << 20
)

// Store is the persistence contract used by the conversation engine.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
	// ListByLead returns the ids of every stored session for leadID, sorted.
	ListByLead(ctx context.Context, leadID string) ([]string, error)
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	// Retention is how long a terminal session is kept. Active sessions never expire.
	Retention time.Duration `envconfig:"RETENTION" split_words:"true" default:"72h"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true" default:"outreach"`
}

type StoreOption func(*UpstashRedisStore)

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore keeps each session as a JSON string under <prefix>:session:<id>
// and indexes ids per lead in the set <prefix>:lead:<lead id>.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	prefix     string
	retention  time.Duration
}

// upstashReply is one element of a REST reply; /pipeline returns an array of them.
type upstashReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}
	if cfg.Retention < 0 {
		return nil, errors.New("retention must be >= 0")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retention := cfg.Retention
	if retention == 0 {
		retention = defaultRetention
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.KeyPrefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	store := &UpstashRedisStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		prefix:     prefix,
		retention:  retention,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	key, err := s.sessionKey(sessionID)
	if err != nil {
		return nil, err
	}

	reply, err := s.command(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(reply.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	var payload string
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &session, nil
}

// Save writes the session and its lead index entry in one pipeline. Terminal
// sessions are written with the retention expiry.
func (s *UpstashRedisStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return ErrNilSession
	}
	if err := session.Validate(); err != nil {
		return err
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now()
	}
	session.UpdatedAt = session.UpdatedAt.UTC()

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	set := []any{"SET", s.prefix + ":session:" + session.ID, string(payload)}
	if session.IsTerminal() {
		set = append(set, "EX", expirySeconds(s.retention))
	}
	return s.pipeline(ctx, set, []any{"SADD", s.leadKey(session.LeadID), session.ID})
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.sessionKey(sessionID)
	if err != nil {
		return err
	}

	session, err := s.Load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.pipeline(ctx,
		[]any{"DEL", key},
		[]any{"SREM", s.leadKey(session.LeadID), sessionID},
	)
}

func (s *UpstashRedisStore) ListByLead(ctx context.Context, leadID string) ([]string, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, errors.New("lead id is empty")
	}

	reply, err := s.command(ctx, "SMEMBERS", s.leadKey(leadID))
	if err != nil {
		return nil, err
	}
	ids := []string{}
	if raw := bytes.TrimSpace(reply.Result); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("decode lead index: %w", err)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *UpstashRedisStore) sessionKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return s.prefix + ":session:" + sessionID, nil
}

func (s *UpstashRedisStore) leadKey(leadID string) string {
	return s.prefix + ":lead:" + leadID
}

func (s *UpstashRedisStore) command(ctx context.Context, args ...any) (upstashReply, error) {
	var reply upstashReply
	if err := s.post(ctx, s.baseURL, args, &reply); err != nil {
		return upstashReply{}, err
	}
	if reply.Error != "" {
		return upstashReply{}, errors.New(reply.Error)
	}
	return reply, nil
}

// pipeline sends every command in one request and fails on the first command error.
func (s *UpstashRedisStore) pipeline(ctx context.Context, commands ...[]any) error {
	var replies []upstashReply
	if err := s.post(ctx, s.baseURL+"/pipeline", commands, &replies); err != nil {
		return err
	}
	if len(replies) != len(commands) {
		return fmt.Errorf("redis pipeline returned %d replies for %d commands", len(replies), len(commands))
	}
	for i, r := range replies {
		if r.Error != "" {
			return fmt.Errorf("redis pipeline command %d (%v): %s", i, commands[i][0], r.Error)
		}
	}
	return nil
}

func (s *UpstashRedisStore) post(ctx context.Context, endpoint string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode redis response: %w", err)
	}
	return nil
}

func expirySeconds(d time.Duration) int64 {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
