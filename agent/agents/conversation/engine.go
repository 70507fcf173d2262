package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	statex "github.com/tanpawarit/outreach-orchestrator/agent/state"
)

const reasonGenerationUnavailable = "generation unavailable"

// Escalator accepts sessions the engine could not resolve on its own.
type Escalator interface {
	Enqueue(ctx context.Context, item contractx.EscalationItem) (contractx.EscalationItem, error)
}

type Config struct {
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" split_words:"true" default:"30s"`
	SynthesisTimeout  time.Duration `envconfig:"SYNTHESIS_TIMEOUT" split_words:"true" default:"20s"`
	DefaultOwnerID    string        `envconfig:"DEFAULT_OWNER_ID" split_words:"true" default:"default"`
}

type Engine struct {
	caller      contractx.VoiceAgent
	email       contractx.EmailAnalyst
	speech      contractx.SpeechSynthesizer
	store       statex.Store
	escalations Escalator
	records     contractx.RecordStore
	playback    *PlaybackHub

	generationTimeout time.Duration
	synthesisTimeout  time.Duration
	defaultOwnerID    string

	locks    sync.Map // session id -> *sync.Mutex
	mu       sync.Mutex
	inflight map[string]context.CancelFunc

	now   func() time.Time
	newID func() string
}

type Deps struct {
	Caller      contractx.VoiceAgent
	Email       contractx.EmailAnalyst
	Speech      contractx.SpeechSynthesizer
	Store       statex.Store
	Escalations Escalator
	Records     contractx.RecordStore
	Playback    *PlaybackHub
}

func New(deps Deps, cfg Config) (*Engine, error) {
	if deps.Caller == nil {
		return nil, errors.New("voice agent is required")
	}
	if deps.Email == nil {
		return nil, errors.New("email analyst is required")
	}
	if deps.Speech == nil {
		return nil, errors.New("speech synthesizer is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Escalations == nil {
		return nil, errors.New("escalation queue is required")
	}
	if deps.Playback == nil {
		deps.Playback = NewPlaybackHub()
	}

	genTimeout := cfg.GenerationTimeout
	if genTimeout <= 0 {
		genTimeout = 30 * time.Second
	}
	synthTimeout := cfg.SynthesisTimeout
	if synthTimeout <= 0 {
		synthTimeout = 20 * time.Second
	}
	owner := strings.TrimSpace(cfg.DefaultOwnerID)
	if owner == "" {
		owner = "default"
	}

	return &Engine{
		caller:            deps.Caller,
		email:             deps.Email,
		speech:            deps.Speech,
		store:             deps.Store,
		escalations:       deps.Escalations,
		records:           deps.Records,
		playback:          deps.Playback,
		generationTimeout: genTimeout,
		synthesisTimeout:  synthTimeout,
		defaultOwnerID:    owner,
		inflight:          make(map[string]context.CancelFunc),
		now:               time.Now,
		newID:             uuid.NewString,
	}, nil
}

type StartRequest struct {
	OwnerID             string                   `json:"ownerId"`
	LeadID              string                   `json:"leadId"`
	Channel             contractx.Channel        `json:"channel"`
	Attempt             int                      `json:"attempt"`
	SolutionDescription string                   `json:"solutionDescription"`
	LeadProfile         contractx.LeadProfile    `json:"leadProfile"`
	CallScript          string                   `json:"callScript"`
	Thread              []contractx.EmailMessage `json:"thread"`
}

// TurnInput is what the counterparty said (voice) or sent (email) since the last turn.
type TurnInput struct {
	Text string `json:"text"`
	From string `json:"from,omitempty"`
}

type TurnResult struct {
	Session    *statex.Session                  `json:"session"`
	AgentTurn  *contractx.ConversationTurn      `json:"agentTurn,omitempty"`
	Analysis   *contractx.EmailAnalysisResponse `json:"analysis,omitempty"`
	Escalation *contractx.EscalationItem        `json:"escalation,omitempty"`
	Warning    string                           `json:"warning,omitempty"`
	Terminal   bool                             `json:"terminal"`
}

func (e *Engine) StartSession(ctx context.Context, req StartRequest) (*statex.Session, error) {
	leadID := strings.TrimSpace(req.LeadID)
	if leadID == "" {
		return nil, fmt.Errorf("%w: lead id is required", contractx.ErrValidation)
	}
	if !req.Channel.Valid() {
		return nil, fmt.Errorf("%w: unknown channel %q", contractx.ErrValidation, req.Channel)
	}

	session := statex.NewSession(e.newID(), leadID, req.Channel, req.Attempt, e.now())
	session.OwnerID = strings.TrimSpace(req.OwnerID)
	session.SolutionDescription = req.SolutionDescription
	session.LeadProfile = req.LeadProfile
	session.CallScript = req.CallScript
	session.Thread = append(session.Thread, req.Thread...)
	for _, m := range req.Thread {
		if _, err := session.AppendTurn(contractx.RoleCounterparty, m.Content, nil, e.now()); err != nil {
			return nil, err
		}
	}

	if err := e.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	log.Info().
		Str("session_id", session.ID).
		Str("lead_id", leadID).
		Str("channel", string(req.Channel)).
		Int("attempt", session.Attempt).
		Msg("conversation session started")
	return session, nil
}

// AdvanceTurn runs one turn of the session's state machine.
func (e *Engine) AdvanceTurn(ctx context.Context, sessionID string, input TurnInput) (TurnResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	turnCtx, cancel := context.WithCancel(ctx)
	e.setInflight(sessionID, cancel)
	defer func() {
		e.clearInflight(sessionID)
		cancel()
	}()

	session, err := e.store.Load(turnCtx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if session.IsTerminal() {
		return TurnResult{Session: session, Terminal: true}, fmt.Errorf("%w: session=%s status=%s", contractx.ErrSessionTerminal, session.ID, session.Status)
	}

	switch session.Channel {
	case contractx.ChannelCall:
		return e.advanceVoice(turnCtx, session, input)
	case contractx.ChannelEmail:
		return e.advanceEmail(turnCtx, session, input)
	default:
		return TurnResult{}, fmt.Errorf("%w: unknown channel %q", contractx.ErrValidation, session.Channel)
	}
}

// Hangup ends the session on behalf of the counterparty. An in-flight turn is
// cancelled; turns already appended are kept.
func (e *Engine) Hangup(ctx context.Context, sessionID string) (*statex.Session, error) {
	e.cancelInflight(sessionID)

	unlock := e.lock(sessionID)
	defer unlock()

	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Transition(statex.StatusEndedByCounterparty, "counterparty hung up", e.now()); err != nil {
		return session, fmt.Errorf("%w: %v", contractx.ErrSessionTerminal, err)
	}
	if err := e.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	e.appendLog(ctx, session)

	log.Info().
		Str("session_id", session.ID).
		Int("turns", len(session.History)).
		Msg("conversation ended by counterparty")
	return session, nil
}

// AttachPlayback attaches sink to sessionID starting at the next turn index. It
// holds the session lock so no turn can land between reading the index and attaching.
func (e *Engine) AttachPlayback(ctx context.Context, sessionID string, sink Sink) (*Playback, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.playback.Attach(sessionID, sink, session.NextIndex()), nil
}

func (e *Engine) DetachPlayback(sessionID string, p *Playback) {
	e.playback.Detach(sessionID, p)
}

func (e *Engine) Session(ctx context.Context, sessionID string) (*statex.Session, error) {
	return e.store.Load(ctx, sessionID)
}

// LeadSessions returns every stored session for leadID ordered by attempt. Ids
// whose session has expired from the store are skipped.
func (e *Engine) LeadSessions(ctx context.Context, leadID string) ([]*statex.Session, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, fmt.Errorf("%w: lead id is required", contractx.ErrValidation)
	}

	ids, err := e.store.ListByLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead sessions: %w", err)
	}

	sessions := make([]*statex.Session, 0, len(ids))
	for _, id := range ids {
		session, err := e.store.Load(ctx, id)
		if errors.Is(err, statex.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Attempt != sessions[j].Attempt {
			return sessions[i].Attempt < sessions[j].Attempt
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// finish persists a session after a transition and, for terminal ones, appends its log.
func (e *Engine) finish(ctx context.Context, session *statex.Session) error {
	if err := e.store.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if session.IsTerminal() {
		e.appendLog(ctx, session)
	}
	return nil
}

// keepCancelled persists what the turn recorded before cancellation and reports
// ErrSessionCancelled. The save outlives ctx so a hangup cannot lose the counterparty turn.
func (e *Engine) keepCancelled(ctx context.Context, session *statex.Session, cause error) (TurnResult, error) {
	if err := e.store.Save(context.WithoutCancel(ctx), session); err != nil {
		return TurnResult{}, fmt.Errorf("save session: %w", err)
	}
	if !errors.Is(cause, contractx.ErrSessionCancelled) {
		cause = fmt.Errorf("%w: %v", contractx.ErrSessionCancelled, cause)
	}
	return TurnResult{Session: session}, cause
}

// escalate queues the item before the session turns ESCALATED, so a queue
// failure leaves the session ACTIVE with its turns saved and nothing orphaned.
func (e *Engine) escalate(ctx context.Context, session *statex.Session, reason string, analysis *contractx.EmailAnalysisResponse) (*contractx.EscalationItem, error) {
	item := contractx.EscalationItem{
		ID:        e.newID(),
		SessionID: session.ID,
		LeadID:    session.LeadID,
		Contact:   session.LeadProfile.Contact,
		Reason:    reason,
		CreatedAt: e.now().UTC(),
	}
	if analysis != nil {
		item.SuggestedAction = analysis.SuggestedAction
		item.DraftReply = analysis.DraftReplyBody
	}

	queued, err := e.escalations.Enqueue(ctx, item)
	if err != nil {
		if saveErr := e.store.Save(context.WithoutCancel(ctx), session); saveErr != nil {
			log.Error().Err(saveErr).Str("session_id", session.ID).Msg("save session after failed escalation")
		}
		return nil, fmt.Errorf("enqueue escalation: %w", err)
	}

	if err := session.Transition(statex.StatusEscalated, reason, e.now()); err != nil {
		return nil, err
	}
	if err := e.finish(ctx, session); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID).
		Str("lead_id", session.LeadID).
		Str("reason", reason).
		Msg("conversation escalated")
	return &queued, nil
}

func (e *Engine) appendLog(ctx context.Context, session *statex.Session) {
	if e.records == nil {
		return
	}
	kind := contractx.CollectionCallLogs
	if session.Channel == contractx.ChannelEmail {
		kind = contractx.CollectionEmailLogs
	}
	owner := session.OwnerID
	if owner == "" {
		owner = e.defaultOwnerID
	}
	if _, err := e.records.CreateRecord(ctx, kind, owner, session); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", session.ID).
			Str("collection", string(kind)).
			Msg("failed to append conversation log")
	}
}

// withRetry calls fn at most twice, each attempt bounded by timeout. A cancelled
// parent context stops retrying and returns ErrSessionCancelled.
func withRetry[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %v", contractx.ErrSessionCancelled, ctx.Err())
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("generation attempt failed")
	}
	return zero, fmt.Errorf("%w: %w", contractx.ErrGenerationUnavailable, lastErr)
}

func (e *Engine) lock(sessionID string) func() {
	v, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (e *Engine) setInflight(sessionID string, cancel context.CancelFunc) {
	e.mu.Lock()
	e.inflight[sessionID] = cancel
	e.mu.Unlock()
}

func (e *Engine) clearInflight(sessionID string) {
	e.mu.Lock()
	delete(e.inflight, sessionID)
	e.mu.Unlock()
}

func (e *Engine) cancelInflight(sessionID string) {
	e.mu.Lock()
	cancel, ok := e.inflight[sessionID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}
