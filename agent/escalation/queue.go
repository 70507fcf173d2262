package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type DecisionKind string

const (
	DecisionSendDraft         DecisionKind = "SEND_DRAFT"
	DecisionMarkNotInterested DecisionKind = "MARK_NOT_INTERESTED"
	DecisionReanalyze         DecisionKind = "REANALYZE"
)

// Decision is the human reviewer's resolution of one escalated session.
type Decision struct {
	Kind DecisionKind `json:"decision"`
	// Body replaces the drafted reply when set (edit-and-send).
	Body string `json:"body,omitempty"`
	// To overrides the lead contact recorded on the item.
	To string `json:"to,omitempty"`
}

type Resolution struct {
	SessionID string                           `json:"sessionId"`
	Decision  DecisionKind                     `json:"decision"`
	Resolved  bool                             `json:"resolved"`
	Analysis  *contractx.EmailAnalysisResponse `json:"analysis,omitempty"`
	// Item is the replacement entry when re-analysis still needs attention.
	Item *contractx.EscalationItem `json:"item,omitempty"`
}

// Store holds at most one item per session id.
type Store interface {
	Put(ctx context.Context, item contractx.EscalationItem) error
	Get(ctx context.Context, sessionID string) (contractx.EscalationItem, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]contractx.EscalationItem, error)
}

// Reanalyzer re-runs the single-turn email analysis for a stored session.
type Reanalyzer interface {
	Reanalyze(ctx context.Context, sessionID string) (contractx.EmailAnalysisResponse, error)
}

type Queue struct {
	store Store
	mail  contractx.MailDispatcher

	mu         sync.RWMutex
	reanalyzer Reanalyzer

	// locks serializes Resolve per session id.
	locks sync.Map

	now   func() time.Time
	newID func() string
}

func NewQueue(store Store, mail contractx.MailDispatcher) (*Queue, error) {
	if store == nil {
		return nil, errors.New("escalation store is required")
	}
	if mail == nil {
		return nil, errors.New("mail dispatcher is required")
	}
	return &Queue{
		store: store,
		mail:  mail,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// SetReanalyzer wires the conversation engine after both are constructed.
func (q *Queue) SetReanalyzer(r Reanalyzer) {
	q.mu.Lock()
	q.reanalyzer = r
	q.mu.Unlock()
}

// Enqueue stores item, replacing any pending item for the same session.
func (q *Queue) Enqueue(ctx context.Context, item contractx.EscalationItem) (contractx.EscalationItem, error) {
	if strings.TrimSpace(item.SessionID) == "" {
		return contractx.EscalationItem{}, fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(item.Reason) == "" {
		return contractx.EscalationItem{}, fmt.Errorf("%w: reason is required", contractx.ErrValidation)
	}
	if item.ID == "" {
		item.ID = q.newID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = q.now().UTC()
	}

	if err := q.store.Put(ctx, item); err != nil {
		return contractx.EscalationItem{}, fmt.Errorf("store escalation: %w", err)
	}

	log.Info().
		Str("session_id", item.SessionID).
		Str("escalation_id", item.ID).
		Str("reason", item.Reason).
		Msg("escalation enqueued")
	return item, nil
}

func (q *Queue) Get(ctx context.Context, sessionID string) (contractx.EscalationItem, error) {
	return q.store.Get(ctx, sessionID)
}

// List returns pending items, oldest first.
func (q *Queue) List(ctx context.Context) ([]contractx.EscalationItem, error) {
	return q.store.List(ctx)
}

func (q *Queue) lock(sessionID string) func() {
	v, _ := q.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Resolve applies decision to the pending item for sessionID. Concurrent
// resolutions of one session run one at a time; the loser sees ErrEscalationNotFound.
func (q *Queue) Resolve(ctx context.Context, sessionID string, decision Decision) (Resolution, error) {
	unlock := q.lock(sessionID)
	defer unlock()

	item, err := q.store.Get(ctx, sessionID)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{SessionID: sessionID, Decision: decision.Kind}

	switch decision.Kind {
	case DecisionSendDraft:
		body := strings.TrimSpace(decision.Body)
		if body == "" {
			body = strings.TrimSpace(item.DraftReply)
		}
		if body == "" {
			return Resolution{}, fmt.Errorf("%w: no reply body to send", contractx.ErrValidation)
		}
		to := strings.TrimSpace(decision.To)
		if to == "" {
			to = item.Contact
		}
		if to == "" {
			return Resolution{}, fmt.Errorf("%w: no recipient for session %s", contractx.ErrValidation, sessionID)
		}
		if err := q.mail.Dispatch(ctx, sessionID, to, body); err != nil {
			return Resolution{}, err
		}
		if err := q.store.Delete(ctx, sessionID); err != nil {
			return Resolution{}, fmt.Errorf("remove escalation: %w", err)
		}
		res.Resolved = true

	case DecisionMarkNotInterested:
		if err := q.store.Delete(ctx, sessionID); err != nil {
			return Resolution{}, fmt.Errorf("remove escalation: %w", err)
		}
		res.Resolved = true

	case DecisionReanalyze:
		q.mu.RLock()
		r := q.reanalyzer
		q.mu.RUnlock()
		if r == nil {
			return Resolution{}, errors.New("re-analysis is not configured")
		}

		analysis, err := r.Reanalyze(ctx, sessionID)
		if err != nil {
			return Resolution{}, fmt.Errorf("reanalyze session %s: %w", sessionID, err)
		}
		res.Analysis = &analysis

		if analysis.SuggestedAction == contractx.SuggestedNeedsAttention {
			reason := analysis.Reason
			if reason == "" {
				reason = item.Reason
			}
			fresh, err := q.Enqueue(ctx, contractx.EscalationItem{
				SessionID:       sessionID,
				LeadID:          item.LeadID,
				Contact:         item.Contact,
				Reason:          reason,
				SuggestedAction: analysis.SuggestedAction,
				DraftReply:      analysis.DraftReplyBody,
			})
			if err != nil {
				return Resolution{}, err
			}
			res.Item = &fresh
			return res, nil
		}

		if err := q.store.Delete(ctx, sessionID); err != nil {
			return Resolution{}, fmt.Errorf("remove escalation: %w", err)
		}
		res.Resolved = true

	default:
		return Resolution{}, fmt.Errorf("%w: unknown decision %q", contractx.ErrValidation, decision.Kind)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("decision", string(decision.Kind)).
		Msg("escalation resolved")
	return res, nil
}
