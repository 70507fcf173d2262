package conversation

import (
	"context"
	"sync"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

// Sink receives agent turns in strict turn order.
type Sink interface {
	Play(ctx context.Context, turn contractx.ConversationTurn) error
}

// Playback is a reorder buffer keyed by turn index. Deliver may be called in any
// order; Sink.Play only ever sees agent turns in append order. Counterparty
// turns advance the cursor without being played.
type Playback struct {
	mu      sync.Mutex
	sink    Sink
	next    int
	pending map[int]contractx.ConversationTurn
}

func NewPlayback(sink Sink, from int) *Playback {
	if from < 0 {
		from = 0
	}
	return &Playback{
		sink:    sink,
		next:    from,
		pending: make(map[int]contractx.ConversationTurn),
	}
}

// Deliver buffers turn and flushes every turn that is now contiguous with the cursor.
// Turns behind the cursor are ignored.
func (p *Playback) Deliver(ctx context.Context, turn contractx.ConversationTurn) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if turn.Index < p.next {
		return nil
	}
	p.pending[turn.Index] = turn

	for {
		t, ok := p.pending[p.next]
		if !ok {
			return nil
		}
		if t.Role == contractx.RoleAgent {
			if err := p.sink.Play(ctx, t); err != nil {
				return err
			}
		}
		delete(p.pending, p.next)
		p.next++
	}
}

// Next is the index of the next turn to be played.
func (p *Playback) Next() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}

// Buffered is the number of turns waiting for an earlier index.
func (p *Playback) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// PlaybackHub routes appended turns to whichever playback leg is attached to a session.
type PlaybackHub struct {
	mu       sync.RWMutex
	sessions map[string]*Playback
}

func NewPlaybackHub() *PlaybackHub {
	return &PlaybackHub{sessions: make(map[string]*Playback)}
}

// Attach registers sink for sessionID, replacing any previous leg. Playback
// starts at turn index from; earlier turns are never replayed.
func (h *PlaybackHub) Attach(sessionID string, sink Sink, from int) *Playback {
	p := NewPlayback(sink, from)
	h.mu.Lock()
	h.sessions[sessionID] = p
	h.mu.Unlock()
	return p
}

func (h *PlaybackHub) Detach(sessionID string, p *Playback) {
	h.mu.Lock()
	if cur, ok := h.sessions[sessionID]; ok && cur == p {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
}

func (h *PlaybackHub) Attached(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[sessionID]
	return ok
}

// Deliver is a no-op when nothing is attached to sessionID.
func (h *PlaybackHub) Deliver(ctx context.Context, sessionID string, turn contractx.ConversationTurn) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	p, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return p.Deliver(ctx, turn)
}
