package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

// Session is the persistent source-of-truth for one exchange with one lead.
// It is mutated only by the conversation engine.
type Session struct {
	// Identity
	ID      string            `json:"id"`
	OwnerID string            `json:"owner_id,omitempty"`
	LeadID  string            `json:"lead_id"`
	Channel contractx.Channel `json:"channel"`
	Attempt int               `json:"attempt"`

	// Generation context
	SolutionDescription string                   `json:"solution_description,omitempty"`
	LeadProfile         contractx.LeadProfile    `json:"lead_profile"`
	CallScript          string                   `json:"call_script,omitempty"`
	Thread              []contractx.EmailMessage `json:"thread,omitempty"`

	History  []contractx.ConversationTurn `json:"history"`
	Status   Status                       `json:"status"`
	Reason   string                       `json:"reason,omitempty"`
	Warnings []string                     `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status string

const (
	StatusActive              Status = "ACTIVE"
	StatusEndedNormal         Status = "ENDED_NORMAL"
	StatusEndedByCounterparty Status = "ENDED_BY_COUNTERPARTY"
	StatusEscalated           Status = "ESCALATED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusEndedNormal, StatusEndedByCounterparty, StatusEscalated:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusEndedNormal || s == StatusEndedByCounterparty || s == StatusEscalated
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrHistoryCorrupt    = errors.New("session history corrupt")
)

func NewSession(id, leadID string, channel contractx.Channel, attempt int, now time.Time) *Session {
	if attempt <= 0 {
		attempt = 1
	}
	return &Session{
		ID:        id,
		LeadID:    leadID,
		Channel:   channel,
		Attempt:   attempt,
		History:   []contractx.ConversationTurn{},
		Status:    StatusActive,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) IsTerminal() bool {
	return s != nil && s.Status.Terminal()
}

// NextIndex is the index the next appended turn will receive.
func (s *Session) NextIndex() int {
	return len(s.History)
}

// AppendTurn adds a turn at the end of the history. Turns are never removed or reordered.
func (s *Session) AppendTurn(role contractx.Role, text string, audio []byte, now time.Time) (contractx.ConversationTurn, error) {
	if s == nil {
		return contractx.ConversationTurn{}, errors.New("nil session")
	}
	if s.Status.Terminal() {
		return contractx.ConversationTurn{}, fmt.Errorf("%w: session=%s status=%s", contractx.ErrSessionTerminal, s.ID, s.Status)
	}
	if role != contractx.RoleAgent && role != contractx.RoleCounterparty {
		return contractx.ConversationTurn{}, fmt.Errorf("%w: unknown role %q", contractx.ErrValidation, role)
	}

	turn := contractx.ConversationTurn{
		Index: s.NextIndex(),
		Role:  role,
		Text:  text,
		Audio: audio,
	}
	s.History = append(s.History, turn)
	s.Touch(now)
	return turn, nil
}

// Transition moves the session to the next status. Terminal statuses accept nothing.
func (s *Session) Transition(to Status, reason string, now time.Time) error {
	if s == nil {
		return errors.New("nil session")
	}
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if s.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	if r := strings.TrimSpace(reason); r != "" {
		s.Reason = r
	}
	s.Touch(now)
	return nil
}

func (s *Session) AddWarning(msg string) {
	if msg = strings.TrimSpace(msg); msg != "" {
		s.Warnings = append(s.Warnings, msg)
	}
}

// LastTurn returns the most recent turn, if any.
func (s *Session) LastTurn() (contractx.ConversationTurn, bool) {
	if s == nil || len(s.History) == 0 {
		return contractx.ConversationTurn{}, false
	}
	return s.History[len(s.History)-1], true
}

func (s *Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSession
	}
	if !s.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", contractx.ErrValidation, s.Channel)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", contractx.ErrValidation, s.Status)
	}
	for i, t := range s.History {
		if t.Index != i {
			return fmt.Errorf("%w: turn at position %d has index %d", ErrHistoryCorrupt, i, t.Index)
		}
	}
	return nil
}
