package state

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

func TestSessionAppendTurnAssignsSequentialIndexes(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewSession("s-1", "lead", contractx.ChannelCall, 0, now)
	if s.Attempt != 1 {
		t.Fatalf("attempt defaults to 1, got %d", s.Attempt)
	}

	for i, role := range []contractx.Role{contractx.RoleAgent, contractx.RoleCounterparty, contractx.RoleAgent} {
		turn, err := s.AppendTurn(role, "text", nil, now)
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
		if turn.Index != i {
			t.Fatalf("turn %d got index %d", i, turn.Index)
		}
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if last, ok := s.LastTurn(); !ok || last.Index != 2 {
		t.Fatalf("unexpected last turn: %+v", last)
	}
}

func TestSessionTerminalStatesRejectEverything(t *testing.T) {
	t.Parallel()

	for _, terminal := range []Status{StatusEndedNormal, StatusEndedByCounterparty, StatusEscalated} {
		t.Run(string(terminal), func(t *testing.T) {
			t.Parallel()

			now := time.Now()
			s := NewSession("s", "lead", contractx.ChannelEmail, 1, now)
			if _, err := s.AppendTurn(contractx.RoleCounterparty, "hi", nil, now); err != nil {
				t.Fatalf("AppendTurn() error = %v", err)
			}
			if err := s.Transition(terminal, "done", now); err != nil {
				t.Fatalf("Transition() error = %v", err)
			}

			if err := s.Transition(StatusActive, "", now); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if _, err := s.AppendTurn(contractx.RoleAgent, "late", nil, now); !errors.Is(err, contractx.ErrSessionTerminal) {
				t.Fatalf("expected ErrSessionTerminal, got %v", err)
			}
			if len(s.History) != 1 {
				t.Fatalf("history must be preserved, got %d turns", len(s.History))
			}
			if s.Reason != "done" {
				t.Fatalf("unexpected reason: %q", s.Reason)
			}
		})
	}
}

func TestSessionActiveToActiveIsAllowed(t *testing.T) {
	t.Parallel()

	s := NewSession("s", "lead", contractx.ChannelCall, 1, time.Now())
	if err := s.Transition(StatusActive, "", time.Now()); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session Session
		want    error
	}{
		{name: "missing_id", session: Session{Channel: contractx.ChannelCall, Status: StatusActive}, want: ErrInvalidSession},
		{name: "bad_channel", session: Session{ID: "s", Channel: "SMS", Status: StatusActive}, want: contractx.ErrValidation},
		{name: "bad_status", session: Session{ID: "s", Channel: contractx.ChannelCall, Status: "PAUSED"}, want: contractx.ErrValidation},
		{
			name: "index_gap",
			session: Session{
				ID: "s", Channel: contractx.ChannelCall, Status: StatusActive,
				History: []contractx.ConversationTurn{{Index: 0}, {Index: 2}},
			},
			want: ErrHistoryCorrupt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.session.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
