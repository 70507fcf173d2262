package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	statex "github.com/tanpawarit/outreach-orchestrator/agent/state"
)

func (e *Engine) advanceEmail(ctx context.Context, session *statex.Session, input TurnInput) (TurnResult, error) {
	content := strings.TrimSpace(input.Text)
	if content != "" {
		from := strings.TrimSpace(input.From)
		if from == "" {
			from = session.LeadProfile.Contact
		}
		if _, err := session.AppendTurn(contractx.RoleCounterparty, content, nil, e.now()); err != nil {
			return TurnResult{}, err
		}
		session.Thread = append(session.Thread, contractx.EmailMessage{From: from, Content: content})
	}
	if len(session.Thread) == 0 {
		return TurnResult{}, fmt.Errorf("%w: email thread is empty", contractx.ErrValidation)
	}

	analysis, err := withRetry(ctx, e.generationTimeout, func(ctx context.Context) (contractx.EmailAnalysisResponse, error) {
		return e.email.Analyze(ctx, e.emailRequest(session))
	})
	if errors.Is(err, contractx.ErrSessionCancelled) {
		return e.keepCancelled(ctx, session, err)
	}
	if err != nil {
		item, escErr := e.escalate(ctx, session, reasonGenerationUnavailable, nil)
		if escErr != nil {
			return TurnResult{}, escErr
		}
		return TurnResult{Session: session, Escalation: item, Terminal: true}, nil
	}

	result := TurnResult{Session: session, Analysis: &analysis, Terminal: true}

	switch analysis.SuggestedAction {
	case contractx.SuggestedNeedsAttention:
		reason := analysis.Reason
		if reason == "" {
			reason = "reply needs human attention"
		}
		item, err := e.escalate(ctx, session, reason, &analysis)
		if err != nil {
			return TurnResult{}, err
		}
		result.Escalation = item
		return result, nil
	case contractx.SuggestedNotInterested:
		err = session.Transition(statex.StatusEndedByCounterparty, string(analysis.SuggestedAction), e.now())
	default:
		err = session.Transition(statex.StatusEndedNormal, string(analysis.SuggestedAction), e.now())
	}
	if err != nil {
		return TurnResult{}, err
	}
	if err := e.finish(ctx, session); err != nil {
		return TurnResult{}, err
	}

	log.Info().
		Str("session_id", session.ID).
		Str("suggested_action", string(analysis.SuggestedAction)).
		Msg("email thread resolved")
	return result, nil
}

func (e *Engine) emailRequest(session *statex.Session) contractx.EmailAnalysisRequest {
	return contractx.EmailAnalysisRequest{
		SolutionDescription: session.SolutionDescription,
		LeadProfile:         session.LeadProfile,
		Thread:              session.Thread,
	}
}

// AnalyzeEmail runs the single-turn email analysis over a caller-supplied thread.
func (e *Engine) AnalyzeEmail(ctx context.Context, req contractx.EmailAnalysisRequest) (contractx.EmailAnalysisResponse, error) {
	if len(req.Thread) == 0 {
		return contractx.EmailAnalysisResponse{}, fmt.Errorf("%w: email thread is empty", contractx.ErrValidation)
	}
	return withRetry(ctx, e.generationTimeout, func(ctx context.Context) (contractx.EmailAnalysisResponse, error) {
		return e.email.Analyze(ctx, req)
	})
}

// Reanalyze re-runs the email analysis over a stored session's thread. The session
// itself is not changed.
func (e *Engine) Reanalyze(ctx context.Context, sessionID string) (contractx.EmailAnalysisResponse, error) {
	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return contractx.EmailAnalysisResponse{}, err
	}
	if session.Channel != contractx.ChannelEmail {
		return contractx.EmailAnalysisResponse{}, fmt.Errorf("%w: session %s is not an email thread", contractx.ErrValidation, sessionID)
	}
	return e.AnalyzeEmail(ctx, e.emailRequest(session))
}
