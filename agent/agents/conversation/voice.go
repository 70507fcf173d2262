package conversation

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	statex "github.com/tanpawarit/outreach-orchestrator/agent/state"
)

func (e *Engine) advanceVoice(ctx context.Context, session *statex.Session, input TurnInput) (TurnResult, error) {
	utterance := strings.TrimSpace(input.Text)
	if utterance != "" {
		if _, err := session.AppendTurn(contractx.RoleCounterparty, utterance, nil, e.now()); err != nil {
			return TurnResult{}, err
		}
		if err := e.playback.Deliver(ctx, session.ID, session.History[len(session.History)-1]); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("playback delivery failed")
		}
	}

	req := contractx.VoiceTurnRequest{
		SolutionDescription: session.SolutionDescription,
		LeadProfile:         session.LeadProfile,
		CallScript:          session.CallScript,
		History:             session.History,
		LatestUtterance:     utterance,
	}

	reply, err := withRetry(ctx, e.generationTimeout, func(ctx context.Context) (contractx.VoiceReply, error) {
		return e.caller.Reply(ctx, req)
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

	if ctx.Err() != nil {
		return e.keepCancelled(ctx, session, ctx.Err())
	}
	index := session.NextIndex()
	audio, warning := e.synthesize(ctx, index, reply.Text)
	// A hangup during synthesis drops the agent turn.
	if ctx.Err() != nil {
		return e.keepCancelled(ctx, session, ctx.Err())
	}
	if warning != "" {
		session.AddWarning(warning)
	}

	turn, err := session.AppendTurn(contractx.RoleAgent, reply.Text, audio, e.now())
	if err != nil {
		return TurnResult{}, err
	}
	if err := e.playback.Deliver(ctx, session.ID, turn); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Int("turn", turn.Index).Msg("playback delivery failed")
	}

	if reply.EndCall {
		if err := session.Transition(statex.StatusEndedNormal, "call completed", e.now()); err != nil {
			return TurnResult{}, err
		}
	}
	if err := e.finish(ctx, session); err != nil {
		return TurnResult{}, err
	}

	return TurnResult{
		Session:   session,
		AgentTurn: &turn,
		Warning:   warning,
		Terminal:  session.IsTerminal(),
	}, nil
}

// synthesize returns the audio for text, or nil plus a warning when the speech provider fails.
func (e *Engine) synthesize(ctx context.Context, index int, text string) ([]byte, string) {
	synthCtx, cancel := context.WithTimeout(ctx, e.synthesisTimeout)
	defer cancel()

	audio, err := e.speech.Synthesize(synthCtx, text)
	if err == nil && len(audio) > 0 {
		return audio, ""
	}
	if err == nil {
		err = errors.New("empty audio")
	}

	serr := &contractx.SynthesisError{TurnIndex: index, Cause: err}
	log.Warn().Err(serr).Int("turn", index).Msg("speech synthesis degraded to text-only")
	return nil, serr.Error()
}

// VoiceTurn generates one call turn from caller-supplied context without a stored session.
func (e *Engine) VoiceTurn(ctx context.Context, req contractx.VoiceTurnRequest) (contractx.VoiceTurnResponse, error) {
	reply, err := withRetry(ctx, e.generationTimeout, func(ctx context.Context) (contractx.VoiceReply, error) {
		return e.caller.Reply(ctx, req)
	})
	if err != nil {
		return contractx.VoiceTurnResponse{}, err
	}

	resp := contractx.VoiceTurnResponse{
		ReplyText: reply.Text,
		EndCall:   reply.EndCall,
	}
	audio, warning := e.synthesize(ctx, len(req.History), reply.Text)
	if audio != nil {
		encoded := base64.StdEncoding.EncodeToString(audio)
		resp.ReplyAudio = &encoded
	}
	resp.Warning = warning
	return resp, nil
}
