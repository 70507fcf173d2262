package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type callerImpl struct {
	runner *structuredRunner[callerLLMOutput]
}

type callerLLMOutput struct {
	Reply   string `json:"reply" jsonschema:"required,description=What the agent says next"`
	EndCall bool   `json:"end_call" jsonschema:"required"`
}

func newCaller(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*callerImpl, error) {
	runner, err := compileStructuredLLMGraph[callerLLMOutput](ctx, chatModel, systemPrompt, "caller.turn_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile caller graph: %v", contractx.ErrModelInvoke, err)
	}
	return &callerImpl{runner: runner}, nil
}

func (c *callerImpl) Reply(ctx context.Context, req contractx.VoiceTurnRequest) (contractx.VoiceReply, error) {
	history := req.History
	if history == nil {
		history = []contractx.ConversationTurn{}
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"solution_description": req.SolutionDescription,
		"lead_profile":         req.LeadProfile,
		"call_script":          req.CallScript,
		"history":              textOnly(history),
		"latest_utterance":     strings.TrimSpace(req.LatestUtterance),
	})
	if err != nil {
		return contractx.VoiceReply{}, err
	}

	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		return contractx.VoiceReply{}, fmt.Errorf("%w: caller reply is empty", contractx.ErrSchemaViolation)
	}
	return contractx.VoiceReply{Text: reply, EndCall: out.EndCall}, nil
}

// textOnly drops audio payloads so they never reach the prompt.
func textOnly(turns []contractx.ConversationTurn) []contractx.ConversationTurn {
	out := make([]contractx.ConversationTurn, len(turns))
	for i, t := range turns {
		out[i] = contractx.ConversationTurn{Index: t.Index, Role: t.Role, Text: t.Text}
	}
	return out
}
