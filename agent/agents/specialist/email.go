package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type emailAnalystImpl struct {
	runner *structuredRunner[emailLLMOutput]
}

type emailLLMOutput struct {
	DraftReplyBody  string `json:"draft_reply_body" jsonschema:"required"`
	SuggestedAction string `json:"suggested_action" jsonschema:"required,enum=REPLIED_AUTOMATICALLY,enum=MEETING_SCHEDULED,enum=MARK_AS_NOT_INTERESTED,enum=NEEDS_ATTENTION"`
	Reason          string `json:"reason,omitempty"`
}

func newEmailAnalyst(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*emailAnalystImpl, error) {
	runner, err := compileStructuredLLMGraph[emailLLMOutput](ctx, chatModel, systemPrompt, "email.analysis_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile email graph: %v", contractx.ErrModelInvoke, err)
	}
	return &emailAnalystImpl{runner: runner}, nil
}

func (e *emailAnalystImpl) Analyze(ctx context.Context, req contractx.EmailAnalysisRequest) (contractx.EmailAnalysisResponse, error) {
	if len(req.Thread) == 0 {
		return contractx.EmailAnalysisResponse{}, fmt.Errorf("%w: email thread is empty", contractx.ErrValidation)
	}

	out, err := e.runner.Invoke(ctx, map[string]any{
		"solution_description": req.SolutionDescription,
		"lead_profile":         req.LeadProfile,
		"thread":               req.Thread,
	})
	if err != nil {
		return contractx.EmailAnalysisResponse{}, err
	}

	action := contractx.SuggestedAction(strings.ToUpper(strings.TrimSpace(out.SuggestedAction)))
	if !action.Valid() {
		return contractx.EmailAnalysisResponse{}, fmt.Errorf("%w: invalid suggested_action %q", contractx.ErrSchemaViolation, out.SuggestedAction)
	}

	draft := strings.TrimSpace(out.DraftReplyBody)
	if draft == "" && action != contractx.SuggestedNeedsAttention {
		return contractx.EmailAnalysisResponse{}, fmt.Errorf("%w: draft_reply_body is empty for action=%s", contractx.ErrSchemaViolation, action)
	}

	return contractx.EmailAnalysisResponse{
		DraftReplyBody:  draft,
		SuggestedAction: action,
		Reason:          strings.TrimSpace(out.Reason),
	}, nil
}
