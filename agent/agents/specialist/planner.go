package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type plannerImpl struct {
	runner      *structuredRunner[plannerLLMOutput]
	maxAttempts int
	now         func() time.Time
}

type plannerLLMOutput struct {
	Steps []plannerStepOutput `json:"steps" jsonschema:"required"`
}

type plannerStepOutput struct {
	LeadID    string `json:"lead_id" jsonschema:"required"`
	Action    string `json:"action" jsonschema:"required,enum=EMAIL,enum=CALL,enum=DO_NOTHING"`
	Reasoning string `json:"reasoning" jsonschema:"required"`
}

func newPlanner(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, maxAttempts int) (*plannerImpl, error) {
	runner, err := compileStructuredLLMGraph[plannerLLMOutput](ctx, chatModel, systemPrompt, "planner.outreach_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile planner graph: %v", contractx.ErrModelInvoke, err)
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &plannerImpl{runner: runner, maxAttempts: maxAttempts, now: time.Now}, nil
}

func (p *plannerImpl) Plan(ctx context.Context, campaignID, solutionDescription string, leads []contractx.Lead) (contractx.OutreachPlan, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return contractx.OutreachPlan{}, fmt.Errorf("%w: campaign id is required", contractx.ErrValidation)
	}

	plan := contractx.OutreachPlan{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		Steps:      []contractx.OutreachPlanStep{},
		CreatedAt:  p.now().UTC(),
	}
	if len(leads) == 0 {
		return plan, nil
	}

	byID := make(map[string]contractx.Lead, len(leads))
	for _, l := range leads {
		if strings.TrimSpace(l.ID) == "" {
			return contractx.OutreachPlan{}, fmt.Errorf("%w: lead id is required", contractx.ErrValidation)
		}
		if _, dup := byID[l.ID]; dup {
			return contractx.OutreachPlan{}, fmt.Errorf("%w: duplicate lead id %q in batch", contractx.ErrValidation, l.ID)
		}
		byID[l.ID] = l
	}

	var feedback []string
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		payload := map[string]any{
			"campaign_id":          campaignID,
			"solution_description": solutionDescription,
			"leads":                leads,
		}
		if len(feedback) > 0 {
			payload["feedback"] = feedback
		}

		out, err := p.runner.Invoke(ctx, payload)
		if err != nil {
			return contractx.OutreachPlan{}, fmt.Errorf("%w: %w", contractx.ErrPlanning, err)
		}

		decisions, err := validatePlannerOutput(out, byID)
		if err == nil {
			for _, l := range leads {
				d := decisions[l.ID]
				plan.Steps = append(plan.Steps, contractx.OutreachPlanStep{
					LeadID:     l.ID,
					Action:     d.action,
					Reasoning:  d.reasoning,
					Enrichment: l.Enrichment.Clone(),
				})
			}
			return plan, nil
		}

		lastErr = err
		feedback = validationFeedback(err)
		log.Warn().
			Str("campaign_id", campaignID).
			Int("attempt", attempt).
			Err(err).
			Msg("planner response rejected")
	}

	return contractx.OutreachPlan{}, fmt.Errorf("%w: %w", contractx.ErrPlanning, lastErr)
}

type decision struct {
	action    contractx.Action
	reasoning string
}

func validatePlannerOutput(out plannerLLMOutput, leads map[string]contractx.Lead) (map[string]decision, error) {
	var problems []error
	decisions := make(map[string]decision, len(out.Steps))

	for _, step := range out.Steps {
		id := strings.TrimSpace(step.LeadID)
		if _, ok := leads[id]; !ok {
			problems = append(problems, fmt.Errorf("unknown lead_id %q", id))
			continue
		}
		if _, dup := decisions[id]; dup {
			problems = append(problems, fmt.Errorf("lead_id %q appears more than once", id))
			continue
		}

		action := contractx.Action(strings.ToUpper(strings.TrimSpace(step.Action)))
		switch action {
		case contractx.ActionEmail, contractx.ActionCall, contractx.ActionDoNothing:
		case contractx.ActionFollowUp:
			problems = append(problems, fmt.Errorf("lead_id %q: FOLLOW_UP is not allowed in an initial plan", id))
			continue
		default:
			problems = append(problems, fmt.Errorf("lead_id %q: invalid action %q", id, step.Action))
			continue
		}

		reasoning := strings.TrimSpace(step.Reasoning)
		if reasoning == "" {
			problems = append(problems, fmt.Errorf("lead_id %q: reasoning is empty", id))
			continue
		}
		decisions[id] = decision{action: action, reasoning: reasoning}
	}

	for id := range leads {
		if _, ok := decisions[id]; !ok {
			if !hasProblemFor(problems, id) {
				problems = append(problems, fmt.Errorf("lead_id %q is missing", id))
			}
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", contractx.ErrSchemaViolation, errors.Join(problems...))
	}
	return decisions, nil
}

func hasProblemFor(problems []error, id string) bool {
	needle := fmt.Sprintf("%q", id)
	for _, p := range problems {
		if strings.Contains(p.Error(), needle) {
			return true
		}
	}
	return false
}

func validationFeedback(err error) []string {
	var out []string
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, contractx.ErrSchemaViolation.Error()+":"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
