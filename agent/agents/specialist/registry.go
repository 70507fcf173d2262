package specialist

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	llmx "github.com/tanpawarit/outreach-orchestrator/agent/llm"
	promptx "github.com/tanpawarit/outreach-orchestrator/agent/prompt"
)

type registryImpl struct {
	planner contractx.OutreachPlanner
	caller  contractx.VoiceAgent
	email   contractx.EmailAnalyst
	scout   contractx.LeadScout
}

func (r *registryImpl) Planner() contractx.OutreachPlanner {
	return r.planner
}

func (r *registryImpl) Caller() contractx.VoiceAgent {
	return r.caller
}

func (r *registryImpl) Email() contractx.EmailAnalyst {
	return r.email
}

func (r *registryImpl) Scout() contractx.LeadScout {
	return r.scout
}

// NewRegistry builds one chat model per agent role and compiles its graph.
func NewRegistry(ctx context.Context, cfg llmx.Config, scoutLimit int) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	plannerModelCfg := cfg.OpenRouterFor(contractx.AgentTypePlanner)
	plannerModel, err := plannerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create planner model: %v", contractx.ErrModelInvoke, err)
	}
	callerModelCfg := cfg.OpenRouterFor(contractx.AgentTypeCaller)
	callerModel, err := callerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create caller model: %v", contractx.ErrModelInvoke, err)
	}
	emailModelCfg := cfg.OpenRouterFor(contractx.AgentTypeEmail)
	emailModel, err := emailModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create email model: %v", contractx.ErrModelInvoke, err)
	}
	scoutModelCfg := cfg.OpenRouterFor(contractx.AgentTypeScout)
	scoutModel, err := scoutModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create scout model: %v", contractx.ErrModelInvoke, err)
	}

	planner, err := newPlanner(ctx, plannerModel, prompts.Planner, cfg.PlanAttempts())
	if err != nil {
		return nil, err
	}
	caller, err := newCaller(ctx, callerModel, prompts.Caller)
	if err != nil {
		return nil, err
	}
	email, err := newEmailAnalyst(ctx, emailModel, prompts.Email)
	if err != nil {
		return nil, err
	}
	scout, err := newScout(ctx, scoutModel, prompts.Scout, scoutLimit)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		planner: planner,
		caller:  caller,
		email:   email,
		scout:   scout,
	}, nil
}
