package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

func PlanOutreach(
	ctx context.Context,
	in *GraphState,
	planner contractx.OutreachPlanner,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	plan, err := planner.Plan(ctx, in.CampaignID, in.SolutionDescription, in.Leads)
	if err != nil {
		log.Error().
			Err(err).
			Str("campaign_id", in.CampaignID).
			Int("leads", len(in.Leads)).
			Msg("outreach planning failed")
		return nil, err
	}

	in.Plan = &plan
	return in, nil
}
