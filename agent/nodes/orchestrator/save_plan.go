package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

func SavePlan(
	ctx context.Context,
	in *GraphState,
	records contractx.RecordStore,
) (*GraphState, error) {
	if in == nil || in.Plan == nil {
		return nil, fmt.Errorf("%w: graph plan is nil", contractx.ErrValidation)
	}
	if records == nil {
		return in, nil
	}

	if _, err := records.CreateRecord(ctx, contractx.CollectionPlans, in.OwnerID, in.Plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return in, nil
}
