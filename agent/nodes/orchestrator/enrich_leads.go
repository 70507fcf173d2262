package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type LeadEnricher interface {
	EnrichAll(ctx context.Context, leads []contractx.Lead) ([]contractx.Lead, []*contractx.EnrichmentError)
}

func EnrichLeads(ctx context.Context, in *GraphState, enricher LeadEnricher) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if enricher == nil || len(in.Leads) == 0 {
		return in, nil
	}

	in.Leads, in.EnrichmentErrors = enricher.EnrichAll(ctx, in.Leads)
	return in, nil
}
