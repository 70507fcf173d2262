package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type Discoverer interface {
	Discover(ctx context.Context, profile string) ([]contractx.Lead, []*contractx.SourceError, error)
}

func DiscoverLeads(ctx context.Context, in *GraphState, discoverer Discoverer) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	leads, errs, err := discoverer.Discover(ctx, in.SearchProfile)
	if err != nil {
		return nil, err
	}
	in.Leads = leads
	in.SourceErrors = errs
	return in, nil
}
