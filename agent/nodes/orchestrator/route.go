package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

const (
	NodeValidate = "validate_request"
	NodeDiscover = "discover_leads"
	NodeEnrich   = "enrich_leads"
	NodePlan     = "plan_outreach"
	NodeSave     = "save_plan"
	NodeFinalize = "finalize"
)

// RouteAfterValidate skips discovery when the caller supplied the leads.
func RouteAfterValidate(_ context.Context, in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Provided {
		return NodeEnrich, nil
	}
	return NodeDiscover, nil
}
