package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	leads := in.Leads
	if leads == nil {
		leads = []contractx.Lead{}
	}
	return GraphOutput{
		Leads:            leads,
		Plan:             in.Plan,
		SourceErrors:     in.SourceErrors,
		EnrichmentErrors: in.EnrichmentErrors,
	}, nil
}
