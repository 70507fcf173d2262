package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

type GraphInput struct {
	OwnerID             string
	CampaignID          string
	SearchProfile       string
	SolutionDescription string

	// Leads, when Provided is set, replaces discovery with a caller-supplied batch.
	Leads    []contractx.Lead
	Provided bool
}

type GraphOutput struct {
	Leads            []contractx.Lead             `json:"leads"`
	Plan             *contractx.OutreachPlan      `json:"plan,omitempty"`
	SourceErrors     []*contractx.SourceError     `json:"-"`
	EnrichmentErrors []*contractx.EnrichmentError `json:"-"`
}

type GraphState struct {
	OwnerID             string
	CampaignID          string
	SearchProfile       string
	SolutionDescription string
	Provided            bool
	Now                 time.Time

	Leads            []contractx.Lead
	SourceErrors     []*contractx.SourceError
	EnrichmentErrors []*contractx.EnrichmentError
	Plan             *contractx.OutreachPlan
}

func ValidateRequest(in GraphInput, defaultOwnerID string, nowFn func() time.Time) (*GraphState, error) {
	campaignID := strings.TrimSpace(in.CampaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaign id is required", contractx.ErrValidation)
	}

	profile := strings.TrimSpace(in.SearchProfile)
	if !in.Provided && profile == "" {
		return nil, fmt.Errorf("%w: search profile is required", contractx.ErrValidation)
	}

	owner := strings.TrimSpace(in.OwnerID)
	if owner == "" {
		owner = defaultOwnerID
	}

	st := &GraphState{
		OwnerID:             owner,
		CampaignID:          campaignID,
		SearchProfile:       profile,
		SolutionDescription: strings.TrimSpace(in.SolutionDescription),
		Provided:            in.Provided,
		Now:                 nowFn().UTC(),
	}
	if in.Provided {
		st.Leads = make([]contractx.Lead, 0, len(in.Leads))
		for _, l := range in.Leads {
			st.Leads = append(st.Leads, l.Clone())
		}
	}
	return st, nil
}
