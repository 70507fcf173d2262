package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	nodex "github.com/tanpawarit/outreach-orchestrator/agent/nodes/orchestrator"
)

type Config struct {
	DefaultOwnerID string `envconfig:"DEFAULT_OWNER_ID" split_words:"true" default:"default"`
}

type CampaignRequest struct {
	OwnerID             string `json:"ownerId"`
	CampaignID          string `json:"campaignId"`
	SearchProfile       string `json:"searchProfile"`
	SolutionDescription string `json:"solutionDescription"`
}

type CampaignResult = nodex.GraphOutput

type Orchestrator struct {
	discovery  nodex.Discoverer
	enrichment nodex.LeadEnricher
	planner    contractx.OutreachPlanner
	records    contractx.RecordStore

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	defaultOwnerID string
	now            func() time.Time
}

func New(
	discovery nodex.Discoverer,
	enrichment nodex.LeadEnricher,
	planner contractx.OutreachPlanner,
	records contractx.RecordStore,
	cfg Config,
) (*Orchestrator, error) {
	if discovery == nil {
		return nil, errors.New("lead aggregator is required")
	}
	if planner == nil {
		return nil, errors.New("outreach planner is required")
	}

	owner := strings.TrimSpace(cfg.DefaultOwnerID)
	if owner == "" {
		owner = "default"
	}

	o := &Orchestrator{
		discovery:      discovery,
		enrichment:     enrichment,
		planner:        planner,
		records:        records,
		defaultOwnerID: owner,
		now:            time.Now,
	}

	graphRunner, err := o.compileCampaignGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// RunCampaign discovers, enriches and plans in one pass and stores the plan.
func (o *Orchestrator) RunCampaign(ctx context.Context, req CampaignRequest) (CampaignResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		OwnerID:             req.OwnerID,
		CampaignID:          req.CampaignID,
		SearchProfile:       req.SearchProfile,
		SolutionDescription: req.SolutionDescription,
	})
	if err != nil {
		return CampaignResult{}, err
	}

	log.Info().
		Str("campaign_id", req.CampaignID).
		Int("leads", len(out.Leads)).
		Int("source_errors", len(out.SourceErrors)).
		Int("enrichment_errors", len(out.EnrichmentErrors)).
		Bool("planned", out.Plan != nil).
		Msg("campaign run finished")
	return out, nil
}

// PlanLeads enriches and plans a caller-supplied batch.
func (o *Orchestrator) PlanLeads(ctx context.Context, ownerID string, req contractx.PlanningRequest) (contractx.OutreachPlan, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		OwnerID:             ownerID,
		CampaignID:          req.CampaignID,
		SolutionDescription: req.SolutionDescription,
		Leads:               req.LeadProfile,
		Provided:            true,
	})
	if err != nil {
		return contractx.OutreachPlan{}, err
	}
	if out.Plan == nil {
		return contractx.OutreachPlan{}, fmt.Errorf("%w: pipeline produced no plan", contractx.ErrPlanning)
	}
	return *out.Plan, nil
}

// Discover runs only the aggregator and flattens source errors for the wire.
func (o *Orchestrator) Discover(ctx context.Context, profile string) (contractx.DiscoveryResponse, error) {
	leads, errs, err := o.discovery.Discover(ctx, profile)
	if err != nil {
		return contractx.DiscoveryResponse{}, err
	}
	resp := contractx.DiscoveryResponse{Leads: leads, Errors: make([]string, 0, len(errs))}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, e.Error())
	}
	return resp, nil
}

// AcceptLeads hands leads the operator accepted to the record store.
func (o *Orchestrator) AcceptLeads(ctx context.Context, ownerID string, leads []contractx.Lead) ([]contractx.Record, error) {
	if len(leads) == 0 {
		return nil, fmt.Errorf("%w: no leads to accept", contractx.ErrValidation)
	}
	if o.records == nil {
		return nil, errors.New("record store is not configured")
	}
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		owner = o.defaultOwnerID
	}

	out := make([]contractx.Record, 0, len(leads))
	for _, l := range leads {
		if strings.TrimSpace(l.ID) == "" {
			return out, fmt.Errorf("%w: lead id is required", contractx.ErrValidation)
		}
		rec, err := o.records.CreateRecord(ctx, contractx.CollectionLeads, owner, l)
		if err != nil {
			return out, fmt.Errorf("accept lead %s: %w", l.ID, err)
		}
		out = append(out, rec)
	}

	log.Info().Str("owner_id", owner).Int("leads", len(out)).Msg("leads accepted")
	return out, nil
}
