package discovery

import (
	"context"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

const scoutSourceID = "scout"

// ScoutSource is the fallback source backed by the generative lead scout.
type ScoutSource struct {
	scout contractx.LeadScout
}

func NewScoutSource(scout contractx.LeadScout) *ScoutSource {
	return &ScoutSource{scout: scout}
}

func (s *ScoutSource) ID() string { return scoutSourceID }

func (s *ScoutSource) Search(ctx context.Context, profile string) ([]contractx.RawLead, error) {
	leads, err := s.scout.Scout(ctx, profile)
	if err != nil {
		return nil, err
	}
	for i := range leads {
		leads[i].ProviderID = scoutSourceID
	}
	return leads, nil
}
