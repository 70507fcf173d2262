package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

const defaultScoutLimit = 10

type scoutImpl struct {
	runner *structuredRunner[scoutLLMOutput]
	limit  int
}

type scoutLLMOutput struct {
	Leads []scoutLeadOutput `json:"leads" jsonschema:"required"`
}

type scoutLeadOutput struct {
	Name     string `json:"name" jsonschema:"required"`
	Company  string `json:"company" jsonschema:"required"`
	Contact  string `json:"contact" jsonschema:"required"`
	JobTitle string `json:"job_title,omitempty"`
}

func newScout(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, limit int) (*scoutImpl, error) {
	runner, err := compileStructuredLLMGraph[scoutLLMOutput](ctx, chatModel, systemPrompt, "scout.lead_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile scout graph: %v", contractx.ErrModelInvoke, err)
	}
	if limit <= 0 {
		limit = defaultScoutLimit
	}
	return &scoutImpl{runner: runner, limit: limit}, nil
}

func (s *scoutImpl) Scout(ctx context.Context, profile string) ([]contractx.RawLead, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, fmt.Errorf("%w: search profile is required", contractx.ErrValidation)
	}

	out, err := s.runner.Invoke(ctx, map[string]any{
		"search_profile": profile,
		"limit":          s.limit,
	})
	if err != nil {
		return nil, err
	}

	leads := make([]contractx.RawLead, 0, len(out.Leads))
	for _, l := range out.Leads {
		name := strings.TrimSpace(l.Name)
		company := strings.TrimSpace(l.Company)
		contact := strings.TrimSpace(l.Contact)
		if name == "" || company == "" || contact == "" {
			continue
		}
		leads = append(leads, contractx.RawLead{
			Name:     name,
			Company:  company,
			Contact:  contact,
			JobTitle: strings.TrimSpace(l.JobTitle),
		})
		if len(leads) == s.limit {
			break
		}
	}
	return leads, nil
}
