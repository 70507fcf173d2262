package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	geminix "github.com/tanpawarit/outreach-orchestrator/pkg/gemini"
	"google.golang.org/genai"
)

const searchSourceID = "search"

type groundedFunc func(ctx context.Context, prompt string, schema *genai.Schema) (string, error)

// SearchSource finds people through a search-grounded Gemini call.
type SearchSource struct {
	generate groundedFunc
	limit    int
}

func NewSearchSource(client *genai.Client, model string, limit int) *SearchSource {
	return &SearchSource{
		generate: func(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
			return geminix.GroundedJSON(ctx, client, model, prompt, schema)
		},
		limit: limit,
	}
}

func (s *SearchSource) ID() string { return searchSourceID }

type searchResponse struct {
	Leads []struct {
		Name     string `json:"name"`
		Company  string `json:"company"`
		Contact  string `json:"contact"`
		JobTitle string `json:"job_title"`
	} `json:"leads"`
}

var searchSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"leads": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":      {Type: genai.TypeString},
					"company":   {Type: genai.TypeString},
					"contact":   {Type: genai.TypeString},
					"job_title": {Type: genai.TypeString},
				},
				Required: []string{"name", "company", "contact", "job_title"},
			},
		},
	},
	Required: []string{"leads"},
}

func (s *SearchSource) Search(ctx context.Context, profile string) ([]contractx.RawLead, error) {
	text, err := s.generate(ctx, searchPrompt(profile, s.limit), searchSchema)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse search json: %v", contractx.ErrSourceMalformed, err)
	}

	out := make([]contractx.RawLead, 0, len(parsed.Leads))
	for _, l := range parsed.Leads {
		out = append(out, contractx.RawLead{
			ProviderID: searchSourceID,
			Name:       strings.TrimSpace(l.Name),
			Company:    strings.TrimSpace(l.Company),
			Contact:    strings.TrimSpace(l.Contact),
			JobTitle:   strings.TrimSpace(l.JobTitle),
		})
	}
	return out, nil
}

func searchPrompt(profile string, limit int) string {
	if limit <= 0 {
		limit = defaultMaxLeads
	}
	return strings.TrimSpace(fmt.Sprintf(`
You are a lead research tool. Use web search to find real people matching the profile below.

Return ONLY a single JSON object with key "leads": a list of at most %d objects with these keys:
- name (string)
- company (string)
- contact (string; a public business email, phone number or profile URL)
- job_title (string)

Rules:
- Only include people you found evidence for. Skip anyone without a contact.
- If you cannot find a field other than contact, set it to an empty string.

Profile: %s
`, limit, profile))
}
