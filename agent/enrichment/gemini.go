package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	geminix "github.com/tanpawarit/outreach-orchestrator/pkg/gemini"
	"google.golang.org/genai"
)

// GeminiEnricher looks a lead up with a search-grounded Gemini call.
type GeminiEnricher struct {
	generate func(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

func NewGeminiEnricher(client *genai.Client, model string) *GeminiEnricher {
	return &GeminiEnricher{
		generate: func(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
			return geminix.GroundedJSON(ctx, client, model, prompt, schema)
		},
	}
}

type responseSchema struct {
	LinkedInURL string   `json:"linkedin_url"`
	JobTitle    string   `json:"job_title"`
	Interests   []string `json:"interests"`
	RecentNews  string   `json:"recent_news"`
}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"linkedin_url": {Type: genai.TypeString},
		"job_title":    {Type: genai.TypeString},
		"interests":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"recent_news":  {Type: genai.TypeString},
	},
	Required: []string{
		"linkedin_url",
		"job_title",
		"interests",
		"recent_news",
	},
}

func (e *GeminiEnricher) Enrich(ctx context.Context, lead contractx.Lead) (*contractx.Enrichment, error) {
	if strings.TrimSpace(lead.Name) == "" {
		return nil, errors.New("lead name is empty")
	}

	text, err := e.generate(ctx, buildPrompt(lead), outputSchema)
	if err != nil {
		return nil, err
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("gemini: parse structured json: %w", err)
	}

	var interests []string
	for _, i := range parsed.Interests {
		if i = strings.TrimSpace(i); i != "" {
			interests = append(interests, i)
		}
	}
	return &contractx.Enrichment{
		LinkedIn:   strings.TrimSpace(parsed.LinkedInURL),
		JobTitle:   strings.TrimSpace(parsed.JobTitle),
		Interests:  interests,
		RecentNews: strings.TrimSpace(parsed.RecentNews),
	}, nil
}

func buildPrompt(lead contractx.Lead) string {
	var b strings.Builder
	b.WriteString("Name: " + strings.TrimSpace(lead.Name) + "\n")
	if c := strings.TrimSpace(lead.Company); c != "" {
		b.WriteString("Company: " + c + "\n")
	}
	if lead.Enrichment != nil && lead.Enrichment.JobTitle != "" {
		b.WriteString("Known job title: " + lead.Enrichment.JobTitle + "\n")
	}

	return strings.TrimSpace(`
You are a data enrichment tool. Given a person and their company, use web search to find public professional information.

Return ONLY a single JSON object with these keys:
- linkedin_url (string)
- job_title (string)
- interests (list of short strings; professional topics they post or speak about)
- recent_news (string; one sentence about a recent public event involving them or their company)

Rules:
- If you cannot find a field, set it to an empty string (or an empty list for interests).
- Do not include extra keys.

` + b.String())
}
