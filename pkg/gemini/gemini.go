package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	"google.golang.org/genai"
)

type Config struct {
	APIKey string `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model  string `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash"`

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string `envconfig:"BASE_URL" split_words:"true"`
}

func NewClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	return genai.NewClient(ctx, cc)
}

// GroundedJSON asks the model for a single JSON object, with Google Search grounding enabled.
func GroundedJSON(ctx context.Context, client *genai.Client, model, prompt string, schema *genai.Schema) (string, error) {
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	)
	if err != nil {
		return "", ClassifyErr(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// ClassifyErr wraps rate limits, server errors and network timeouts as transient.
func ClassifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &contractx.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &contractx.TransientError{Err: err}
	}
	return err
}
