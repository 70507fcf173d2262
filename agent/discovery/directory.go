package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	"gopkg.in/yaml.v3"
)

const maxDirectoryResponseBytes = 4 << 20

// DirectorySourceConfig describes one commercial directory reachable over HTTP.
//
// Example (YAML):
//
//	sources:
//	  - id: apollo
//	    url: https://directory.example.com/v1/people/search
//	    api_key_env: APOLLO_API_KEY
//	    auth_header: X-Api-Key
//	    rps: 2
type DirectorySourceConfig struct {
	ID         string        `yaml:"id"`
	URL        string        `yaml:"url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	AuthHeader string        `yaml:"auth_header"`
	RPS        float64       `yaml:"rps"`
	Timeout    time.Duration `yaml:"timeout"`
}

type directoryFile struct {
	Sources []DirectorySourceConfig `yaml:"sources"`
}

func LoadDirectorySources(path string) ([]DirectorySourceConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read DISCOVERY_SOURCES_FILE: %w", err)
	}

	var raw directoryFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse DISCOVERY_SOURCES_FILE YAML: %w", err)
	}

	seen := make(map[string]struct{}, len(raw.Sources))
	for i, s := range raw.Sources {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, fmt.Errorf("DISCOVERY_SOURCES_FILE: source %d missing id", i)
		}
		if strings.TrimSpace(s.URL) == "" {
			return nil, fmt.Errorf("DISCOVERY_SOURCES_FILE: source %q missing url", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("DISCOVERY_SOURCES_FILE: duplicate source id %q", id)
		}
		seen[id] = struct{}{}
		raw.Sources[i].ID = id
	}
	return raw.Sources, nil
}

// DirectorySource queries a directory API with {"query": profile} and maps its
// results to raw leads.
type DirectorySource struct {
	id         string
	url        string
	apiKey     string
	authHeader string
	client     *http.Client
}

func NewDirectorySource(cfg DirectorySourceConfig, client *http.Client) *DirectorySource {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultProviderTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	header := strings.TrimSpace(cfg.AuthHeader)
	if header == "" {
		header = "Authorization"
	}
	var key string
	if env := strings.TrimSpace(cfg.APIKeyEnv); env != "" {
		key = strings.TrimSpace(os.Getenv(env))
	}
	return &DirectorySource{
		id:         cfg.ID,
		url:        strings.TrimSpace(cfg.URL),
		apiKey:     key,
		authHeader: header,
		client:     client,
	}
}

func (s *DirectorySource) ID() string { return s.id }

type directoryPerson struct {
	Name       string `json:"name"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Company    string `json:"company"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ProfileURL string `json:"profile_url"`
	Title      string `json:"title"`
}

type directoryResponse struct {
	Results []directoryPerson `json:"results"`
}

func (s *DirectorySource) Search(ctx context.Context, profile string) ([]contractx.RawLead, error) {
	body, err := json.Marshal(map[string]string{"query": profile})
	if err != nil {
		return nil, fmt.Errorf("marshal directory query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create directory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		if strings.EqualFold(s.authHeader, "Authorization") {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		} else {
			req.Header.Set(s.authHeader, s.apiKey)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxDirectoryResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read directory response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("directory status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed directoryResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode directory response: %v", contractx.ErrSourceMalformed, err)
	}

	out := make([]contractx.RawLead, 0, len(parsed.Results))
	for _, p := range parsed.Results {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
		}
		out = append(out, contractx.RawLead{
			ProviderID: s.id,
			Name:       name,
			Company:    strings.TrimSpace(p.Company),
			Contact:    firstNonEmpty(p.Email, p.Phone, p.ProfileURL),
			JobTitle:   strings.TrimSpace(p.Title),
		})
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// DirectorySources builds one source per config entry plus the rate limits the entries ask for.
func DirectorySources(cfgs []DirectorySourceConfig, client *http.Client) ([]contractx.LeadSource, []Option) {
	sources := make([]contractx.LeadSource, 0, len(cfgs))
	var opts []Option
	for _, c := range cfgs {
		sources = append(sources, NewDirectorySource(c, client))
		if c.RPS > 0 {
			opts = append(opts, WithRateLimit(c.ID, c.RPS))
		}
	}
	return sources, opts
}
