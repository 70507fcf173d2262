package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	openrouterx "github.com/tanpawarit/outreach-orchestrator/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// MaxPlanAttempts bounds re-asks when a plan breaks the one-step-per-lead rule.
	MaxPlanAttempts int `envconfig:"MAX_PLAN_ATTEMPTS" split_words:"true" default:"2"`

	PlannerModel       string  `envconfig:"PLANNER_MODEL" split_words:"true"`
	CallerModel        string  `envconfig:"CALLER_MODEL" split_words:"true"`
	EmailModel         string  `envconfig:"EMAIL_MODEL" split_words:"true"`
	ScoutModel         string  `envconfig:"SCOUT_MODEL" split_words:"true"`
	PlannerTemperature float32 `envconfig:"PLANNER_TEMPERATURE" split_words:"true" default:"0.2"`
	CallerTemperature  float32 `envconfig:"CALLER_TEMPERATURE" split_words:"true" default:"-1"`
	EmailTemperature   float32 `envconfig:"EMAIL_TEMPERATURE" split_words:"true" default:"0.2"`
	ScoutTemperature   float32 `envconfig:"SCOUT_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.MaxPlanAttempts < 0 {
		return fmt.Errorf("%w: max plan attempts must be >= 0", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, t float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch agentType {
	case contractx.AgentTypePlanner:
		override(c.PlannerModel, c.PlannerTemperature)
	case contractx.AgentTypeCaller:
		override(c.CallerModel, c.CallerTemperature)
	case contractx.AgentTypeEmail:
		override(c.EmailModel, c.EmailTemperature)
	case contractx.AgentTypeScout:
		override(c.ScoutModel, c.ScoutTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) PlanAttempts() int {
	if c.MaxPlanAttempts <= 0 {
		return 1
	}
	return c.MaxPlanAttempts
}
