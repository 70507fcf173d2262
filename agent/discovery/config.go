package discovery

import "time"

type Config struct {
	MaxLeads        int           `envconfig:"MAX_LEADS" split_words:"true" default:"10"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" split_words:"true" default:"20s"`

	// SourcesFile points at a YAML list of directory sources. Empty disables them.
	SourcesFile string `envconfig:"SOURCES_FILE" split_words:"true"`

	SearchEnabled bool    `envconfig:"SEARCH_ENABLED" split_words:"true" default:"true"`
	SearchRPS     float64 `envconfig:"SEARCH_RPS" split_words:"true" default:"1"`
	ScoutEnabled  bool    `envconfig:"SCOUT_ENABLED" split_words:"true" default:"true"`
}

func (c Config) Options() []Option {
	return []Option{
		WithMaxLeads(c.MaxLeads),
		WithProviderTimeout(c.ProviderTimeout),
		WithRateLimit(searchSourceID, c.SearchRPS),
	}
}
