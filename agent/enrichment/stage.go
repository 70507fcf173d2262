package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	"golang.org/x/time/rate"
)

type Options struct {
	Workers        int           `envconfig:"WORKERS" split_words:"true" default:"4"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" split_words:"true" default:"30s"`

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64 `envconfig:"RATE_LIMIT_RPS" split_words:"true" default:"2"`

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration `envconfig:"BACKOFF_INITIAL" split_words:"true" default:"200ms"`
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration `envconfig:"BACKOFF_MAX" split_words:"true" default:"2s"`
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64 `envconfig:"BACKOFF_JITTER_FRAC" split_words:"true" default:"0.2"`
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// Stage adds supplementary attributes to leads. It never fails a batch: a lead
// whose lookup fails keeps whatever enrichment it already had.
type Stage struct {
	enricher contractx.Enricher
	limiter  *rate.Limiter
	opts     Options
}

func NewStage(enricher contractx.Enricher, opts Options) *Stage {
	opts = opts.withDefaults()
	s := &Stage{enricher: enricher, opts: opts}
	if opts.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return s
}

func (s *Stage) Enrich(ctx context.Context, lead contractx.Lead) contractx.Lead {
	out, _ := s.enrichOne(ctx, lead)
	return out
}

// EnrichAll returns leads in input order. Errors are advisory and ordered by lead position.
func (s *Stage) EnrichAll(ctx context.Context, leads []contractx.Lead) ([]contractx.Lead, []*contractx.EnrichmentError) {
	out := make([]contractx.Lead, len(leads))
	errs := make([]*contractx.EnrichmentError, len(leads))
	for i, l := range leads {
		out[i] = l.Clone()
	}
	if len(leads) == 0 || s.enricher == nil {
		return out, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(s.opts.Workers, len(leads))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i], errs[i] = s.enrichOne(ctx, leads[i])
			}
		}()
	}

feed:
	for i := range leads {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var advisory []*contractx.EnrichmentError
	for _, e := range errs {
		if e != nil {
			advisory = append(advisory, e)
		}
	}

	log.Info().
		Str("component", "enrichment").
		Int("leads", len(leads)).
		Int("failed", len(advisory)).
		Msg("enrichment finished")
	return out, advisory
}

func (s *Stage) enrichOne(ctx context.Context, lead contractx.Lead) (contractx.Lead, *contractx.EnrichmentError) {
	out := lead.Clone()
	if s.enricher == nil {
		return out, nil
	}

	found, err := enrichWithRetry(ctx, s.enricher, lead, s.limiter, s.opts)
	if err != nil {
		eerr := &contractx.EnrichmentError{LeadID: lead.ID, Cause: err}
		log.Warn().Err(eerr).Str("component", "enrichment").Str("lead_id", lead.ID).Msg("lead enrichment failed")
		return out, eerr
	}
	return merge(out, found), nil
}

// merge fills gaps in lead's enrichment from found; present values are never overwritten.
func merge(lead contractx.Lead, found *contractx.Enrichment) contractx.Lead {
	if found.IsEmpty() {
		return lead
	}
	if lead.Enrichment == nil {
		lead.Enrichment = &contractx.Enrichment{}
	}
	lead.Enrichment.FillFrom(found)
	return lead
}
