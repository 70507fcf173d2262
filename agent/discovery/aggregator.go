package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultMaxLeads        = 10
	defaultProviderTimeout = 20 * time.Second
)

// Aggregator fans a search profile out to every lead source and merges what
// comes back into one deduplicated batch.
type Aggregator struct {
	sources  []contractx.LeadSource
	limiters map[string]*rate.Limiter
	maxLeads int
	timeout  time.Duration
}

type Option func(*Aggregator)

func WithMaxLeads(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxLeads = n
		}
	}
}

func WithProviderTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRateLimit caps calls to one source at rps requests per second.
func WithRateLimit(sourceID string, rps float64) Option {
	return func(a *Aggregator) {
		if rps > 0 && strings.TrimSpace(sourceID) != "" {
			a.limiters[sourceID] = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func NewAggregator(sources []contractx.LeadSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		limiters: make(map[string]*rate.Limiter),
		maxLeads: defaultMaxLeads,
		timeout:  defaultProviderTimeout,
	}
	for _, s := range sources {
		if s != nil {
			a.sources = append(a.sources, s)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

type settlement struct {
	sourceID string
	leads    []contractx.RawLead
	err      error
}

// Discover never fails because of a source: failures come back as SourceErrors
// next to whatever leads the other sources produced.
func (a *Aggregator) Discover(ctx context.Context, profile string) ([]contractx.Lead, []*contractx.SourceError, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, nil, fmt.Errorf("%w: search profile is required", contractx.ErrValidation)
	}

	var (
		mu      sync.Mutex
		settled = make([]settlement, 0, len(a.sources))
		g       errgroup.Group
	)
	for _, src := range a.sources {
		g.Go(func() error {
			leads, err := a.search(ctx, src, profile)
			mu.Lock()
			settled = append(settled, settlement{sourceID: src.ID(), leads: leads, err: err})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	leads, errs := a.merge(settled)

	log.Info().
		Str("component", "discovery").
		Int("sources", len(a.sources)).
		Int("leads", len(leads)).
		Int("source_errors", len(errs)).
		Msg("discovery settled")
	return leads, errs, nil
}

type searchResult struct {
	leads []contractx.RawLead
	err   error
}

// search bounds one provider call by the provider timeout. A provider that
// ignores its context is abandoned at the deadline and its late result dropped.
func (a *Aggregator) search(ctx context.Context, src contractx.LeadSource, profile string) ([]contractx.RawLead, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if l, ok := a.limiters[src.ID()]; ok {
		if err := l.Wait(callCtx); err != nil {
			return nil, err
		}
	}

	done := make(chan searchResult, 1)
	go func() {
		var res searchResult
		defer func() {
			if r := recover(); r != nil {
				res = searchResult{err: fmt.Errorf("%w: panic: %v", contractx.ErrSourceMalformed, r)}
			}
			done <- res
		}()
		res.leads, res.err = src.Search(callCtx, profile)
	}()

	select {
	case res := <-done:
		if res.err == nil && callCtx.Err() != nil {
			return nil, callCtx.Err()
		}
		return res.leads, res.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// merge walks sources in settlement order. The first raw lead seen for a contact
// key fixes name, company and contact; later ones only add a missing job title.
func (a *Aggregator) merge(settled []settlement) ([]contractx.Lead, []*contractx.SourceError) {
	var (
		leads  []contractx.Lead
		errs   []*contractx.SourceError
		byKey  = make(map[string]int)
		usedID = make(map[string]int)
	)

	for _, s := range settled {
		if s.err != nil {
			serr := &contractx.SourceError{ProviderID: s.sourceID, Cause: s.err}
			log.Warn().Err(serr).Str("component", "discovery").Msg("lead source failed")
			errs = append(errs, serr)
			continue
		}

		valid := 0
		for _, raw := range s.leads {
			if raw.ProviderID == "" {
				raw.ProviderID = s.sourceID
			}
			key := raw.ContactKey()
			name := strings.TrimSpace(raw.Name)
			if key == "" || name == "" {
				continue
			}
			valid++

			if i, ok := byKey[key]; ok {
				fillGaps(&leads[i], raw)
				continue
			}

			lead := contractx.Lead{
				Name:    name,
				Company: strings.TrimSpace(raw.Company),
				Contact: strings.TrimSpace(raw.Contact),
			}
			if title := strings.TrimSpace(raw.JobTitle); title != "" {
				lead.Enrichment = &contractx.Enrichment{JobTitle: title}
			}
			lead.ID = uniqueID(contractx.LeadID(lead.Name, lead.Company), usedID)

			byKey[key] = len(leads)
			leads = append(leads, lead)
		}

		if len(s.leads) > 0 && valid == 0 {
			serr := &contractx.SourceError{
				ProviderID: s.sourceID,
				Cause:      fmt.Errorf("%w: %d leads without name or contact", contractx.ErrSourceMalformed, len(s.leads)),
			}
			log.Warn().Err(serr).Str("component", "discovery").Msg("lead source returned nothing usable")
			errs = append(errs, serr)
		}
	}

	if len(leads) > a.maxLeads {
		leads = leads[:a.maxLeads]
	}
	if leads == nil {
		leads = []contractx.Lead{}
	}
	return leads, errs
}

func fillGaps(lead *contractx.Lead, raw contractx.RawLead) {
	title := strings.TrimSpace(raw.JobTitle)
	if title == "" {
		return
	}
	if lead.Enrichment == nil {
		lead.Enrichment = &contractx.Enrichment{}
	}
	lead.Enrichment.FillFrom(&contractx.Enrichment{JobTitle: title})
}

func uniqueID(base string, used map[string]int) string {
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base
	}
	id := base + "-" + strconv.Itoa(n+1)
	for used[id] > 0 {
		n++
		id = base + "-" + strconv.Itoa(n+1)
	}
	used[id] = 1
	return id
}
