package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/surge-tracker/pkg/aggregator"
	"github.com/surge-tracker/pkg/blocktime"
	"github.com/surge-tracker/pkg/config"
	"github.com/surge-tracker/pkg/db"
	"github.com/surge-tracker/pkg/explorer"
	"github.com/surge-tracker/pkg/labels"
	"github.com/surge-tracker/pkg/retry"
	"github.com/surge-tracker/pkg/scanner"
	"github.com/surge-tracker/pkg/surge"
)

// Store is the slice of persistence the pipeline touches. *db.Store
// satisfies it.
type Store interface {
	GetLabel(address string, chain config.Chain) (*db.AddressLabel, error)
	PutLabel(l db.AddressLabel) error
	InsertSurgeAlert(a db.SurgeAlert) error
}

// Result is everything one analysis run produced.
type Result struct {
	Window blocktime.TimeRange
	Blocks blocktime.BlockRange

	Totals            aggregator.Totals
	TopByCount        []*aggregator.AddressStats
	TopByVolume       []*aggregator.AddressStats
	TopLargeReceivers []aggregator.LargeReceiver
	CommonHubs        []*aggregator.AddressStats
	BusyReceivers     []*aggregator.AddressStats

	Surges []surge.Candidate
	Labels map[string]db.AddressLabel

	Fetch    *scanner.Summary
	Warnings []string
	Elapsed  time.Duration
}

// Pipeline wires the stages of one run together: resolve the window to
// blocks, plan segments, fetch and deduplicate, aggregate, detect surges,
// label what surfaced.
type Pipeline struct {
	cfg   *config.Config
	api   explorer.API
	store Store
}

func New(cfg *config.Config, api explorer.API, store Store) *Pipeline {
	return &Pipeline{cfg: cfg, api: api, store: store}
}

func (p *Pipeline) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: p.cfg.FetchRetries,
		BaseDelay:   p.cfg.FetchBaseDelay,
		Jitter:      p.cfg.FetchBaseDelay / 2,
		Retryable: func(err error) bool {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			return true
		},
		OnRetry: func(attempt int, wait time.Duration, err error) {
			log.Debug().Int("attempt", attempt).Dur("wait", wait).Err(err).Msg("retrying explorer call")
		},
	}
}

// Run executes one analysis over the given time window. A cancelled context
// returns the partial result built so far together with the context error;
// only failures that leave nothing usable return a nil result.
func (p *Pipeline) Run(ctx context.Context, tr blocktime.TimeRange) (*Result, error) {
	started := time.Now()
	policy := p.policy()

	resolver := blocktime.NewResolver(p.api, policy)
	blocks, err := resolver.Range(ctx, tr)
	if err != nil {
		return nil, err
	}
	log.Info().Uint64("from", blocks.From).Uint64("to", blocks.To).
		Uint64("width", blocks.Width()).Msg("window resolved")

	segs := scanner.Plan(blocks, p.cfg.SegmentMinutes)
	log.Info().Int("segments", len(segs)).Msg("fetch planned")

	fetcher := scanner.NewFetcher(p.api, p.cfg.TokenContract, p.cfg.FetchWorkers, policy)
	seen := scanner.NewSeenSet()
	records, sum, fetchErr := fetcher.Fetch(ctx, segs, seen)
	if fetchErr != nil && len(records) == 0 {
		return nil, fetchErr
	}

	agg := aggregator.New(p.cfg.MinAmount)
	for _, rec := range records {
		agg.Ingest(rec)
	}

	res := &Result{
		Window:            tr,
		Blocks:            blocks,
		Totals:            agg.Totals(),
		TopByCount:        agg.TopByCount(p.cfg.TopN),
		TopByVolume:       agg.TopByVolume(p.cfg.TopN),
		TopLargeReceivers: agg.TopLargeReceivers(p.cfg.TopN),
		CommonHubs:        agg.CommonHubs(p.cfg.MinCommonCounterparties),
		BusyReceivers:     agg.BusyReceivers(p.cfg.MinContractInteractions),
		Fetch:             sum,
		Warnings:          sum.Warnings(),
	}

	if fetchErr != nil {
		// Cancelled mid-fetch: aggregation above covers what arrived, but
		// surge and label stages need the network, so stop here.
		res.Elapsed = time.Since(started)
		return res, fetchErr
	}

	res.Surges, res.Warnings = p.detectSurges(ctx, agg, blocks, res.Warnings)
	res.Labels = p.resolveLabels(ctx, res)
	p.persistAlerts(res)

	res.Elapsed = time.Since(started)
	return res, nil
}

// detectSurges snapshots balances for addresses whose inflow alone could
// clear the growth threshold. Receiving less than MinGrowth over the window
// cannot produce a qualifying delta, so everyone else is skipped unqueried.
func (p *Pipeline) detectSurges(ctx context.Context, agg *aggregator.Aggregator, blocks blocktime.BlockRange, warnings []string) ([]surge.Candidate, []string) {
	var candidates []string
	for _, st := range agg.TopByVolume(0) {
		if st.Received.GreaterThanOrEqual(p.cfg.SurgeMinGrowth) {
			candidates = append(candidates, st.Address)
		}
	}
	if len(candidates) == 0 {
		return nil, warnings
	}
	log.Info().Int("candidates", len(candidates)).Msg("sampling balances for surge check")

	sampler := surge.NewSampler(p.api, p.cfg.TokenContract, p.cfg.FetchWorkers, p.policy())
	pairs, sampleWarnings := sampler.Pairs(ctx, candidates, blocks.From, blocks.To)
	warnings = append(warnings, sampleWarnings...)

	found := surge.Detect(pairs, surge.Thresholds{
		MinGrowth:       p.cfg.SurgeMinGrowth,
		MaxPriorBalance: p.cfg.SurgeMaxPriorBalance,
	})
	return found, warnings
}

// resolveLabels labels the addresses a reader of the report will actually
// see: surge candidates plus the ranked views.
func (p *Pipeline) resolveLabels(ctx context.Context, res *Result) map[string]db.AddressLabel {
	var addrs []string
	for _, c := range res.Surges {
		addrs = append(addrs, c.Address)
	}
	for _, st := range res.TopByCount {
		addrs = append(addrs, st.Address)
	}
	for _, st := range res.TopByVolume {
		addrs = append(addrs, st.Address)
	}
	for _, lr := range res.TopLargeReceivers {
		addrs = append(addrs, lr.Address)
	}
	for _, st := range res.CommonHubs {
		addrs = append(addrs, st.Address)
	}
	for _, st := range res.BusyReceivers {
		addrs = append(addrs, st.Address)
	}
	if len(addrs) == 0 {
		return nil
	}

	resolver := labels.NewResolver(p.store, p.api, p.cfg)
	return resolver.ResolveAll(ctx, addrs)
}

func (p *Pipeline) persistAlerts(res *Result) {
	for _, c := range res.Surges {
		alert := db.SurgeAlert{
			Address:     c.Address,
			Chain:       p.cfg.Chain,
			Token:       p.cfg.TokenContract,
			OldBalance:  c.OldBalance,
			NewBalance:  c.NewBalance,
			Delta:       c.Delta,
			GrowthRatio: c.GrowthRatio,
			Unbounded:   c.Unbounded,
			Label:       res.Labels[c.Address].Label,
			WindowStart: res.Window.Start,
			WindowEnd:   res.Window.End,
		}
		if err := p.store.InsertSurgeAlert(alert); err != nil {
			log.Warn().Str("addr", c.Address).Err(err).Msg("surge alert not persisted")
		}
	}
}
