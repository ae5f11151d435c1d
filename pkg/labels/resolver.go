package labels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/surge-tracker/pkg/config"
	"github.com/surge-tracker/pkg/db"
	"github.com/surge-tracker/pkg/explorer"
)

// Cache is the persistence surface the resolver needs. *db.Store satisfies
// it; tests substitute an in-memory map.
type Cache interface {
	GetLabel(address string, chain config.Chain) (*db.AddressLabel, error)
	PutLabel(l db.AddressLabel) error
}

// RemoteLabelError marks a failed remote lookup. Resolution still succeeds
// with a default label; the error is only surfaced as a warning.
type RemoteLabelError struct {
	Address string
	Err     error
}

func (e *RemoteLabelError) Error() string {
	return fmt.Sprintf("remote label for %s: %v", e.Address, e.Err)
}

func (e *RemoteLabelError) Unwrap() error { return e.Err }

// Resolver assigns labels to addresses through four tiers, cheapest first:
// static table, sqlite cache, remote explorer lookup, then a default.
type Resolver struct {
	cache   Cache
	api     explorer.API
	chain   config.Chain
	ttl     time.Duration
	timeout time.Duration
	workers int
}

func NewResolver(cache Cache, api explorer.API, cfg *config.Config) *Resolver {
	workers := cfg.LabelWorkers
	if workers < 1 {
		workers = 1
	}
	return &Resolver{
		cache:   cache,
		api:     api,
		chain:   cfg.Chain,
		ttl:     cfg.LabelTTL,
		timeout: cfg.LabelTimeout,
		workers: workers,
	}
}

// Resolve never fails: every tier miss falls through to the next, ending at
// a default label. The returned label's Source records which tier answered.
func (r *Resolver) Resolve(ctx context.Context, address string) db.AddressLabel {
	address = strings.ToLower(address)

	if known, ok := config.LookupKnownAddress(address); ok {
		return db.AddressLabel{
			Address:    address,
			Chain:      r.chain,
			Label:      known.Label,
			Category:   known.Category,
			Source:     db.SourceStatic,
			ResolvedAt: time.Now().UTC(),
		}
	}

	if cached := r.fromCache(address); cached != nil {
		return *cached
	}

	if resolved := r.fromRemote(ctx, address); resolved != nil {
		return *resolved
	}

	// Default tier: not cached, so a later run with a healthy remote can
	// still upgrade this address.
	return db.AddressLabel{
		Address:    address,
		Chain:      r.chain,
		Label:      "Unknown",
		Category:   db.CategoryUnknown,
		Source:     db.SourceDefault,
		ResolvedAt: time.Now().UTC(),
	}
}

func (r *Resolver) fromCache(address string) *db.AddressLabel {
	cached, err := r.cache.GetLabel(address, r.chain)
	if err != nil {
		log.Warn().Str("addr", address).Err(err).Msg("label cache read failed")
		return nil
	}
	if cached == nil {
		return nil
	}
	if time.Since(cached.ResolvedAt) > r.ttl {
		return nil
	}
	// A cached unknown is never a terminal answer. Skipping it keeps the
	// remote tier retrying until the address resolves to something real,
	// instead of an early false negative sticking for the whole TTL.
	if cached.IsUnknown() {
		return nil
	}
	cached.Source = db.SourceCache
	return cached
}

func (r *Resolver) fromRemote(ctx context.Context, address string) *db.AddressLabel {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	meta, err := r.api.AddressMetadata(ctx, address)
	if err != nil {
		rle := &RemoteLabelError{Address: address, Err: err}
		log.Warn().Err(rle).Msg("label lookup degraded to default")
		return nil
	}

	l := db.AddressLabel{
		Address:    address,
		Chain:      r.chain,
		Source:     db.SourceRemote,
		ResolvedAt: time.Now().UTC(),
	}
	l.Label, l.Category = categorize(meta)

	// Affirmed unknowns are written back too, so the cache records when
	// the remote was last consulted for the address.
	if err := r.cache.PutLabel(l); err != nil {
		log.Warn().Str("addr", address).Err(err).Msg("label cache write failed")
	}
	return &l
}

// ResolveAll labels a batch concurrently. Output maps lowercased address to
// its label and always has one entry per distinct input.
func (r *Resolver) ResolveAll(ctx context.Context, addresses []string) map[string]db.AddressLabel {
	var mu sync.Mutex
	out := make(map[string]db.AddressLabel, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, address := range addresses {
		address := strings.ToLower(address)
		mu.Lock()
		_, dup := out[address]
		if !dup {
			out[address] = db.AddressLabel{} // reserve
		}
		mu.Unlock()
		if dup {
			continue
		}

		g.Go(func() error {
			l := r.Resolve(gctx, address)
			mu.Lock()
			out[address] = l
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	return out
}

var exchangeKeywords = []string{
	"binance", "coinbase", "okx", "kucoin", "kraken",
	"bitfinex", "huobi", "gate", "bybit", "exchange",
}

// categorize maps explorer metadata to a label and category.
func categorize(meta explorer.Metadata) (label, category string) {
	if meta.ContractName != "" {
		lower := strings.ToLower(meta.ContractName)
		for _, kw := range exchangeKeywords {
			if strings.Contains(lower, kw) {
				return meta.ContractName, db.CategoryExchange
			}
		}
		return meta.ContractName, db.CategoryContract
	}
	if meta.IsContract {
		return "Contract", db.CategoryContract
	}
	return "", db.CategoryUnknown
}
