package surge

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/surge-tracker/pkg/explorer"
	"github.com/surge-tracker/pkg/retry"
)

// Sampler reads balance snapshots from the explorer.
type Sampler struct {
	api     explorer.API
	token   string
	workers int
	retry   retry.Policy
}

func NewSampler(api explorer.API, token string, workers int, policy retry.Policy) *Sampler {
	if workers < 1 {
		workers = 1
	}
	return &Sampler{api: api, token: token, workers: workers, retry: policy}
}

func (s *Sampler) snapshot(ctx context.Context, address string, block uint64) (Snapshot, error) {
	snap := Snapshot{Address: address, Block: block}
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		snap.Balance, err = s.api.TokenBalance(ctx, s.token, address, block)
		return err
	})
	return snap, err
}

// Pairs snapshots every address at both bounds of the window. Addresses
// whose balance cannot be read are skipped with a warning; a handful of
// failed reads should not sink an otherwise complete run.
func (s *Sampler) Pairs(ctx context.Context, addresses []string, olderBlock, newerBlock uint64) ([]Pair, []string) {
	var (
		mu       sync.Mutex
		pairs    []Pair
		warnings []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, address := range addresses {
		address := address
		g.Go(func() error {
			older, err := s.snapshot(gctx, address, olderBlock)
			if err == nil {
				var newer Snapshot
				newer, err = s.snapshot(gctx, address, newerBlock)
				if err == nil {
					mu.Lock()
					pairs = append(pairs, Pair{Older: older, Newer: newer})
					mu.Unlock()
					return nil
				}
			}

			log.Warn().Str("addr", address).Err(err).Msg("balance snapshot failed, address skipped")
			mu.Lock()
			warnings = append(warnings, "balance unavailable for "+address)
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	return pairs, warnings
}
