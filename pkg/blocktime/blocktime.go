package blocktime

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/surge-tracker/pkg/explorer"
	"github.com/surge-tracker/pkg/retry"
)

// TimeRange is a closed interval of wall-clock time, UTC.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("time range has a zero bound")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("range start %s is not before end %s",
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// BlockRange is the closed block interval [From, To].
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) Width() uint64 {
	return r.To - r.From + 1
}

// ResolutionError means a timestamp could not be mapped to a block even after
// the fallback search. The run cannot proceed without a range.
type ResolutionError struct {
	Timestamp time.Time
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve block for %s: %v", e.Timestamp.Format(time.RFC3339), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver maps timestamps to block numbers. The explorer's direct lookup is
// tried first; if it fails, a binary search over block timestamps takes over.
type Resolver struct {
	api   explorer.API
	retry retry.Policy
}

func NewResolver(api explorer.API, policy retry.Policy) *Resolver {
	return &Resolver{api: api, retry: policy}
}

// Resolve returns the block number closest to ts. closest is "before" or
// "after"; results are clamped to [1, head].
func (r *Resolver) Resolve(ctx context.Context, ts time.Time, closest string) (uint64, error) {
	var block uint64
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		block, err = r.api.BlockByTime(ctx, ts, closest)
		return err
	})
	if err == nil {
		return block, nil
	}

	log.Warn().Err(err).Time("ts", ts).Msg("direct block lookup failed, falling back to binary search")

	block, searchErr := r.search(ctx, ts, closest)
	if searchErr != nil {
		return 0, &ResolutionError{Timestamp: ts, Err: searchErr}
	}
	return block, nil
}

// Range resolves both bounds of a time range. The start maps to the closest
// block at or after it and the end to the closest block at or before it, so
// the block range never covers time outside the requested window.
func (r *Resolver) Range(ctx context.Context, tr TimeRange) (BlockRange, error) {
	if err := tr.Validate(); err != nil {
		return BlockRange{}, err
	}

	from, err := r.Resolve(ctx, tr.Start, "after")
	if err != nil {
		return BlockRange{}, err
	}
	to, err := r.Resolve(ctx, tr.End, "before")
	if err != nil {
		return BlockRange{}, err
	}
	if from > to {
		return BlockRange{}, fmt.Errorf("empty block range: no blocks between %s and %s",
			tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339))
	}
	return BlockRange{From: from, To: to}, nil
}

// search finds the greatest block whose timestamp is <= ts by halving the
// candidate interval. Each probe reads one block header.
func (r *Resolver) search(ctx context.Context, ts time.Time, closest string) (uint64, error) {
	var head uint64
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		head, err = r.api.LatestBlock(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	if head < 1 {
		return 0, fmt.Errorf("chain head is %d", head)
	}

	headTime, err := r.probe(ctx, head)
	if err != nil {
		return 0, err
	}
	if !ts.Before(headTime) {
		return head, nil
	}

	lo, hi := uint64(1), head
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		midTime, err := r.probe(ctx, mid)
		if err != nil {
			return 0, err
		}
		if !ts.Before(midTime) {
			lo = mid
		} else {
			hi = mid
		}
	}

	// lo is the last block at or before ts.
	if closest == "after" && lo < head {
		loTime, err := r.probe(ctx, lo)
		if err != nil {
			return 0, err
		}
		if loTime.Before(ts) {
			return lo + 1, nil
		}
	}
	return lo, nil
}

func (r *Resolver) probe(ctx context.Context, block uint64) (time.Time, error) {
	var ts time.Time
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		ts, err = r.api.BlockTimestamp(ctx, block)
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp of block %d: %w", block, err)
	}
	return ts, nil
}
