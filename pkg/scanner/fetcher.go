package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/surge-tracker/pkg/explorer"
	"github.com/surge-tracker/pkg/retry"
)

// FetchError wraps a segment whose records could not be retrieved after
// retries. The caller decides whether to skip it or abort the run.
type FetchError struct {
	Seg Segment
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch segment [%d,%d]: %v", e.Seg.From, e.Seg.To, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Summary reports everything that happened besides the records themselves.
type Summary struct {
	Queries        int           // explorer calls issued
	Fetched        int           // records returned by the explorer
	Duplicates     int           // records dropped by the dedup set
	FloorTruncated []Segment     // single-block segments that still hit the cap
	Failed         []*FetchError // segments given up on after retries
	Unfetched      []Segment     // segments never attempted (cancellation)
}

// Warnings renders the non-fatal conditions a report should surface.
func (s *Summary) Warnings() []string {
	var w []string
	for _, seg := range s.FloorTruncated {
		w = append(w, fmt.Sprintf("block %d holds more transfers than one query returns; results under-count it", seg.From))
	}
	for _, fe := range s.Failed {
		w = append(w, fe.Error())
	}
	if n := len(s.Unfetched); n > 0 {
		w = append(w, fmt.Sprintf("%d segments left unfetched after cancellation", n))
	}
	return w
}

// Fetcher pulls token transfers for planned segments with bounded
// parallelism, splitting any segment whose response hit the record cap.
type Fetcher struct {
	api     explorer.API
	token   string
	workers int
	retry   retry.Policy
}

func NewFetcher(api explorer.API, token string, workers int, policy retry.Policy) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{api: api, token: token, workers: workers, retry: policy}
}

// Fetch runs the plan to completion and returns deduplicated records in
// unspecified order. Truncated segments are halved and requeued until they
// fit or reach single-block width. On cancellation the records gathered so
// far come back along with the segments never attempted.
func (f *Fetcher) Fetch(ctx context.Context, segs []Segment, seen *SeenSet) ([]explorer.Transfer, *Summary, error) {
	var (
		mu      sync.Mutex
		records []explorer.Transfer
		sum     = &Summary{}
	)

	// Segments are processed in waves: a wave fetches in parallel, and
	// every truncated segment contributes its halves to the next wave.
	// Wave count is bounded by log2 of the widest segment.
	pending := segs
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			sum.Unfetched = append(sum.Unfetched, pending...)
			return records, sum, err
		}

		var next []Segment
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.workers)

		for _, seg := range pending {
			seg := seg
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					mu.Lock()
					sum.Unfetched = append(sum.Unfetched, seg)
					mu.Unlock()
					return nil
				}

				recs, truncated, err := f.fetchSegment(gctx, seg)

				mu.Lock()
				defer mu.Unlock()
				sum.Queries++

				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						sum.Unfetched = append(sum.Unfetched, seg)
						return nil
					}
					sum.Failed = append(sum.Failed, &FetchError{Seg: seg, Err: err})
					log.Warn().Uint64("from", seg.From).Uint64("to", seg.To).Err(err).Msg("segment failed")
					return nil
				}

				if truncated {
					if left, right, ok := seg.Split(); ok {
						next = append(next, left, right)
						return nil
					}
					// single block over the cap: keep the partial page
					sum.FloorTruncated = append(sum.FloorTruncated, seg)
				}

				sum.Fetched += len(recs)
				for _, rec := range recs {
					if seen.Add(rec.Key()) {
						records = append(records, rec)
					} else {
						sum.Duplicates++
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			sum.Unfetched = append(sum.Unfetched, next...)
			return records, sum, err
		}
		pending = next
	}

	return records, sum, ctx.Err()
}

func (f *Fetcher) fetchSegment(ctx context.Context, seg Segment) ([]explorer.Transfer, bool, error) {
	var (
		recs      []explorer.Transfer
		truncated bool
	)
	err := f.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		recs, truncated, err = f.api.TokenTransfers(ctx, f.token, seg.From, seg.To)
		return err
	})
	return recs, truncated, err
}
