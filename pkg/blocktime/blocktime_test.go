package blocktime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/surge-tracker/pkg/explorer"
	"github.com/surge-tracker/pkg/retry"
)

// fakeChain simulates a chain with one block every 12 seconds from genesis.
type fakeChain struct {
	genesis    time.Time
	head       uint64
	directErr  error // returned by BlockByTime to force the fallback
	probeCalls int
}

func (f *fakeChain) timeOf(block uint64) time.Time {
	return f.genesis.Add(time.Duration(block-1) * 12 * time.Second)
}

func (f *fakeChain) LatestBlock(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChain) BlockByTime(ctx context.Context, ts time.Time, closest string) (uint64, error) {
	if f.directErr != nil {
		return 0, f.directErr
	}
	for b := f.head; b >= 1; b-- {
		if !f.timeOf(b).After(ts) {
			if closest == "after" && f.timeOf(b).Before(ts) && b < f.head {
				return b + 1, nil
			}
			return b, nil
		}
	}
	return 1, nil
}

func (f *fakeChain) BlockTimestamp(ctx context.Context, block uint64) (time.Time, error) {
	f.probeCalls++
	return f.timeOf(block), nil
}

func (f *fakeChain) TokenTransfers(ctx context.Context, token string, fromBlock, toBlock uint64) ([]explorer.Transfer, bool, error) {
	return nil, false, errors.New("not implemented")
}

func (f *fakeChain) TokenBalance(ctx context.Context, token, address string, block uint64) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("not implemented")
}

func (f *fakeChain) AddressMetadata(ctx context.Context, address string) (explorer.Metadata, error) {
	return explorer.Metadata{}, errors.New("not implemented")
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

func TestResolveDirect(t *testing.T) {
	chain := &fakeChain{genesis: time.Unix(1_600_000_000, 0).UTC(), head: 10_000}
	r := NewResolver(chain, testPolicy())

	ts := chain.timeOf(5_000)
	block, err := r.Resolve(context.Background(), ts, "before")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if block != 5_000 {
		t.Fatalf("block = %d, want 5000", block)
	}
}

func TestResolveFallsBackToSearch(t *testing.T) {
	chain := &fakeChain{
		genesis:   time.Unix(1_600_000_000, 0).UTC(),
		head:      100_000,
		directErr: errors.New("explorer down"),
	}
	r := NewResolver(chain, testPolicy())

	ts := chain.timeOf(70_000).Add(5 * time.Second) // between blocks 70000 and 70001
	block, err := r.Resolve(context.Background(), ts, "before")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if block != 70_000 {
		t.Fatalf("closest before = %d, want 70000", block)
	}

	after, err := r.Resolve(context.Background(), ts, "after")
	if err != nil {
		t.Fatalf("Resolve(after) error: %v", err)
	}
	if after != 70_001 {
		t.Fatalf("closest after = %d, want 70001", after)
	}

	// Halving must hold probe count near log2(head).
	if chain.probeCalls > 50 {
		t.Fatalf("probeCalls = %d, want O(log n)", chain.probeCalls)
	}
}

func TestResolveSearchClampsToHead(t *testing.T) {
	chain := &fakeChain{
		genesis:   time.Unix(1_600_000_000, 0).UTC(),
		head:      500,
		directErr: errors.New("explorer down"),
	}
	r := NewResolver(chain, testPolicy())

	future := chain.timeOf(500).Add(time.Hour)
	block, err := r.Resolve(context.Background(), future, "after")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if block != 500 {
		t.Fatalf("block = %d, want head 500", block)
	}
}

func TestRangeOrientation(t *testing.T) {
	chain := &fakeChain{genesis: time.Unix(1_600_000_000, 0).UTC(), head: 10_000}
	r := NewResolver(chain, testPolicy())

	tr := TimeRange{
		Start: chain.timeOf(100).Add(3 * time.Second),
		End:   chain.timeOf(200).Add(3 * time.Second),
	}
	br, err := r.Range(context.Background(), tr)
	if err != nil {
		t.Fatalf("Range() error: %v", err)
	}
	// Start rounds up, end rounds down: no time outside the window.
	if br.From != 101 {
		t.Fatalf("From = %d, want 101", br.From)
	}
	if br.To != 200 {
		t.Fatalf("To = %d, want 200", br.To)
	}
}

func TestRangeRejectsInvertedBounds(t *testing.T) {
	chain := &fakeChain{genesis: time.Unix(1_600_000_000, 0).UTC(), head: 10_000}
	r := NewResolver(chain, testPolicy())

	tr := TimeRange{Start: chain.timeOf(200), End: chain.timeOf(100)}
	if _, err := r.Range(context.Background(), tr); err == nil {
		t.Fatal("Range() accepted start after end")
	}
}
