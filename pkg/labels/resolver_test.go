package labels

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/surge-tracker/pkg/config"
	"github.com/surge-tracker/pkg/db"
	"github.com/surge-tracker/pkg/explorer"
)

type memCache struct {
	mu     sync.Mutex
	labels map[string]db.AddressLabel
	puts   int
}

func newMemCache() *memCache {
	return &memCache{labels: map[string]db.AddressLabel{}}
}

func (m *memCache) GetLabel(address string, chain config.Chain) (*db.AddressLabel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.labels[address]
	if !ok {
		return nil, nil
	}
	cp := l
	return &cp, nil
}

func (m *memCache) PutLabel(l db.AddressLabel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels[l.Address] = l
	m.puts++
	return nil
}

type fakeMetaAPI struct {
	meta  map[string]explorer.Metadata
	err   error
	calls int
}

func (f *fakeMetaAPI) AddressMetadata(ctx context.Context, address string) (explorer.Metadata, error) {
	f.calls++
	if f.err != nil {
		return explorer.Metadata{}, f.err
	}
	return f.meta[address], nil
}

func (f *fakeMetaAPI) LatestBlock(context.Context) (uint64, error) { return 0, errors.New("unused") }
func (f *fakeMetaAPI) BlockByTime(context.Context, time.Time, string) (uint64, error) {
	return 0, errors.New("unused")
}
func (f *fakeMetaAPI) BlockTimestamp(context.Context, uint64) (time.Time, error) {
	return time.Time{}, errors.New("unused")
}
func (f *fakeMetaAPI) TokenTransfers(context.Context, string, uint64, uint64) ([]explorer.Transfer, bool, error) {
	return nil, false, errors.New("unused")
}
func (f *fakeMetaAPI) TokenBalance(context.Context, string, string, uint64) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("unused")
}

func testConfig() *config.Config {
	return &config.Config{
		Chain:        config.ChainEthereum,
		LabelTTL:     7 * 24 * time.Hour,
		LabelTimeout: time.Second,
		LabelWorkers: 2,
	}
}

// A Binance hot wallet from the static table.
const binanceHot = "0x28c6c06298d514db089934071355e5743bf21d60"

func TestStaticTierAlwaysWins(t *testing.T) {
	cache := newMemCache()
	// A conflicting cache entry must be ignored.
	cache.PutLabel(db.AddressLabel{
		Address: binanceHot, Chain: config.ChainEthereum,
		Label: "WrongCached", Category: db.CategoryWallet,
		Source: db.SourceRemote, ResolvedAt: time.Now(),
	})
	api := &fakeMetaAPI{}
	r := NewResolver(cache, api, testConfig())

	l := r.Resolve(context.Background(), binanceHot)
	if l.Source != db.SourceStatic {
		t.Fatalf("source = %s, want static", l.Source)
	}
	if l.Label != "Binance" || l.Category != db.CategoryExchange {
		t.Fatalf("label = %s/%s, want Binance/exchange", l.Label, l.Category)
	}
	if api.calls != 0 {
		t.Fatalf("remote calls = %d, want 0 on static hit", api.calls)
	}
}

func TestFreshCacheHitSkipsRemote(t *testing.T) {
	cache := newMemCache()
	cache.PutLabel(db.AddressLabel{
		Address: "0xcached", Chain: config.ChainEthereum,
		Label: "SomePool", Category: db.CategoryContract,
		Source: db.SourceRemote, ResolvedAt: time.Now().UTC(),
	})
	api := &fakeMetaAPI{}
	r := NewResolver(cache, api, testConfig())

	l := r.Resolve(context.Background(), "0xcached")
	if l.Source != db.SourceCache {
		t.Fatalf("source = %s, want cache", l.Source)
	}
	if l.Label != "SomePool" {
		t.Fatalf("label = %s, want SomePool", l.Label)
	}
	if api.calls != 0 {
		t.Fatalf("remote calls = %d, want 0 on fresh cache hit", api.calls)
	}
}

func TestStaleCacheTriggersRemote(t *testing.T) {
	cache := newMemCache()
	cache.PutLabel(db.AddressLabel{
		Address: "0xstale", Chain: config.ChainEthereum,
		Label: "OldName", Category: db.CategoryContract,
		Source: db.SourceRemote, ResolvedAt: time.Now().UTC().Add(-8 * 24 * time.Hour),
	})
	api := &fakeMetaAPI{meta: map[string]explorer.Metadata{
		"0xstale": {ContractName: "NewName", IsContract: true, Verified: true},
	}}
	r := NewResolver(cache, api, testConfig())

	l := r.Resolve(context.Background(), "0xstale")
	if l.Source != db.SourceRemote {
		t.Fatalf("source = %s, want remote after TTL expiry", l.Source)
	}
	if l.Label != "NewName" {
		t.Fatalf("label = %s, want NewName", l.Label)
	}
	if api.calls != 1 {
		t.Fatalf("remote calls = %d, want 1", api.calls)
	}
}

func TestCachedUnknownIsNotTerminal(t *testing.T) {
	cache := newMemCache()
	cache.PutLabel(db.AddressLabel{
		Address: "0xmystery", Chain: config.ChainEthereum,
		Label: "", Category: db.CategoryUnknown,
		Source: db.SourceRemote, ResolvedAt: time.Now().UTC(),
	})
	api := &fakeMetaAPI{meta: map[string]explorer.Metadata{
		"0xmystery": {ContractName: "NowVerified", IsContract: true, Verified: true},
	}}
	r := NewResolver(cache, api, testConfig())

	l := r.Resolve(context.Background(), "0xmystery")
	if l.Source != db.SourceRemote {
		t.Fatalf("source = %s, want remote retry past cached unknown", l.Source)
	}
	if l.Label != "NowVerified" {
		t.Fatalf("label = %s, want NowVerified", l.Label)
	}
}

func TestRemoteSuccessWritesBack(t *testing.T) {
	cache := newMemCache()
	api := &fakeMetaAPI{meta: map[string]explorer.Metadata{
		"0xnew": {ContractName: "BinanceHotWallet7", IsContract: true, Verified: true},
	}}
	r := NewResolver(cache, api, testConfig())

	l := r.Resolve(context.Background(), "0xnew")
	if l.Category != db.CategoryExchange {
		t.Fatalf("category = %s, want exchange from name keyword match", l.Category)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1 write-back", cache.puts)
	}
}

func TestRemoteAffirmedUnknownIsCached(t *testing.T) {
	cache := newMemCache()
	api := &fakeMetaAPI{meta: map[string]explorer.Metadata{}} // EOA: empty metadata
	r := NewResolver(cache, api, testConfig())

	l := r.Resolve(context.Background(), "0xeoa")
	if l.Source != db.SourceRemote {
		t.Fatalf("source = %s, want remote", l.Source)
	}
	if l.Category != db.CategoryUnknown {
		t.Fatalf("category = %s, want unknown", l.Category)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want affirmed unknown written back", cache.puts)
	}
}

func TestRemoteFailureFallsToDefaultWithoutCaching(t *testing.T) {
	cache := newMemCache()
	api := &fakeMetaAPI{err: errors.New("explorer down")}
	r := NewResolver(cache, api, testConfig())

	l := r.Resolve(context.Background(), "0xunreachable")
	if l.Source != db.SourceDefault {
		t.Fatalf("source = %s, want default on remote failure", l.Source)
	}
	if l.Category != db.CategoryUnknown {
		t.Fatalf("category = %s, want unknown", l.Category)
	}
	if cache.puts != 0 {
		t.Fatalf("cache puts = %d, want 0 (transient failure must not poison cache)", cache.puts)
	}
}

func TestResolveAllCoversEveryAddress(t *testing.T) {
	cache := newMemCache()
	api := &fakeMetaAPI{meta: map[string]explorer.Metadata{}}
	r := NewResolver(cache, api, testConfig())

	addrs := []string{binanceHot, "0xAAA", "0xaaa", "0xbbb"}
	out := r.ResolveAll(context.Background(), addrs)
	if len(out) != 3 {
		t.Fatalf("resolved %d addresses, want 3 distinct (case folded)", len(out))
	}
	if out[binanceHot].Source != db.SourceStatic {
		t.Fatalf("static entry resolved as %s", out[binanceHot].Source)
	}
	if _, ok := out["0xaaa"]; !ok {
		t.Fatal("0xaaa missing from results")
	}
}
