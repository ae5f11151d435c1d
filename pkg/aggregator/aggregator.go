package aggregator

import (
	"sort"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/shopspring/decimal"

	"github.com/surge-tracker/pkg/explorer"
)

// AddressStats accumulates per-address activity across a run.
type AddressStats struct {
	Address       string
	SentCount     int
	ReceivedCount int
	Sent          decimal.Decimal
	Received      decimal.Decimal
	FirstSeen     time.Time
	LastSeen      time.Time

	counterparties *hyperloglog.Sketch
}

func (s *AddressStats) TransferCount() int {
	return s.SentCount + s.ReceivedCount
}

func (s *AddressStats) Volume() decimal.Decimal {
	return s.Sent.Add(s.Received)
}

// CounterpartyCount estimates the number of distinct addresses this one
// moved tokens with. Estimate only; within ~1% at the cardinalities we see.
func (s *AddressStats) CounterpartyCount() uint64 {
	return s.counterparties.Estimate()
}

// Bucket edges for the amount histogram, in token units.
var bucketEdges = []struct {
	Name string
	Min  decimal.Decimal
}{
	{">10M", decimal.NewFromInt(10_000_000)},
	{"1M-10M", decimal.NewFromInt(1_000_000)},
	{"100K-1M", decimal.NewFromInt(100_000)},
	{"10K-100K", decimal.NewFromInt(10_000)},
	{"1K-10K", decimal.NewFromInt(1_000)},
}

// Totals summarizes the whole window.
type Totals struct {
	TransferCount   int
	TotalAmount     decimal.Decimal
	UniqueAddresses int
	HourHistogram   [24]int        // transfer count per UTC hour of day
	AmountBuckets   map[string]int // histogram over bucketEdges, below-1K dropped
}

// Aggregator folds transfer records into per-address stats and run totals.
// Ingest is not safe for concurrent use; the fetch layer serializes into it.
type Aggregator struct {
	minAmount decimal.Decimal // floor for the large-transfer views only
	stats     map[string]*AddressStats
	totals    Totals

	largeReceived      map[string]decimal.Decimal
	largeReceivedCount map[string]int
}

func New(minAmount decimal.Decimal) *Aggregator {
	return &Aggregator{
		minAmount:          minAmount,
		stats:              map[string]*AddressStats{},
		largeReceived:      map[string]decimal.Decimal{},
		largeReceivedCount: map[string]int{},
	}
}

func (a *Aggregator) addr(address string) *AddressStats {
	st, ok := a.stats[address]
	if !ok {
		st = &AddressStats{
			Address:        address,
			counterparties: hyperloglog.New14(),
		}
		a.stats[address] = st
	}
	return st
}

// Ingest folds one deduplicated record into the running aggregates.
// Every update is O(1); snapshots pay the sorting cost instead.
func (a *Aggregator) Ingest(rec explorer.Transfer) {
	sender := a.addr(rec.From)
	sender.SentCount++
	sender.Sent = sender.Sent.Add(rec.Amount)
	sender.counterparties.Insert([]byte(rec.To))
	touchSeen(sender, rec.Timestamp)

	receiver := a.addr(rec.To)
	receiver.ReceivedCount++
	receiver.Received = receiver.Received.Add(rec.Amount)
	receiver.counterparties.Insert([]byte(rec.From))
	touchSeen(receiver, rec.Timestamp)

	a.totals.TransferCount++
	a.totals.TotalAmount = a.totals.TotalAmount.Add(rec.Amount)
	if !rec.Timestamp.IsZero() {
		a.totals.HourHistogram[rec.Timestamp.UTC().Hour()]++
	}
	if a.totals.AmountBuckets == nil {
		a.totals.AmountBuckets = map[string]int{}
	}
	for _, b := range bucketEdges {
		if rec.Amount.GreaterThanOrEqual(b.Min) {
			a.totals.AmountBuckets[b.Name]++
			break
		}
	}

	if rec.Amount.GreaterThanOrEqual(a.minAmount) {
		a.largeReceived[rec.To] = a.largeReceived[rec.To].Add(rec.Amount)
		a.largeReceivedCount[rec.To]++
	}
}

func touchSeen(st *AddressStats, ts time.Time) {
	if ts.IsZero() {
		return
	}
	if st.FirstSeen.IsZero() || ts.Before(st.FirstSeen) {
		st.FirstSeen = ts
	}
	if ts.After(st.LastSeen) {
		st.LastSeen = ts
	}
}

func (a *Aggregator) Totals() Totals {
	t := a.totals
	t.UniqueAddresses = len(a.stats)
	return t
}

func (a *Aggregator) Stats(address string) (*AddressStats, bool) {
	st, ok := a.stats[address]
	return st, ok
}

func (a *Aggregator) all() []*AddressStats {
	out := make([]*AddressStats, 0, len(a.stats))
	for _, st := range a.stats {
		out = append(out, st)
	}
	return out
}

// TopByCount ranks addresses by total transfer count, ties broken by
// address ascending so output is stable across runs.
func (a *Aggregator) TopByCount(n int) []*AddressStats {
	out := a.all()
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransferCount() != out[j].TransferCount() {
			return out[i].TransferCount() > out[j].TransferCount()
		}
		return out[i].Address < out[j].Address
	})
	return clip(out, n)
}

// TopByVolume ranks addresses by sent+received amount.
func (a *Aggregator) TopByVolume(n int) []*AddressStats {
	out := a.all()
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Volume().Cmp(out[j].Volume()); c != 0 {
			return c > 0
		}
		return out[i].Address < out[j].Address
	})
	return clip(out, n)
}

// LargeReceiver is an address ranked by inflows at or above the floor.
type LargeReceiver struct {
	Address  string
	Count    int
	Received decimal.Decimal
}

// TopLargeReceivers ranks receivers by amount received in transfers at or
// above the configured floor. Counts elsewhere still include every transfer.
func (a *Aggregator) TopLargeReceivers(n int) []LargeReceiver {
	out := make([]LargeReceiver, 0, len(a.largeReceived))
	for address, amt := range a.largeReceived {
		out = append(out, LargeReceiver{
			Address:  address,
			Count:    a.largeReceivedCount[address],
			Received: amt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Received.Cmp(out[j].Received); c != 0 {
			return c > 0
		}
		return out[i].Address < out[j].Address
	})
	return clip(out, n)
}

// CommonHubs returns addresses whose distinct counterparty estimate is at
// least min, ordered by that estimate. These are the funnels several flows
// pass through: deposit addresses, routers, mixers.
func (a *Aggregator) CommonHubs(min int) []*AddressStats {
	var out []*AddressStats
	for _, st := range a.stats {
		if st.CounterpartyCount() >= uint64(min) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CounterpartyCount() != out[j].CounterpartyCount() {
			return out[i].CounterpartyCount() > out[j].CounterpartyCount()
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// BusyReceivers returns addresses with at least min inbound transfers,
// busiest first. High inbound counts mark contracts and deposit flows.
func (a *Aggregator) BusyReceivers(min int) []*AddressStats {
	var out []*AddressStats
	for _, st := range a.stats {
		if st.ReceivedCount >= min {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceivedCount != out[j].ReceivedCount {
			return out[i].ReceivedCount > out[j].ReceivedCount
		}
		return out[i].Address < out[j].Address
	})
	return out
}

func clip[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
