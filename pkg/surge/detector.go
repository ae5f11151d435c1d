package surge

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Snapshot is an address's token balance at a specific block.
type Snapshot struct {
	Address string
	Block   uint64
	Balance decimal.Decimal
}

// Pair holds the two balance observations a surge decision is made from.
type Pair struct {
	Older Snapshot
	Newer Snapshot
}

// Candidate is an address whose balance grew enough to flag.
type Candidate struct {
	Address    string
	OldBalance decimal.Decimal
	NewBalance decimal.Decimal
	Delta      decimal.Decimal
	// GrowthRatio is Delta/OldBalance. When the older balance was zero the
	// ratio is undefined and Unbounded is set instead.
	GrowthRatio decimal.Decimal
	Unbounded   bool
}

// Thresholds gate which balance growth counts as a surge. Both conditions
// must hold: the absolute increase reaches MinGrowth AND the older balance
// was below MaxPriorBalance. Established whales topping up stay out.
type Thresholds struct {
	MinGrowth       decimal.Decimal
	MaxPriorBalance decimal.Decimal
}

// Detect evaluates each pair against the thresholds. Results are ordered by
// delta descending, ties by address, so reports are stable.
func Detect(pairs []Pair, th Thresholds) []Candidate {
	var out []Candidate
	for _, p := range pairs {
		delta := p.Newer.Balance.Sub(p.Older.Balance)
		if delta.LessThan(th.MinGrowth) {
			continue
		}
		if p.Older.Balance.GreaterThanOrEqual(th.MaxPriorBalance) {
			continue
		}

		c := Candidate{
			Address:    p.Older.Address,
			OldBalance: p.Older.Balance,
			NewBalance: p.Newer.Balance,
			Delta:      delta,
		}
		if p.Older.Balance.Sign() > 0 {
			c.GrowthRatio = delta.Div(p.Older.Balance)
		} else {
			c.Unbounded = true
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Delta.Cmp(out[j].Delta); c != 0 {
			return c > 0
		}
		return out[i].Address < out[j].Address
	})
	return out
}
