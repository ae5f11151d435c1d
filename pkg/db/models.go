package db

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/surge-tracker/pkg/config"
)

// Label sources, from most to least authoritative.
const (
	SourceStatic  = "static"
	SourceCache   = "cache"
	SourceRemote  = "remote"
	SourceDefault = "default"
)

// Label categories.
const (
	CategoryExchange = "exchange"
	CategoryContract = "contract"
	CategoryWallet   = "wallet"
	CategoryUnknown  = "unknown"
)

type AddressLabel struct {
	ID         int64        `json:"id"`
	Address    string       `json:"address"`
	Chain      config.Chain `json:"chain"`
	Label      string       `json:"label"`
	Category   string       `json:"category"` // exchange | contract | wallet | unknown
	Source     string       `json:"source"`   // static | cache | remote | default
	QueryCount int64        `json:"query_count"`
	ResolvedAt time.Time    `json:"resolved_at"`
}

// IsUnknown reports whether the label carries no real information.
// Cached unknowns are re-resolved rather than trusted.
func (l AddressLabel) IsUnknown() bool {
	return l.Category == CategoryUnknown || l.Label == ""
}

type SurgeAlert struct {
	ID          int64           `json:"id"`
	Address     string          `json:"address"`
	Chain       config.Chain    `json:"chain"`
	Token       string          `json:"token"`
	OldBalance  decimal.Decimal `json:"old_balance"`
	NewBalance  decimal.Decimal `json:"new_balance"`
	Delta       decimal.Decimal `json:"delta"`
	GrowthRatio decimal.Decimal `json:"growth_ratio"`
	Unbounded   bool            `json:"unbounded"`
	Label       string          `json:"label"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
	CreatedAt   time.Time       `json:"created_at"`
}
