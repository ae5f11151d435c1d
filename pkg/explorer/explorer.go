package explorer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateLimited signals the explorer rejected a query for quota reasons.
// Callers treat it as retryable.
var ErrRateLimited = errors.New("explorer rate limit reached")

// Transfer is one token transfer event as reported by the explorer.
// (TxHash, LogIndex) uniquely identifies it within a chain.
type Transfer struct {
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
	Timestamp   time.Time
	From        string
	To          string
	Amount      decimal.Decimal // human units, decimals already applied
}

type TransferKey struct {
	TxHash   string
	LogIndex uint
}

func (t Transfer) Key() TransferKey {
	return TransferKey{TxHash: t.TxHash, LogIndex: t.LogIndex}
}

// Metadata is what the explorer knows about an address beyond raw transfers.
type Metadata struct {
	ContractName string
	IsContract   bool
	Verified     bool
}

// API is the block-explorer capability surface the rest of the pipeline
// depends on. Production uses the Etherscan v2 client; tests inject fakes.
type API interface {
	// LatestBlock returns the current chain head number.
	LatestBlock(ctx context.Context) (uint64, error)

	// BlockByTime maps a timestamp to the closest block number.
	// closest is "before" or "after".
	BlockByTime(ctx context.Context, ts time.Time, closest string) (uint64, error)

	// BlockTimestamp returns the timestamp of a block.
	BlockTimestamp(ctx context.Context, block uint64) (time.Time, error)

	// TokenTransfers returns transfers of the token contract within
	// [fromBlock, toBlock] inclusive. The bool reports whether the
	// response hit the explorer's per-query record cap, meaning more
	// records exist in the range than were returned.
	TokenTransfers(ctx context.Context, token string, fromBlock, toBlock uint64) ([]Transfer, bool, error)

	// TokenBalance returns an address's token balance at a block.
	// block 0 means latest.
	TokenBalance(ctx context.Context, token, address string, block uint64) (decimal.Decimal, error)

	// AddressMetadata looks up contract name and verification status.
	AddressMetadata(ctx context.Context, address string) (Metadata, error)
}
