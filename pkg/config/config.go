package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
	ChainBSC      Chain = "bsc"
)

func AllChains() []Chain {
	return []Chain{ChainEthereum, ChainBase, ChainBSC}
}

// USDT on Ethereum mainnet, the default token under analysis.
const DefaultTokenContract = "0xdac17f958d2ee523a2206206994597c13d831ec7"

type Config struct {
	Chain         Chain
	TokenContract string
	TokenDecimals int

	// Block explorer API
	ExplorerKeys map[Chain]string
	EVMRPC       map[Chain]string

	// Fetch behavior
	SegmentMinutes    int // initial segment width in wall-clock minutes
	MaxRecordsPerPage int // explorer hard cap per query
	FetchWorkers      int
	FetchRetries      int
	FetchBaseDelay    time.Duration

	// Aggregation
	MinAmount decimal.Decimal // receiver-side large-transfer floor

	// Surge thresholds
	SurgeMinGrowth       decimal.Decimal // required balance increase over the window
	SurgeMaxPriorBalance decimal.Decimal // older balance must be strictly below this

	// Derived views
	MinCommonCounterparties int
	MinContractInteractions int
	TopN                    int

	// Labels
	LabelTTL     time.Duration
	LabelWorkers int
	LabelTimeout time.Duration

	// DB
	DBPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Chain:         Chain(envOr("CHAIN", string(ChainEthereum))),
		TokenContract: strings.ToLower(envOr("TOKEN_CONTRACT", DefaultTokenContract)),
		TokenDecimals: envInt("TOKEN_DECIMALS", 6),

		SegmentMinutes:    envInt("SEGMENT_MINUTES", 10),
		MaxRecordsPerPage: envInt("MAX_RECORDS_PER_PAGE", 10000),
		FetchWorkers:      envInt("FETCH_WORKERS", 4),
		FetchRetries:      envInt("FETCH_RETRIES", 3),
		FetchBaseDelay:    time.Duration(envInt("FETCH_BASE_DELAY_MS", 500)) * time.Millisecond,

		MinAmount: envDecimal("MIN_AMOUNT", "10000"),

		SurgeMinGrowth:       envDecimal("SURGE_MIN_GROWTH", "5000000"),
		SurgeMaxPriorBalance: envDecimal("SURGE_MAX_PRIOR_BALANCE", "100000"),

		MinCommonCounterparties: envInt("MIN_COMMON_COUNTERPARTIES", 2),
		MinContractInteractions: envInt("MIN_CONTRACT_INTERACTIONS", 10),
		TopN:                    envInt("TOP_N", 20),

		LabelTTL:     time.Duration(envInt("LABEL_TTL_HOURS", 168)) * time.Hour,
		LabelWorkers: envInt("LABEL_WORKERS", 4),
		LabelTimeout: time.Duration(envInt("LABEL_TIMEOUT_SECONDS", 10)) * time.Second,

		DBPath: envOr("DB_PATH", "surge_tracker.db"),
	}

	cfg.EVMRPC = map[Chain]string{
		ChainEthereum: envOr("ETH_RPC_URL", "https://eth.llamarpc.com"),
		ChainBase:     envOr("BASE_RPC_URL", "https://mainnet.base.org"),
		ChainBSC:      envOr("BSC_RPC_URL", "https://bsc-dataseed.binance.org"),
	}

	cfg.ExplorerKeys = map[Chain]string{
		ChainEthereum: os.Getenv("ETHERSCAN_API_KEY"),
		ChainBase:     envOr("BASESCAN_API_KEY", os.Getenv("ETHERSCAN_API_KEY")),
		ChainBSC:      envOr("BSCSCAN_API_KEY", os.Getenv("ETHERSCAN_API_KEY")),
	}

	return cfg, nil
}

func (c *Config) GetExplorerURL(chain Chain) string {
	// Etherscan v2 serves every chain through one endpoint, routed by chainid.
	return "https://api.etherscan.io/v2/api"
}

func (c *Config) GetChainID(chain Chain) int {
	switch chain {
	case ChainEthereum:
		return 1
	case ChainBase:
		return 8453
	case ChainBSC:
		return 56
	default:
		return 1
	}
}

func (c *Config) GetExplorerKey(chain Chain) string {
	return c.ExplorerKeys[chain]
}

func (c *Config) GetRPCURL(chain Chain) string {
	return c.EVMRPC[chain]
}

func (c *Config) Validate() error {
	known := false
	for _, ch := range AllChains() {
		if c.Chain == ch {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unsupported CHAIN %q (want one of %v)", c.Chain, AllChains())
	}
	if c.ExplorerKeys[c.Chain] == "" {
		return fmt.Errorf("no explorer API key configured for chain %s — set ETHERSCAN_API_KEY", c.Chain)
	}
	if c.TokenContract == "" {
		return fmt.Errorf("TOKEN_CONTRACT must not be empty")
	}
	if c.MaxRecordsPerPage <= 0 {
		return fmt.Errorf("MAX_RECORDS_PER_PAGE must be positive, got %d", c.MaxRecordsPerPage)
	}
	if c.SegmentMinutes <= 0 {
		return fmt.Errorf("SEGMENT_MINUTES must be positive, got %d", c.SegmentMinutes)
	}
	if c.SurgeMinGrowth.Sign() <= 0 {
		return fmt.Errorf("SURGE_MIN_GROWTH must be positive")
	}
	return nil
}

// helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}
