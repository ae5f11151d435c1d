package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validConfig() *Config {
	return &Config{
		Chain:             ChainEthereum,
		TokenContract:     DefaultTokenContract,
		TokenDecimals:     6,
		ExplorerKeys:      map[Chain]string{ChainEthereum: "key"},
		SegmentMinutes:    10,
		MaxRecordsPerPage: 10000,
		SurgeMinGrowth:    decimal.NewFromInt(5_000_000),
		LabelTTL:          time.Hour,
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unrecognized chain", func(c *Config) { c.Chain = "dogecoin" }},
		{"missing api key", func(c *Config) { c.ExplorerKeys[ChainEthereum] = "" }},
		{"empty token", func(c *Config) { c.TokenContract = "" }},
		{"zero page cap", func(c *Config) { c.MaxRecordsPerPage = 0 }},
		{"zero segment width", func(c *Config) { c.SegmentMinutes = 0 }},
		{"zero growth floor", func(c *Config) { c.SurgeMinGrowth = decimal.Zero }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}

func TestGetChainID(t *testing.T) {
	cfg := validConfig()
	for chain, want := range map[Chain]int{ChainEthereum: 1, ChainBase: 8453, ChainBSC: 56} {
		if got := cfg.GetChainID(chain); got != want {
			t.Fatalf("GetChainID(%s) = %d, want %d", chain, got, want)
		}
	}
}

func TestLookupKnownAddress(t *testing.T) {
	// Mixed-case input still hits the lowercased table.
	addr := "0x28C6c06298d514Db089934071355E5743bf21d60"
	known, ok := LookupKnownAddress(addr)
	if !ok {
		t.Fatalf("LookupKnownAddress(%s) missed a known exchange wallet", addr)
	}
	if known.Category != "exchange" {
		t.Fatalf("category = %s, want exchange", known.Category)
	}

	if _, ok := LookupKnownAddress("0x0000000000000000000000000000000000000042"); ok {
		t.Fatal("unexpected hit for an unlisted address")
	}
}
