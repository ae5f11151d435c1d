package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/surge-tracker/pkg/blocktime"
	"github.com/surge-tracker/pkg/config"
	"github.com/surge-tracker/pkg/db"
	"github.com/surge-tracker/pkg/explorer"
	"github.com/surge-tracker/pkg/pipeline"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	log.Info().Msg("🔍 Token Surge Tracker starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config invalid")
	}

	tr, warnings, err := parseWindow(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "usage: tracker [\"2024-01-01 00:00:00\" \"2024-01-02 00:00:00\"]\n")
		log.Fatal().Err(err).Msg("bad time window")
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer store.Close()

	if n, err := store.PruneLabels(cfg.LabelTTL); err == nil && n > 0 {
		log.Info().Int64("pruned", n).Msg("stale labels dropped")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; log.Info().Msg("shutting down..."); cancel() }()

	client := explorer.NewClient(cfg)
	pipe := pipeline.New(cfg, client, store)

	log.Info().
		Str("chain", string(cfg.Chain)).
		Str("token", cfg.TokenContract).
		Time("start", tr.Start).
		Time("end", tr.End).
		Msg("run configured")

	res, err := pipe.Run(ctx, tr)
	if res != nil {
		printReport(cfg, res)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("run cancelled, partial results above")
		} else {
			log.Fatal().Err(err).Msg("run failed")
		}
	}
	log.Info().Msg("goodbye 👋")
}

// parseWindow reads the start/end bounds from argv. With no args the window
// is the last 24 hours.
func parseWindow(args []string) (blocktime.TimeRange, []string, error) {
	if len(args) == 0 {
		now := time.Now().UTC()
		return blocktime.TimeRange{Start: now.Add(-24 * time.Hour), End: now}, nil, nil
	}
	if len(args) != 2 {
		return blocktime.TimeRange{}, nil, fmt.Errorf("expected 0 or 2 arguments, got %d", len(args))
	}
	return blocktime.ParseRange(args[0], args[1])
}
