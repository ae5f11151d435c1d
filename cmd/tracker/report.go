package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/surge-tracker/pkg/config"
	"github.com/surge-tracker/pkg/pipeline"
)

var (
	header   = color.New(color.FgCyan, color.Bold)
	warnCol  = color.New(color.FgYellow)
	surgeCol = color.New(color.FgRed, color.Bold)
)

func printReport(cfg *config.Config, res *pipeline.Result) {
	rule := strings.Repeat("═", 64)

	fmt.Println("\n" + rule)
	header.Printf("  📊 TRANSFER ANALYSIS  %s → %s\n",
		res.Window.Start.Format("2006-01-02 15:04"),
		res.Window.End.Format("2006-01-02 15:04"))
	fmt.Println(rule)
	fmt.Printf("  Token:       %s on %s\n", cfg.TokenContract, cfg.Chain)
	fmt.Printf("  Blocks:      %d → %d (%d blocks)\n", res.Blocks.From, res.Blocks.To, res.Blocks.Width())
	fmt.Printf("  Transfers:   %d (%s tokens total)\n", res.Totals.TransferCount, res.Totals.TotalAmount.StringFixed(2))
	fmt.Printf("  Addresses:   %d unique\n", res.Totals.UniqueAddresses)
	if res.Fetch != nil {
		fmt.Printf("  Queries:     %d (%d duplicates dropped)\n", res.Fetch.Queries, res.Fetch.Duplicates)
	}
	fmt.Printf("  Elapsed:     %s\n", res.Elapsed.Round(10*time.Millisecond))

	if len(res.Totals.AmountBuckets) > 0 {
		fmt.Println("\n  Amount distribution:")
		for _, name := range []string{"1K-10K", "10K-100K", "100K-1M", "1M-10M", ">10M"} {
			if n := res.Totals.AmountBuckets[name]; n > 0 {
				fmt.Printf("    %-10s %d\n", name, n)
			}
		}
	}

	printHourHistogram(res)
	printRankings(res)
	printSurges(res)

	if len(res.Warnings) > 0 {
		fmt.Println()
		for _, w := range res.Warnings {
			warnCol.Printf("  ⚠ %s\n", w)
		}
	}
	fmt.Println(rule + "\n")
}

func printHourHistogram(res *pipeline.Result) {
	peak := 0
	for _, n := range res.Totals.HourHistogram {
		if n > peak {
			peak = n
		}
	}
	if peak == 0 {
		return
	}
	fmt.Println("\n  Activity by UTC hour:")
	for h, n := range res.Totals.HourHistogram {
		if n == 0 {
			continue
		}
		bars := n * 30 / peak
		if bars < 1 {
			bars = 1
		}
		fmt.Printf("    %02d:00  %-30s %d\n", h, strings.Repeat("▇", bars), n)
	}
}

func printRankings(res *pipeline.Result) {
	if len(res.TopByVolume) > 0 {
		fmt.Println("\n  Top addresses by volume:")
		for i, st := range res.TopByVolume {
			fmt.Printf("    %2d. %s  %s  (%d transfers, ~%d counterparties)%s\n",
				i+1, st.Address, st.Volume().StringFixed(2), st.TransferCount(),
				st.CounterpartyCount(), labelSuffix(res, st.Address))
		}
	}
	if len(res.TopLargeReceivers) > 0 {
		fmt.Println("\n  Top receivers of large transfers:")
		for i, lr := range res.TopLargeReceivers {
			fmt.Printf("    %2d. %s  %s in %d transfers%s\n",
				i+1, lr.Address, lr.Received.StringFixed(2), lr.Count, labelSuffix(res, lr.Address))
		}
	}
	if len(res.CommonHubs) > 0 {
		fmt.Println("\n  Common counterparties (flow hubs):")
		for _, st := range res.CommonHubs {
			fmt.Printf("    %s  ~%d counterparties%s\n",
				st.Address, st.CounterpartyCount(), labelSuffix(res, st.Address))
		}
	}
	if len(res.BusyReceivers) > 0 {
		fmt.Println("\n  High-traffic receivers:")
		for _, st := range res.BusyReceivers {
			fmt.Printf("    %s  %d inbound transfers%s\n",
				st.Address, st.ReceivedCount, labelSuffix(res, st.Address))
		}
	}
}

func printSurges(res *pipeline.Result) {
	if len(res.Surges) == 0 {
		fmt.Println("\n  No balance surges detected.")
		return
	}
	fmt.Println()
	surgeCol.Printf("  🚨 BALANCE SURGES (%d)\n", len(res.Surges))
	for _, c := range res.Surges {
		ratio := "∞"
		if !c.Unbounded {
			ratio = c.GrowthRatio.StringFixed(1) + "x"
		}
		fmt.Printf("    %s  %s → %s  (+%s, %s)%s\n",
			c.Address, c.OldBalance.StringFixed(2), c.NewBalance.StringFixed(2),
			c.Delta.StringFixed(2), ratio, labelSuffix(res, c.Address))
	}
}

func labelSuffix(res *pipeline.Result, address string) string {
	l, ok := res.Labels[strings.ToLower(address)]
	if !ok || l.IsUnknown() {
		return ""
	}
	return fmt.Sprintf("  [%s/%s]", l.Label, l.Category)
}
