// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package main

import (
	"daytrader/backend/scanner"
	"daytrader/indapi/candles"
	"daytrader/stockval"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	candleResolution string
	candleFrom       string
	candleTo         string
)

var scannersCmd = &cobra.Command{
	Use:   "scanners",
	Short: "Show the scanners available to the account",
	Args:  cobra.NoArgs,
	RunE:  runScanners,
}

var scanCmd = &cobra.Command{
	Use:       "scan <momentum|gappers|low_float>",
	Short:     "Run a scanner once",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"momentum", "gappers", "low_float"},
	RunE:      runScan,
}

var quoteCmd = &cobra.Command{
	Use:   "quote <symbol>",
	Short: "Show a quote",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuote,
}

var candlesCmd = &cobra.Command{
	Use:   "candles <symbol>",
	Short: "Show candles of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runCandles,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search symbols",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	candlesCmd.Flags().StringVar(&candleResolution, "resolution", "5", "candle resolution: 1, 5, 15, 30, 60, D, W or M")
	candlesCmd.Flags().StringVar(&candleFrom, "from", "", "first candle, RFC3339 or date (default: 30 days ago)")
	candlesCmd.Flags().StringVar(&candleTo, "to", "", "last candle, RFC3339 or date (default: now)")
	rootCmd.AddCommand(scannersCmd, scanCmd, quoteCmd, candlesCmd, searchCmd)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func runScanners(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	s, err := a.Scanner()
	if err != nil {
		return err
	}
	status, err := s.Status(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Tier: %s\n", status.Tier)
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "SCANNER\tENABLED\tACCESS")
	for _, t := range stockval.ScannerTypes {
		rule := scanner.Access(t, status.Tier)
		access := "full"
		switch {
		case !rule.Available:
			access = fmt.Sprintf("requires %s", rule.RequiredTier)
		case rule.Limited:
			access = fmt.Sprintf("top %d", rule.MaxResults)
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", t.Title(), status.IsEnabled(t), access)
	}
	return tw.Flush()
}

func printScanResult(w io.Writer, result stockval.ScanResult) error {
	if len(result.Criteria.Description) > 0 {
		fmt.Fprintln(w, result.Criteria.Description)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\tCHANGE\tVOLUME\tREL VOL")
	for _, c := range result.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\n",
			c.Symbol, stockval.FormatPrice(c.Price), stockval.FormatPercent(c.PercentChange),
			stockval.FormatNumber(c.Volume), c.RelativeVolume)
	}
	return tw.Flush()
}

func runScan(cmd *cobra.Command, args []string) error {
	t, err := stockval.ParseScannerType(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	scheduler, err := a.Scheduler(0)
	if err != nil {
		return err
	}
	scheduler.SetActive(t)
	result, err := scheduler.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	return printScanResult(cmd.OutOrStdout(), result)
}

func runQuote(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	s, err := a.Scanner()
	if err != nil {
		return err
	}
	q, err := s.Quote(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (previous close %s)\n",
		q.Symbol, stockval.FormatPrice(q.CurrentPrice), stockval.FormatPercent(q.DeltaPercentage),
		stockval.FormatPrice(q.PreviousClosePrice))
	return nil
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if len(value) == 0 {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

func runCandles(cmd *cobra.Command, args []string) error {
	r, err := candles.ParseCandleResolution(candleResolution)
	if err != nil {
		return err
	}
	from, err := parseTimeFlag("from", candleFrom)
	if err != nil {
		return err
	}
	to, err := parseTimeFlag("to", candleTo)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	c, err := a.Chart()
	if err != nil {
		return err
	}
	data, err := c.Candles(cmd.Context(), args[0], r, from, to)
	if err != nil {
		return err
	}
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "TIME\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME")
	loc := a.Calendar().Location()
	for _, d := range data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Timestamp.In(loc).Format(r.FormatString()),
			stockval.FormatPrice(d.OpenPrice), stockval.FormatPrice(d.HighPrice),
			stockval.FormatPrice(d.LowPrice), stockval.FormatPrice(d.ClosePrice), d.Volume)
	}
	return tw.Flush()
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	s, err := a.Scanner()
	if err != nil {
		return err
	}
	symbols, err := s.Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	tw := newTable(cmd.OutOrStdout())
	for _, m := range symbols {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Symbol, m.Description, m.SecurityType)
	}
	return tw.Flush()
}
