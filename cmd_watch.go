// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package main

import (
	"context"
	"daytrader/backend/chart"
	"daytrader/backend/stream"
	"daytrader/calendar"
	"daytrader/refresh"
	"daytrader/stockval"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	watchScanner  string
	watchInterval time.Duration
	watchSymbols  []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh a scanner during market hours until interrupted",
	Long: `Refresh a scanner during market hours until interrupted.

The market session is checked every minute. Scanner results are only
refreshed while a session is open. Trades of the given symbols are
streamed while live data is available.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchScanner, "scanner", string(stockval.ScannerMomentum), "scanner to refresh")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "scanner refresh interval (default: configured interval)")
	watchCmd.Flags().StringSliceVar(&watchSymbols, "symbols", nil, "symbols to stream trades of")
	rootCmd.AddCommand(watchCmd)
}

// tradeWatcher streams trades while the data strategy is live and builds candles from them.
// Symbols missing from the stream, after a failed subscription or a dropped
// connection, are subscribed again on the next live status.
type tradeWatcher struct {
	stream  *stream.Stream
	chart   *chart.Chart
	symbols []string
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

func (w *tradeWatcher) newUpdater(ctx context.Context, symbol string) *chart.CandleUpdater {
	if w.chart == nil {
		return nil
	}
	u, err := chart.NewCandleUpdater(w.chart, symbol, chart.DefaultResolution)
	if err != nil {
		w.logger.Warn().Err(err).Str("symbol", symbol).Msg("invalid symbol")
		return nil
	}
	if err = u.Refresh(ctx); err != nil {
		// Candles are built from trades only.
		w.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to load candles")
	}
	return u
}

func (w *tradeWatcher) update(ctx context.Context, status calendar.SessionStatus) {
	if w.stream == nil {
		return
	}
	subscribed := w.stream.Symbols()
	if status.DataStrategy != calendar.DataStrategyLive {
		for _, symbol := range subscribed {
			if err := w.stream.Unsubscribe(symbol); err != nil {
				w.logger.Warn().Err(err).Msg("unsubscribe failed")
			}
		}
		return
	}
	for _, symbol := range w.symbols {
		symbol, err := stockval.NormalizeSymbol(symbol)
		if err != nil {
			w.logger.Warn().Err(err).Msg("invalid symbol")
			continue
		}
		if slices.Contains(subscribed, symbol) {
			continue
		}
		ticks, err := w.stream.Subscribe(ctx, symbol)
		if err != nil {
			w.logger.Warn().Err(err).Str("symbol", symbol).Msg("subscribe failed")
			continue
		}
		updater := w.newUpdater(ctx, symbol)
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.handleTicks(ticks, updater)
		}()
	}
}

func (w *tradeWatcher) handleTicks(ticks <-chan stream.Tick, updater *chart.CandleUpdater) {
	for t := range ticks {
		ev := w.logger.Info().
			Str("symbol", t.Symbol).
			Str("price", stockval.FormatPrice(t.Price)).
			Str("volume", fmt.Sprint(t.Volume)).
			Time("time", t.Timestamp)
		if updater != nil {
			updater.AddTrade(t.Timestamp, t.Price, t.Volume)
			if c, ok := updater.Last(); ok {
				ev = ev.Str("candleHigh", stockval.FormatPrice(c.HighPrice)).
					Str("candleLow", stockval.FormatPrice(c.LowPrice))
			}
		}
		ev.Msg("trade")
	}
}

func logEvent(logger zerolog.Logger, e refresh.Event) {
	switch e := e.(type) {
	case refresh.StatusEvent:
		ev := logger.Info().
			Stringer("session", e.Status.Session).
			Str("time", e.Status.CurrentTimeLabel).
			Bool("autoRefresh", e.Status.ShouldAutoRefresh)
		if e.HasNext {
			ev = ev.Str("nextSession", fmt.Sprintf("%dh %dm", e.Next.Hours, e.Next.Minutes))
		}
		ev.Msg(e.Status.Description)
	case refresh.ScanEvent:
		if e.Err != nil {
			logger.Warn().Err(e.Err).
				Str("scanner", string(e.Scanner)).
				Int("attempt", e.Attempt).
				Bool("upgradeRequired", e.UpgradeRequired).
				Msg("scan failed")
			return
		}
		symbols := make([]string, 0, len(e.Result.Results))
		for _, c := range e.Result.Results {
			symbols = append(symbols, c.Symbol)
		}
		logger.Info().
			Str("scanner", string(e.Scanner)).
			Strs("symbols", symbols).
			Time("nextRefresh", e.NextRefresh).
			Msg("scan results")
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	t, err := stockval.ParseScannerType(watchScanner)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	scheduler, err := a.Scheduler(watchInterval)
	if err != nil {
		return err
	}
	scheduler.SetActive(t)

	watcher := &tradeWatcher{symbols: watchSymbols, logger: a.Logger()}
	if len(watchSymbols) > 0 {
		if watcher.stream, err = a.Stream(); err != nil {
			return err
		}
		if watcher.chart, err = a.Chart(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx)
	}()
	for {
		select {
		case e := <-scheduler.Events():
			logEvent(a.Logger(), e)
			if s, ok := e.(refresh.StatusEvent); ok {
				watcher.update(ctx, s.Status)
			}
		case err = <-done:
			if watcher.stream != nil {
				_ = watcher.stream.Close()
			}
			watcher.wg.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
