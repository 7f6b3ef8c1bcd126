// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package initapp

import (
	"daytrader/backend"
	"daytrader/backend/chart"
	"daytrader/backend/scanner"
	"daytrader/backend/stream"
	"daytrader/cache"
	"daytrader/calendar"
	"daytrader/config"
	"daytrader/logging"
	"daytrader/refresh"
	"daytrader/webclient"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// InitApp wires the components according to the configuration.
// Backend clients are only created on demand, so that calendar functions work without token.
type InitApp struct {
	config    config.Config
	appConfig config.AppConfig
	logger    zerolog.Logger
	logCloser io.Closer
	calendar  *calendar.ExchangeCalendar

	client  *webclient.Client
	scanner *scanner.Scanner
	chart   *chart.Chart
	stream  *stream.Stream
}

// NewInitApp reads the configuration and creates the logger and market calendar.
// A non-empty logLevel overrides the configured level.
func NewInitApp(c config.Config, logLevel string) (*InitApp, error) {
	appConfig, err := c.Copy()
	if err != nil {
		return nil, err
	}
	if len(logLevel) > 0 {
		appConfig.Log.Level = logLevel
	}
	if err = appConfig.Validate(); err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(appConfig.Log)
	if err != nil {
		return nil, err
	}
	a := &InitApp{
		config:    c,
		appConfig: appConfig,
		logger:    logger,
		logCloser: closer,
	}
	if err = a.initCalendar(); err != nil {
		_ = closer.Close()
		return nil, err
	}
	return a, nil
}

func (a *InitApp) initCalendar() error {
	opts, err := a.appConfig.Market.CalendarOptions()
	if err != nil {
		return err
	}
	a.calendar, err = calendar.NewExchangeCalendar(opts...)
	return err
}

func (a *InitApp) Logger() zerolog.Logger {
	return a.logger
}

func (a *InitApp) AppConfig() config.AppConfig {
	return a.appConfig
}

func (a *InitApp) Calendar() *calendar.ExchangeCalendar {
	return a.calendar
}

func (a *InitApp) initBackend() error {
	if a.client != nil {
		return nil
	}
	if !backend.IsValidConfig(a.config) {
		return backend.ErrMissingToken
	}
	client, err := backend.NewClient(a.config, logging.Component(a.logger, "webclient"))
	if err != nil {
		return err
	}
	searchCache, err := cache.NewLocalSearchCache(a.config.GetAppName(), logging.Component(a.logger, "cache"))
	if err != nil {
		// Searching works without cache.
		a.logger.Warn().Err(err).Msg("search cache unavailable")
		searchCache = nil
	}
	a.client = client
	a.scanner = scanner.NewScanner(client, searchCache, logging.Component(a.logger, "scanner"))
	a.chart = chart.NewChart(client, a.appConfig.Refresh.CandleCacheTTL, logging.Component(a.logger, "chart"))
	return nil
}

func (a *InitApp) Scanner() (*scanner.Scanner, error) {
	if err := a.initBackend(); err != nil {
		return nil, err
	}
	return a.scanner, nil
}

func (a *InitApp) Chart() (*chart.Chart, error) {
	if err := a.initBackend(); err != nil {
		return nil, err
	}
	return a.chart, nil
}

func (a *InitApp) Stream() (*stream.Stream, error) {
	if a.stream != nil {
		return a.stream, nil
	}
	if !backend.IsValidConfig(a.config) {
		return nil, backend.ErrMissingToken
	}
	s, err := stream.NewStreamFromConfig(a.config, logging.Component(a.logger, "stream"))
	if err != nil {
		return nil, err
	}
	a.stream = s
	return s, nil
}

// Scheduler creates a refresh scheduler for the given scanner refresh interval.
// A zero interval keeps the configured one.
func (a *InitApp) Scheduler(interval time.Duration) (*refresh.Scheduler, error) {
	s, err := a.Scanner()
	if err != nil {
		return nil, err
	}
	c := a.appConfig.Refresh
	if interval > 0 {
		c.ScannerInterval = interval
	}
	return refresh.NewScheduler(a.calendar, s, c, logging.Component(a.logger, "refresh")), nil
}

func (a *InitApp) Close() error {
	var errs []error
	if a.stream != nil {
		errs = append(errs, a.stream.Close())
	}
	errs = append(errs, a.logCloser.Close())
	return errors.Join(errs...)
}
