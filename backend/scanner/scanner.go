// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package scanner

import (
	"context"
	"daytrader/cache"
	"daytrader/stockval"
	"daytrader/webclient"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
)

const maxSearchResults = 20

// Scanner queries the scanner and market endpoints of the backend.
type Scanner struct {
	client      *webclient.Client
	searchCache cache.SearchCache
	logger      zerolog.Logger
	now         func() time.Time
}

type searchResponse struct {
	Count  int                    `json:"count"`
	Result []stockval.SymbolMatch `json:"result"`
}

// NewScanner creates a scanner client. searchCache may be nil.
func NewScanner(client *webclient.Client, searchCache cache.SearchCache, logger zerolog.Logger) *Scanner {
	return &Scanner{
		client:      client,
		searchCache: searchCache,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Scanner) Status(ctx context.Context) (stockval.ScannerStatus, error) {
	var status stockval.ScannerStatus
	if err := s.client.Get(ctx, "/api/scanners/status", nil, &status); err != nil {
		return stockval.ScannerStatus{}, fmt.Errorf("scanner status: %w", err)
	}
	if status.Scanners == nil {
		status.Scanners = make(map[stockval.ScannerType]stockval.ScannerInfo)
	}
	return status, nil
}

func (s *Scanner) Scan(ctx context.Context, t stockval.ScannerType) (stockval.ScanResult, error) {
	if stockval.IndexOf(stockval.ScannerTypes, t) < 0 {
		return stockval.ScanResult{}, fmt.Errorf("unknown scanner type: %s", t)
	}
	var result stockval.ScanResult
	if err := s.client.Get(ctx, "/api/scanners/"+t.Endpoint(), nil, &result); err != nil {
		return stockval.ScanResult{Scanner: t}, fmt.Errorf("%s scanner: %w", t, err)
	}
	result.Scanner = t
	result.LastUpdate = s.now()
	if result.Results == nil {
		result.Results = []stockval.ScanCandidate{}
	}
	s.logger.Debug().Str("scanner", string(t)).Int("count", len(result.Results)).Msg("scan results received")
	return result, nil
}

func (s *Scanner) Quote(ctx context.Context, symbol string) (stockval.Quote, error) {
	symbol, err := stockval.NormalizeSymbol(symbol)
	if err != nil {
		return stockval.Quote{}, err
	}
	var quote stockval.Quote
	if err = s.client.Get(ctx, "/api/market/quote/"+url.PathEscape(symbol), nil, &quote); err != nil {
		return stockval.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if !quote.IsValid() {
		return stockval.Quote{}, fmt.Errorf("quote %s: missing data", symbol)
	}
	quote.Symbol = symbol
	return quote, nil
}

func (s *Scanner) MarketStatus(ctx context.Context) (stockval.BackendMarketStatus, error) {
	var status stockval.BackendMarketStatus
	if err := s.client.Get(ctx, "/api/market/status", nil, &status); err != nil {
		return stockval.BackendMarketStatus{}, fmt.Errorf("market status: %w", err)
	}
	return status, nil
}

// Search looks up symbols matching the query, best matches first.
func (s *Scanner) Search(ctx context.Context, query string) (cache.SymbolList, error) {
	query = strings.TrimSpace(query)
	if len(query) == 0 {
		return nil, errors.New("empty search query")
	}
	req := func(ctx context.Context) ([]stockval.SymbolMatch, error) {
		var resp searchResponse
		q := url.Values{"q": []string{query}}
		if err := s.client.Get(ctx, "/api/market/search", q, &resp); err != nil {
			return nil, fmt.Errorf("symbol search: %w", err)
		}
		return resp.Result, nil
	}
	var symbols cache.SymbolList
	var err error
	if s.searchCache != nil {
		symbols, err = s.searchCache.GetSearchResults(ctx, query, req)
	} else {
		symbols, err = req(ctx)
	}
	if err != nil {
		return nil, err
	}
	return symbols.Find(query, maxSearchResults, false), nil
}

// EnabledScanners returns the enabled scanners, sorted by name.
func EnabledScanners(status stockval.ScannerStatus) []stockval.ScannerType {
	keys := maps.Keys(status.Scanners)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	enabled := keys[:0]
	for _, k := range keys {
		if status.Scanners[k].Enabled {
			enabled = append(enabled, k)
		}
	}
	return enabled
}
