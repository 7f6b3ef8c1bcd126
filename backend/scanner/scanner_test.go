// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package scanner

import (
	"context"
	"daytrader/backend"
	"daytrader/cache"
	"daytrader/mock"
	"daytrader/stockval"
	"daytrader/webclient"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ericlagergren/decimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJson(w http.ResponseWriter, status int, reply string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply)) // ignore errors, test will fail anyway in case Write fails
}

func requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			writeJson(w, http.StatusUnauthorized, `{"error": "unauthorized"}`)
			return
		}
		next(w, r)
	}
}

func newScannerMock() *httptest.Server {
	handler := http.NewServeMux()
	handler.HandleFunc("/api/scanners/status", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, `{
			"tier": "basic",
			"scanners": {
				"momentum": {"enabled": true, "available": true},
				"gappers": {"enabled": true, "available": true},
				"low_float": {"enabled": false, "available": false, "required_tier": "pro"}
			}
		}`)
	}))
	handler.HandleFunc("/api/scanners/momentum", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, `{
			"results": [
				{"symbol": "ABCD", "price": 4.12, "percent_change": 35.5, "volume": 1500000, "relative_volume": 8.2},
				{"symbol": "WXYZ", "price": 12.5, "percent_change": 12.25, "volume": 800000}
			],
			"criteria": {"description": "Up 10% with relative volume above 5"},
			"limit": 5,
			"count": 2
		}`)
	}))
	handler.HandleFunc("/api/scanners/low-float", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusForbidden, `{"error": "Upgrade to pro to access this scanner", "upgrade_required": true, "required_tier": "pro"}`)
	}))
	handler.HandleFunc("/api/market/quote/AAPL", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, `{"c": 116.15, "d": 1.37, "dp": 1.2141, "h": 117.335, "l": 113.13, "o": 113.295, "pc": 114.78, "t": 1664222404}`)
	}))
	handler.HandleFunc("/api/market/quote/NODATA", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, `{"c": 0}`)
	}))
	handler.HandleFunc("/api/market/status", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, `{"isOpen": false, "session": "pre-market", "timezone": "America/New_York"}`)
	}))
	handler.HandleFunc("/api/market/search", requireToken(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "apple" {
			writeJson(w, http.StatusOK, `{"count": 0, "result": []}`)
			return
		}
		writeJson(w, http.StatusOK, `{"count": 3, "result": [
			{"symbol": "APLE", "displaySymbol": "APLE", "description": "APPLE HOSPITALITY REIT INC", "type": "Common Stock"},
			{"symbol": "AAPL", "displaySymbol": "AAPL", "description": "APPLE INC", "type": "Common Stock"},
			{"symbol": "PINE", "displaySymbol": "PINE", "description": "ALPINE INCOME PROPERTY TRUST", "type": "REIT"}
		]}`)
	}))
	return httptest.NewServer(handler)
}

func newTestScanner(t *testing.T, url string, searchCache cache.SearchCache) *Scanner {
	client, err := backend.NewClient(mock.NewBackendConfig(url), zerolog.Nop())
	require.NoError(t, err)
	return NewScanner(client, searchCache, zerolog.Nop())
}

func TestStatus(t *testing.T) {
	srv := newScannerMock()
	defer srv.Close()
	s := newTestScanner(t, srv.URL, nil)
	status, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stockval.TierBasic, status.Tier)
	assert.True(t, status.IsEnabled(stockval.ScannerMomentum))
	assert.False(t, status.IsEnabled(stockval.ScannerLowFloat))
	assert.Equal(t, stockval.TierPro, status.Scanners[stockval.ScannerLowFloat].RequiredTier)
	assert.Equal(t, []stockval.ScannerType{stockval.ScannerGappers, stockval.ScannerMomentum}, EnabledScanners(status))
}

func TestScan(t *testing.T) {
	srv := newScannerMock()
	defer srv.Close()
	s := newTestScanner(t, srv.URL, nil)
	result, err := s.Scan(context.Background(), stockval.ScannerMomentum)
	require.NoError(t, err)
	assert.Equal(t, stockval.ScannerMomentum, result.Scanner)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, "ABCD", result.Results[0].Symbol)
	assert.Equal(t, 0, decimal.New(412, 2).CmpTotal(result.Results[0].Price))
	assert.Equal(t, 1500000.0, result.Results[0].Volume)
	assert.Equal(t, 5, result.Limit)
	assert.Equal(t, "Up 10% with relative volume above 5", result.Criteria.Description)
	assert.False(t, result.LastUpdate.IsZero())
}

func TestScanUpgradeRequired(t *testing.T) {
	srv := newScannerMock()
	defer srv.Close()
	s := newTestScanner(t, srv.URL, nil)
	_, err := s.Scan(context.Background(), stockval.ScannerLowFloat)
	assert.ErrorIs(t, err, webclient.ErrUpgradeRequired)
	assert.False(t, webclient.IsRetryable(err))
}

func TestScanUnknownScanner(t *testing.T) {
	// No request is made for unknown scanners, so no server is needed.
	s := newTestScanner(t, "http://127.0.0.1:1", nil)
	_, err := s.Scan(context.Background(), stockval.ScannerType("halts"))
	assert.Error(t, err)
}

func TestUnauthorized(t *testing.T) {
	srv := newScannerMock()
	defer srv.Close()
	c := mock.NewBackendConfig(srv.URL)
	appConfig, _ := c.Lock()
	appConfig.Backend.Token = "wrong"
	_ = c.Unlock(appConfig)
	client, err := backend.NewClient(c, zerolog.Nop())
	require.NoError(t, err)
	_, err = NewScanner(client, nil, zerolog.Nop()).Status(context.Background())
	assert.ErrorIs(t, err, webclient.ErrUnauthorized)
}

func TestQuote(t *testing.T) {
	srv := newScannerMock()
	defer srv.Close()
	s := newTestScanner(t, srv.URL, nil)
	q, err := s.Quote(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 0, decimal.New(11615, 2).CmpTotal(q.CurrentPrice))
	assert.Equal(t, 0, decimal.New(11478, 2).CmpTotal(q.PreviousClosePrice))
	assert.Equal(t, 0, decimal.New(12141, 4).CmpTotal(q.DeltaPercentage))

	_, err = s.Quote(context.Background(), "NODATA")
	assert.Error(t, err)
	_, err = s.Quote(context.Background(), "../x")
	assert.Error(t, err)
}

func TestMarketStatus(t *testing.T) {
	srv := newScannerMock()
	defer srv.Close()
	s := newTestScanner(t, srv.URL, nil)
	status, err := s.MarketStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsOpen)
	assert.Equal(t, "pre-market", status.Session)
}

type countingSearchCache struct {
	lists map[string]cache.SymbolList
}

func (c *countingSearchCache) GetSearchResults(ctx context.Context, query string, req cache.SearchRequester) (cache.SymbolList, error) {
	if l, ok := c.lists[query]; ok {
		return l, nil
	}
	l, err := req(ctx)
	if err != nil {
		return nil, err
	}
	c.lists[query] = l
	return l, nil
}

func TestSearch(t *testing.T) {
	srv := newScannerMock()
	defer srv.Close()
	searchCache := &countingSearchCache{lists: make(map[string]cache.SymbolList)}
	s := newTestScanner(t, srv.URL, searchCache)
	r, err := s.Search(context.Background(), " apple ")
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.Equal(t, "APLE", r[0].Symbol)
	assert.Equal(t, "AAPL", r[1].Symbol)
	assert.Contains(t, searchCache.lists, "apple")

	_, err = s.Search(context.Background(), "")
	assert.Error(t, err)
}

func TestAccess(t *testing.T) {
	assert.Equal(t, AccessRule{Available: true, Limited: true, MaxResults: 5}, Access(stockval.ScannerMomentum, stockval.TierFree))
	assert.Equal(t, AccessRule{Available: true, Limited: true, MaxResults: 5}, Access(stockval.ScannerMomentum, ""))
	assert.Equal(t, AccessRule{Available: true}, Access(stockval.ScannerMomentum, stockval.TierBasic))
	assert.Equal(t, AccessRule{RequiredTier: stockval.TierBasic}, Access(stockval.ScannerGappers, stockval.TierFree))
	assert.Equal(t, AccessRule{Available: true, Limited: true, MaxResults: 10}, Access(stockval.ScannerGappers, stockval.TierBasic))
	assert.Equal(t, AccessRule{RequiredTier: stockval.TierPro}, Access(stockval.ScannerLowFloat, stockval.TierBasic))
	assert.Equal(t, AccessRule{Available: true, Limited: true, MaxResults: 15}, Access(stockval.ScannerLowFloat, stockval.TierPro))
	assert.Equal(t, AccessRule{Available: true}, Access(stockval.ScannerLowFloat, stockval.TierPremium))
	assert.Equal(t, AccessRule{RequiredTier: stockval.TierPremium}, Access(stockval.ScannerType("halts"), stockval.TierPremium))
}

func TestAccessApply(t *testing.T) {
	result := stockval.ScanResult{Results: make([]stockval.ScanCandidate, 8)}
	limitedResult := Access(stockval.ScannerMomentum, stockval.TierFree).Apply(result)
	assert.Len(t, limitedResult.Results, 5)
	assert.Equal(t, 5, limitedResult.Limit)
	assert.Len(t, Access(stockval.ScannerMomentum, stockval.TierPro).Apply(result).Results, 8)
	assert.Empty(t, Access(stockval.ScannerLowFloat, stockval.TierFree).Apply(result).Results)
}
