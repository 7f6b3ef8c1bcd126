// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chart

import (
	"context"
	"daytrader/backend"
	"daytrader/indapi"
	"daytrader/indapi/candles"
	"daytrader/mock"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSymbol = "AMZN"

type chartMock struct {
	*httptest.Server
	candleRequests atomic.Int32
	savedPrefs     atomic.Value
}

func writeJson(w http.ResponseWriter, reply string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(reply)) // ignore errors, test will fail anyway in case Write fails
}

func newChartMock() *chartMock {
	m := &chartMock{}
	handler := http.NewServeMux()
	handler.HandleFunc("/api/market/candles", func(w http.ResponseWriter, r *http.Request) {
		m.candleRequests.Add(1)
		query := r.URL.Query()
		from, _ := strconv.ParseInt(query.Get("from"), 10, 64)
		to, _ := strconv.ParseInt(query.Get("to"), 10, 64)
		reply := `{"s": "no_data"}`
		// simplified: use valid reply only for certain requests
		if query.Get("symbol") == testSymbol && from <= 1664784000 && to >= 1664798400 {
			reply = `{
				"c": [111.12,111.26,111.95,112.2,112.63],
				"h": [112,111.5,111.98,112.44,113],
				"l": [111,110.78,111.44,111.84,111.718],
				"o": [112,111.03,111.49,111.98,112.1996],
				"s": "ok",
				"t": [1664784000,1664787600,1664791200,1664794800,1664798400],
				"v": [33109,21942,24349,77377,155176]
			}`
		}
		writeJson(w, reply)
	})
	handler.HandleFunc("/api/market/quote/AMZN", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, `{"c": 116.15, "d": 1.37, "dp": 1.2141, "pc": 114.78}`)
	})
	handler.HandleFunc("/api/user/chart-preferences", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var p map[string]any
			_ = json.NewDecoder(r.Body).Decode(&p)
			m.savedPrefs.Store(p)
			writeJson(w, `{"success": true}`)
			return
		}
		writeJson(w, `{"defaultTimeframe": "15", "indicators": {"sma200": true}}`)
	})
	m.Server = httptest.NewServer(handler)
	return m
}

func newTestChart(t *testing.T, url string) *Chart {
	client, err := backend.NewClient(mock.NewBackendConfig(url), zerolog.Nop())
	require.NoError(t, err)
	return NewChart(client, time.Second*30, zerolog.Nop())
}

func TestCandles(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	data, err := c.Candles(context.Background(), "amzn", candles.CandleSixtyMinutes, time.Unix(1664712905, 0), time.Unix(1664799305, 0))
	require.NoError(t, err)
	expected := []indapi.CandleData{
		{
			Timestamp:  time.Unix(1664784000, 0),
			OpenPrice:  decimal.New(112, 0),
			HighPrice:  decimal.New(112, 0),
			LowPrice:   decimal.New(111, 0),
			ClosePrice: decimal.New(11112, 2),
			Volume:     decimal.New(33109, 0),
		},
		{
			Timestamp:  time.Unix(1664798400, 0),
			OpenPrice:  decimal.New(1121996, 4),
			HighPrice:  decimal.New(113, 0),
			LowPrice:   decimal.New(111718, 3),
			ClosePrice: decimal.New(11263, 2),
			Volume:     decimal.New(155176, 0),
		},
	}
	require.Len(t, data, 5)
	for i, e := range expected {
		c := data[i*4]
		assert.Equal(t, 0, e.ClosePrice.CmpTotal(c.ClosePrice), "close price at index %d invalid", i)
		assert.Equal(t, 0, e.HighPrice.CmpTotal(c.HighPrice), "high price at index %d invalid", i)
		assert.Equal(t, 0, e.LowPrice.CmpTotal(c.LowPrice), "low price at index %d invalid", i)
		assert.Equal(t, 0, e.OpenPrice.CmpTotal(c.OpenPrice), "open price at index %d invalid", i)
		assert.Equal(t, 0, e.Volume.CmpTotal(c.Volume), "volume at index %d invalid", i)
		assert.Equal(t, e.Timestamp, c.Timestamp)
	}
}

func TestCandlesCache(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	now := time.Unix(1664799305, 0)
	c.now = func() time.Time { return now }
	from := time.Unix(1664712905, 0)

	_, err := c.Candles(context.Background(), testSymbol, candles.CandleOneMinute, from, time.Time{})
	require.NoError(t, err)
	_, err = c.Candles(context.Background(), testSymbol, candles.CandleOneMinute, from, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.candleRequests.Load())
	stats := c.CacheStats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, []string{"AMZN_1_1664712905_1664799305"}, stats.Keys)

	// Entries expire.
	now = now.Add(time.Second * 31)
	_, err = c.Candles(context.Background(), testSymbol, candles.CandleOneMinute, from, time.Unix(1664799305, 0))
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.candleRequests.Load())

	c.ClearCache()
	assert.Equal(t, 0, c.CacheStats().Size)
}

func TestCandlesCachePurgesExpired(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	now := time.Unix(1664799305, 0)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := c.Candles(context.Background(), testSymbol, candles.CandleSixtyMinutes, time.Time{}, time.Time{})
		require.NoError(t, err)
		now = now.Add(time.Second * 31)
	}
	assert.Equal(t, int32(3), srv.candleRequests.Load())
	assert.Equal(t, []string{"AMZN_60_1662207367_1664799367"}, c.CacheStats().Keys)
}

func TestCandlesWithoutCache(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	client, err := backend.NewClient(mock.NewBackendConfig(srv.URL), zerolog.Nop())
	require.NoError(t, err)
	c := NewChart(client, 0, zerolog.Nop())
	from, to := time.Unix(1664712905, 0), time.Unix(1664799305, 0)
	for i := 0; i < 2; i++ {
		_, err = c.Candles(context.Background(), testSymbol, candles.CandleSixtyMinutes, from, to)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), srv.candleRequests.Load())
	assert.Equal(t, 0, c.CacheStats().Size)
}

func TestCandlesNoData(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	// use out of range time
	_, err := c.Candles(context.Background(), testSymbol, candles.CandleOneMinute, time.Unix(1684712905, 0), time.Unix(1684799305, 0))
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 0, c.CacheStats().Size)
}

func TestCandlesDefaultRange(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	c.now = func() time.Time { return time.Unix(1664799305, 0) }
	data, err := c.ChartData(context.Background(), testSymbol, candles.CandleSixtyMinutes, Indicators{VWAP: true, SMA9: true, EMA9: true})
	require.NoError(t, err)
	assert.Len(t, data.Candles, 5)
	assert.Equal(t, testSymbol, data.Symbol)
	assert.Len(t, data.Indicators[indapi.IndicatorVWAP], 5)
	// Not enough candles for the period.
	assert.Empty(t, data.Indicators[indapi.IndicatorSMA9])
	assert.Contains(t, data.Indicators, indapi.IndicatorEMA9)
	assert.NotContains(t, data.Indicators, indapi.IndicatorEMA20)
	assert.Nil(t, data.Bollinger)
	assert.Equal(t, []string{"AMZN_60_1662207305_1664799305"}, c.CacheStats().Keys)
}

func TestQuote(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	q, err := c.Quote(context.Background(), testSymbol)
	require.NoError(t, err)
	assert.Equal(t, 0, decimal.New(11615, 2).CmpTotal(q.CurrentPrice))
}

func TestPreferences(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	p, err := c.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, candles.CandleFifteenMinutes, p.DefaultTimeframe)
	assert.True(t, p.Indicators.SMA200)
	assert.Equal(t, "dark", p.Theme)

	p.Theme = "light"
	require.NoError(t, c.SavePreferences(context.Background(), p))
	saved := srv.savedPrefs.Load().(map[string]any)
	assert.Equal(t, "light", saved["theme"])
	assert.Equal(t, "15", saved["defaultTimeframe"])
}

func TestCandleUpdater(t *testing.T) {
	srv := newChartMock()
	defer srv.Close()
	c := newTestChart(t, srv.URL)
	c.now = func() time.Time { return time.Unix(1664799305, 0) }
	u, err := NewCandleUpdater(c, "amzn", candles.CandleSixtyMinutes)
	require.NoError(t, err)
	_, ok := u.Last()
	assert.False(t, ok)

	// Trades before loading create a candle.
	u.AddTrade(time.Unix(1664802000, 0), decimal.New(113, 0), decimal.New(10, 0))
	require.NoError(t, u.Refresh(context.Background()))
	assert.Equal(t, 6, u.Len())

	u.AddTrade(time.Unix(1664802100, 0), decimal.New(114, 0), decimal.New(5, 0))
	u.AddTrade(time.Unix(1664802200, 0), decimal.New(1125, 1), nil)
	last, ok := u.Last()
	require.True(t, ok)
	assert.True(t, time.Unix(1664802000, 0).Equal(last.Timestamp))
	assert.Equal(t, 0, decimal.New(113, 0).CmpTotal(last.OpenPrice))
	assert.Equal(t, 0, decimal.New(114, 0).CmpTotal(last.HighPrice))
	assert.Equal(t, 0, decimal.New(1125, 1).CmpTotal(last.ClosePrice))
	assert.Equal(t, 0, decimal.New(15, 0).Cmp(last.Volume))

	// Old trades are ignored.
	u.AddTrade(time.Unix(1664784000, 0), decimal.New(1, 0), decimal.New(1, 0))
	assert.Equal(t, 6, u.Len())
}
