// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chart

import (
	"context"
	"daytrader/indapi"
	"daytrader/indapi/calc"
	"daytrader/indapi/candles"
	"daytrader/stockval"
	"daytrader/webclient"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/rs/zerolog"
	"github.com/zhangyunhao116/skipmap"
)

const DefaultResolution = candles.CandleFiveMinutes
const DefaultRange = time.Hour * 24 * 30

var ErrNoData = errors.New("no data available for this symbol")

// Candle data as returned by the backend, one array per field.
// Values are directly decoded into decimal.Big.
type stockCandles struct {
	O []*decimal.Big `json:"o,omitempty"`
	H []*decimal.Big `json:"h,omitempty"`
	L []*decimal.Big `json:"l,omitempty"`
	C []*decimal.Big `json:"c,omitempty"`
	V []*decimal.Big `json:"v,omitempty"`
	T []int64        `json:"t,omitempty"`
	S string         `json:"s,omitempty"`
}

type cacheEntry struct {
	data      []indapi.CandleData
	timestamp time.Time
}

type CacheStats struct {
	Size int
	Keys []string
}

// Indicators selects the indicator series calculated by ChartData.
type Indicators struct {
	SMA9      bool `json:"sma9"`
	EMA9      bool `json:"ema9"`
	EMA20     bool `json:"ema20"`
	SMA200    bool `json:"sma200"`
	VWAP      bool `json:"vwap"`
	Bollinger bool `json:"bollinger,omitempty"`
}

type Data struct {
	Symbol     string
	Resolution candles.CandleResolution
	Candles    []indapi.CandleData
	Indicators map[indapi.IndicatorId]indapi.Series
	Bollinger  *calc.BollingerBands
	LastUpdate time.Time
}

// Chart queries candles and quotes, caching candles for a short time.
type Chart struct {
	client   *webclient.Client
	cache    *skipmap.StringMap[cacheEntry]
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewChart(client *webclient.Client, cacheTTL time.Duration, logger zerolog.Logger) *Chart {
	return &Chart{
		client:   client,
		cache:    skipmap.NewString[cacheEntry](),
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

func cacheKey(symbol string, r candles.CandleResolution, from, to int64) string {
	return fmt.Sprintf("%s_%s_%d_%d", symbol, r, from, to)
}

// Candles returns candles of a symbol. Zero times select the last 30 days.
func (c *Chart) Candles(ctx context.Context, symbol string, r candles.CandleResolution, fromTime, toTime time.Time) ([]indapi.CandleData, error) {
	symbol, err := stockval.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if toTime.IsZero() {
		toTime = c.now()
	}
	if fromTime.IsZero() {
		fromTime = toTime.Add(-DefaultRange)
	}
	from, to := fromTime.Unix(), toTime.Unix()
	key := cacheKey(symbol, r, from, to)
	if e, ok := c.cache.Load(key); ok && c.now().Sub(e.timestamp) < c.cacheTTL {
		return e.data, nil
	}

	query := make(url.Values)
	query.Add("symbol", symbol)
	query.Add("resolution", r.String())
	query.Add("from", strconv.FormatInt(from, 10))
	query.Add("to", strconv.FormatInt(to, 10))
	var sc stockCandles
	if err = c.client.Get(ctx, "/api/market/candles", query, &sc); err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	if sc.S != "ok" {
		return nil, fmt.Errorf("candles %s: %w", symbol, ErrNoData)
	}
	n := len(sc.T)
	if len(sc.O) != n || len(sc.H) != n || len(sc.L) != n || len(sc.C) != n || len(sc.V) != n {
		return nil, fmt.Errorf("candles %s: inconsistent data", symbol)
	}
	c.logger.Debug().Str("symbol", symbol).Int("count", n).Msg("candles received")

	data := make([]indapi.CandleData, 0, n)
	for i := range sc.T {
		data = append(data, indapi.CandleData{
			Timestamp:  time.Unix(sc.T[i], 0),
			OpenPrice:  sc.O[i],
			HighPrice:  sc.H[i],
			LowPrice:   sc.L[i],
			ClosePrice: sc.C[i],
			Volume:     sc.V[i],
		})
	}
	data = indapi.MergeCandles(nil, data)
	now := c.now()
	c.purgeExpired(now)
	if c.cacheTTL > 0 {
		c.cache.Store(key, cacheEntry{data: data, timestamp: now})
	}
	return data, nil
}

// Keys of the default range move with the clock, so old entries would otherwise stay forever.
func (c *Chart) purgeExpired(now time.Time) {
	c.cache.Range(func(key string, e cacheEntry) bool {
		if now.Sub(e.timestamp) >= c.cacheTTL {
			c.cache.Delete(key)
		}
		return true
	})
}

func (c *Chart) Quote(ctx context.Context, symbol string) (stockval.Quote, error) {
	symbol, err := stockval.NormalizeSymbol(symbol)
	if err != nil {
		return stockval.Quote{}, err
	}
	var quote stockval.Quote
	if err = c.client.Get(ctx, "/api/market/quote/"+url.PathEscape(symbol), nil, &quote); err != nil {
		return stockval.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	quote.Symbol = symbol
	return quote, nil
}

// ChartData returns the candles of the last 30 days together with the selected indicators.
func (c *Chart) ChartData(ctx context.Context, symbol string, r candles.CandleResolution, ind Indicators) (Data, error) {
	data, err := c.Candles(ctx, symbol, r, time.Time{}, time.Time{})
	if err != nil {
		return Data{}, err
	}
	symbol, _ = stockval.NormalizeSymbol(symbol)
	result := Data{
		Symbol:     symbol,
		Resolution: r,
		Candles:    data,
		Indicators: make(map[indapi.IndicatorId]indapi.Series),
		LastUpdate: c.now(),
	}
	prices := indapi.NewPrices(data)
	if ind.SMA9 {
		result.Indicators[indapi.IndicatorSMA9] = calc.SMA(prices, 9)
	}
	if ind.EMA9 {
		result.Indicators[indapi.IndicatorEMA9] = calc.EMA(prices, 9)
	}
	if ind.EMA20 {
		result.Indicators[indapi.IndicatorEMA20] = calc.EMA(prices, 20)
	}
	if ind.SMA200 {
		result.Indicators[indapi.IndicatorSMA200] = calc.SMA(prices, 200)
	}
	if ind.VWAP {
		result.Indicators[indapi.IndicatorVWAP] = calc.VWAP(prices)
	}
	if ind.Bollinger {
		b := calc.Bollinger(data, 20, 2)
		result.Bollinger = &b
	}
	return result, nil
}

func (c *Chart) ClearCache() {
	c.cache.Range(func(key string, _ cacheEntry) bool {
		c.cache.Delete(key)
		return true
	})
}

func (c *Chart) CacheStats() CacheStats {
	stats := CacheStats{Keys: make([]string, 0, c.cache.Len())}
	c.cache.Range(func(key string, _ cacheEntry) bool {
		stats.Keys = append(stats.Keys, key)
		return true
	})
	stats.Size = len(stats.Keys)
	return stats
}
