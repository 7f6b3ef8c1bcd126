// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chart

import (
	"context"
	"daytrader/indapi"
	"daytrader/indapi/candles"
	"daytrader/stockval"
	"sync"
	"time"

	"github.com/ericlagergren/decimal"
)

// CandleUpdater keeps the candles of a symbol up to date using live trades.
type CandleUpdater struct {
	Symbol     string
	Resolution candles.CandleResolution
	chart      *Chart
	mutex      sync.Mutex
	data       []indapi.CandleData
}

func NewCandleUpdater(c *Chart, symbol string, resolution candles.CandleResolution) (*CandleUpdater, error) {
	symbol, err := stockval.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return &CandleUpdater{
		Symbol:     symbol,
		Resolution: resolution,
		chart:      c,
	}, nil
}

// Refresh loads candles of the last 30 days. Loaded candles replace candles built from trades.
func (d *CandleUpdater) Refresh(ctx context.Context) error {
	data, err := d.chart.Candles(ctx, d.Symbol, d.Resolution, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	d.mutex.Lock()
	d.data = indapi.MergeCandles(d.data, data)
	d.mutex.Unlock()
	return nil
}

func (d *CandleUpdater) AddTrade(timestamp time.Time, price *decimal.Big, volume *decimal.Big) {
	if price == nil {
		return
	}
	if volume == nil {
		volume = new(decimal.Big)
	}
	d.mutex.Lock()
	d.data = indapi.AddTrade(d.data, d.Resolution, timestamp, price, volume)
	d.mutex.Unlock()
}

// Last returns the most recent candle.
func (d *CandleUpdater) Last() (indapi.CandleData, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if len(d.data) == 0 {
		return indapi.CandleData{}, false
	}
	return d.data[len(d.data)-1], true
}

func (d *CandleUpdater) Len() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.data)
}
