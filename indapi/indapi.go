// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package indapi

import (
	"daytrader/indapi/candles"
	"sort"
	"time"

	"github.com/ericlagergren/decimal"
)

type IndicatorId string

const (
	IndicatorSMA9   IndicatorId = "sma9"
	IndicatorEMA9   IndicatorId = "ema9"
	IndicatorEMA20  IndicatorId = "ema20"
	IndicatorSMA200 IndicatorId = "sma200"
	IndicatorVWAP   IndicatorId = "vwap"
)

// For sorting
type IndicatorList []IndicatorId

func (x IndicatorList) Len() int           { return len(x) }
func (x IndicatorList) Less(i, j int) bool { return x[i] < x[j] }
func (x IndicatorList) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }

type CandleData struct {
	Timestamp  time.Time
	OpenPrice  *decimal.Big
	HighPrice  *decimal.Big
	LowPrice   *decimal.Big
	ClosePrice *decimal.Big
	Volume     *decimal.Big
}

// For sorting
type CandleList []CandleData

func (x CandleList) Len() int           { return len(x) }
func (x CandleList) Less(i, j int) bool { return x[i].Timestamp.Before(x[j].Timestamp) }
func (x CandleList) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }

// Point is a single value of an indicator series.
type Point struct {
	Timestamp time.Time `json:"time"`
	Value     float64   `json:"value"`
}

type Series []Point

// Prices holds float values of candles, as required by indicator calculations.
type Prices struct {
	Timestamps  []time.Time
	OpenPrices  []float64
	HighPrices  []float64
	LowPrices   []float64
	ClosePrices []float64
	Volumes     []float64
}

func NewPrices(data []CandleData) Prices {
	p := Prices{
		Timestamps:  make([]time.Time, len(data)),
		OpenPrices:  make([]float64, len(data)),
		HighPrices:  make([]float64, len(data)),
		LowPrices:   make([]float64, len(data)),
		ClosePrices: make([]float64, len(data)),
		Volumes:     make([]float64, len(data)),
	}
	for i, c := range data {
		p.Timestamps[i] = c.Timestamp
		p.OpenPrices[i] = toFloat(c.OpenPrice)
		p.HighPrices[i] = toFloat(c.HighPrice)
		p.LowPrices[i] = toFloat(c.LowPrice)
		p.ClosePrices[i] = toFloat(c.ClosePrice)
		p.Volumes[i] = toFloat(c.Volume)
	}
	return p
}

func toFloat(d *decimal.Big) float64 {
	if d == nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// NewSeries combines timestamps and values, skipping the first skip entries
// which are not yet meaningful.
func NewSeries(timestamps []time.Time, values []float64, skip int) Series {
	if skip < 0 {
		skip = 0
	}
	if skip > len(values) {
		skip = len(values)
	}
	s := make(Series, 0, len(values)-skip)
	for i := skip; i < len(values) && i < len(timestamps); i++ {
		s = append(s, Point{Timestamp: timestamps[i], Value: values[i]})
	}
	return s
}

// MergeCandles adds candles to data, sorts them by time and removes duplicates.
// Newer candles replace older ones with the same timestamp.
func MergeCandles(data []CandleData, newData []CandleData) []CandleData {
	merged := append(append([]CandleData(nil), data...), newData...)
	sort.Stable(CandleList(merged))
	k := 0
	for i := range merged {
		if i < len(merged)-1 && merged[i].Timestamp.Equal(merged[i+1].Timestamp) {
			continue
		}
		merged[k] = merged[i]
		k++
	}
	return merged[:k]
}

// AddTrade updates the last candle with a trade or appends a new candle.
// Trades older than the last candle are ignored.
func AddTrade(data []CandleData, r candles.CandleResolution, timestamp time.Time, price *decimal.Big, volume *decimal.Big) []CandleData {
	if len(data) == 0 {
		return append(data, newTradeCandle(r.GetNthCandleTime(timestamp, 0), price, volume))
	}
	last := &data[len(data)-1]
	candleTime := r.GetNthCandleTime(timestamp, 0)
	if candleTime.Before(last.Timestamp) {
		return data
	}
	if candleTime.After(last.Timestamp) {
		return append(data, newTradeCandle(candleTime, price, volume))
	}
	// Prices should never be modified. Therefore, we use the original price object without copying.
	if last.HighPrice == nil || price.Cmp(last.HighPrice) > 0 {
		last.HighPrice = price
	}
	if last.LowPrice == nil || price.Cmp(last.LowPrice) < 0 {
		last.LowPrice = price
	}
	if last.OpenPrice == nil {
		last.OpenPrice = price
	}
	last.ClosePrice = price
	if volume != nil {
		v := new(decimal.Big)
		if last.Volume != nil {
			v.Copy(last.Volume)
		}
		last.Volume = v.Add(v, volume)
	}
	return data
}

func newTradeCandle(t time.Time, price *decimal.Big, volume *decimal.Big) CandleData {
	v := new(decimal.Big)
	if volume != nil {
		v.Copy(volume)
	}
	return CandleData{
		Timestamp:  t,
		OpenPrice:  price,
		HighPrice:  price,
		LowPrice:   price,
		ClosePrice: price,
		Volume:     v,
	}
}
