// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package calc

import (
	"daytrader/indapi"
	"testing"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	d := []indapi.CandleData{
		{ClosePrice: decimal.New(5, 0)},
		{ClosePrice: decimal.New(10, 0)},
		{ClosePrice: decimal.New(15, 0)},
	}
	out := Mean(new(decimal.Big), d)
	value, ok := out.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(10), value)
}

func TestMeanForStdDev(t *testing.T) {
	d := []indapi.CandleData{
		{ClosePrice: decimal.New(300, 0)},
		{ClosePrice: decimal.New(430, 0)},
		{ClosePrice: decimal.New(170, 0)},
		{ClosePrice: decimal.New(470, 0)},
		{ClosePrice: decimal.New(600, 0)},
	}
	out := Mean(new(decimal.Big), d)
	value, ok := out.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(394), value)
}

func TestStdDev(t *testing.T) {
	d := []indapi.CandleData{
		{ClosePrice: decimal.New(46, 0)},
		{ClosePrice: decimal.New(69, 0)},
		{ClosePrice: decimal.New(32, 0)},
		{ClosePrice: decimal.New(60, 0)},
		{ClosePrice: decimal.New(52, 0)},
		{ClosePrice: decimal.New(41, 0)},
	}
	out := StdDev(new(decimal.Big), d)
	assert.Equal(t, 0, out.Quantize(2).CmpTotal(decimal.New(1331, 2)))
}

func TestStdDevPrecise(t *testing.T) {
	d := []indapi.CandleData{
		{ClosePrice: decimal.New(247, 2)},
		{ClosePrice: decimal.New(255, 2)},
		{ClosePrice: decimal.New(251, 2)},
		{ClosePrice: decimal.New(239, 2)},
		{ClosePrice: decimal.New(241, 2)},
		{ClosePrice: decimal.New(247, 2)},
		{ClosePrice: decimal.New(244, 2)},
		{ClosePrice: decimal.New(250, 2)},
		{ClosePrice: decimal.New(246, 2)},
		{ClosePrice: decimal.New(255, 2)},
		{ClosePrice: decimal.New(251, 2)},
		{ClosePrice: decimal.New(232, 2)},
		{ClosePrice: decimal.New(250, 2)},
		{ClosePrice: decimal.New(254, 2)},
		{ClosePrice: decimal.New(251, 2)},
	}
	out := StdDev(new(decimal.Big), d)
	assert.Equal(t, 0, out.Quantize(3).CmpTotal(decimal.New(64, 3)))
}

func newTestCandles(closes ...int64) []indapi.CandleData {
	start := time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)
	d := make([]indapi.CandleData, len(closes))
	for i, c := range closes {
		d[i] = indapi.CandleData{
			Timestamp:  start.Add(time.Duration(i) * time.Minute * 5),
			OpenPrice:  decimal.New(c, 0),
			HighPrice:  decimal.New(c, 0),
			LowPrice:   decimal.New(c, 0),
			ClosePrice: decimal.New(c, 0),
			Volume:     decimal.New(100, 0),
		}
	}
	return d
}

func TestSMA(t *testing.T) {
	d := newTestCandles(1, 2, 3, 4, 5)
	s := SMA(indapi.NewPrices(d), 3)
	assert.Len(t, s, 3)
	assert.Equal(t, d[2].Timestamp, s[0].Timestamp)
	assert.Equal(t, []float64{2, 3, 4}, []float64{s[0].Value, s[1].Value, s[2].Value})
	assert.Nil(t, SMA(indapi.NewPrices(d), 6))
}

func TestEMA(t *testing.T) {
	d := newTestCandles(1, 2, 3, 4, 5)
	s := EMA(indapi.NewPrices(d), 3)
	assert.Len(t, s, 3)
	assert.Equal(t, d[2].Timestamp, s[0].Timestamp)
	assert.Equal(t, d[4].Timestamp, s[2].Timestamp)
	assert.Equal(t, []float64{2, 3, 4}, []float64{s[0].Value, s[1].Value, s[2].Value})
}

func TestVWAP(t *testing.T) {
	d := newTestCandles(2, 3, 6)
	d[0].HighPrice, d[0].LowPrice, d[0].Volume = decimal.New(3, 0), decimal.New(1, 0), decimal.New(0, 0)
	d[1].HighPrice, d[1].LowPrice, d[1].Volume = decimal.New(6, 0), decimal.New(3, 0), decimal.New(10, 0)
	d[2].HighPrice, d[2].LowPrice, d[2].Volume = decimal.New(9, 0), decimal.New(6, 0), decimal.New(30, 0)
	s := VWAP(indapi.NewPrices(d))
	assert.Len(t, s, 2)
	assert.Equal(t, d[1].Timestamp, s[0].Timestamp)
	assert.Equal(t, 4.0, s[0].Value)
	assert.Equal(t, 6.25, s[1].Value)
}

func TestBollinger(t *testing.T) {
	d := newTestCandles(2, 4, 4, 4, 5, 5, 7, 9)
	b := Bollinger(d, 8, 2)
	assert.Len(t, b.Middle, 1)
	assert.Equal(t, 5.0, b.Middle[0].Value)
	assert.Equal(t, 9.0, b.Upper[0].Value)
	assert.Equal(t, 1.0, b.Lower[0].Value)
	assert.Empty(t, Bollinger(d, 9, 2).Middle)
}
