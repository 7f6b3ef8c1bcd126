// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package calc

import (
	"daytrader/indapi"
	"time"

	"github.com/cinar/indicator"
	"github.com/ericlagergren/decimal"
)

func Mean(out *decimal.Big, val []indapi.CandleData) *decimal.Big {
	out.SetUint64(0)
	for i := range val {
		out.Add(out, val[i].ClosePrice)
	}
	out.Quo(out, new(decimal.Big).SetUint64(uint64(len(val))))
	return out
}

func StdDev(out *decimal.Big, val []indapi.CandleData) *decimal.Big {
	out.SetUint64(0)
	if len(val) == 0 {
		return out
	}
	m := Mean(new(decimal.Big), val)
	for i := 0; i < len(val); i++ {
		v := new(decimal.Big).Copy(val[i].ClosePrice)
		v.Sub(v, m)
		v.Mul(v, v)
		out.Add(out, v)
	}
	out.Quo(out, new(decimal.Big).SetUint64(uint64(len(val))))
	return out.Context.Sqrt(out, out)
}

// SMA returns the simple moving average of close prices.
// The series starts with the first complete period.
func SMA(p indapi.Prices, period int) indapi.Series {
	if period <= 0 || len(p.ClosePrices) < period {
		return nil
	}
	return indapi.NewSeries(p.Timestamps, indicator.Sma(period, p.ClosePrices), period-1)
}

// EMA returns the exponential moving average of close prices, seeded with the
// simple average of the first period.
func EMA(p indapi.Prices, period int) indapi.Series {
	if period <= 0 || len(p.ClosePrices) < period {
		return nil
	}
	seed := 0.0
	for _, v := range p.ClosePrices[:period] {
		seed += v
	}
	values := make([]float64, 0, len(p.ClosePrices)-period+1)
	values = append(values, seed/float64(period))
	values = append(values, p.ClosePrices[period:]...)
	return indapi.NewSeries(p.Timestamps[period-1:], indicator.Ema(period, values), 0)
}

// VWAP returns the volume weighted average of the typical price (high+low+close)/3,
// accumulated from the first candle. Candles before the first volume are skipped.
func VWAP(p indapi.Prices) indapi.Series {
	var s indapi.Series
	cumulativeVolume := 0.0
	cumulativeVolumePrice := 0.0
	for i := range p.ClosePrices {
		typicalPrice := (p.HighPrices[i] + p.LowPrices[i] + p.ClosePrices[i]) / 3
		cumulativeVolumePrice += typicalPrice * p.Volumes[i]
		cumulativeVolume += p.Volumes[i]
		if cumulativeVolume > 0 {
			s = append(s, indapi.Point{Timestamp: p.Timestamps[i], Value: cumulativeVolumePrice / cumulativeVolume})
		}
	}
	return s
}

type BollingerBands struct {
	Upper  indapi.Series
	Middle indapi.Series
	Lower  indapi.Series
}

// Bollinger calculates bands of width standard deviations around the moving average.
func Bollinger(data []indapi.CandleData, period int, width int) BollingerBands {
	var b BollingerBands
	if period <= 0 {
		return b
	}
	w := decimal.New(int64(width), 0)
	for i := period - 1; i < len(data); i++ {
		window := data[i-period+1 : i+1]
		mid := Mean(new(decimal.Big), window)
		dev := StdDev(new(decimal.Big), window)
		dev.Mul(dev, w)
		upper := new(decimal.Big).Add(mid, dev)
		lower := new(decimal.Big).Sub(mid, dev)
		t := data[i].Timestamp
		b.Upper = append(b.Upper, point(t, upper))
		b.Middle = append(b.Middle, point(t, mid))
		b.Lower = append(b.Lower, point(t, lower))
	}
	return b
}

func point(t time.Time, d *decimal.Big) indapi.Point {
	f, _ := d.Float64()
	return indapi.Point{Timestamp: t, Value: f}
}
