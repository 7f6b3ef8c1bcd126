// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package candles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthDuration(t *testing.T) {
	// December has 31 days
	d := CandleOneMonth.GetDuration(time.Date(2022, 12, 24, 10, 10, 10, 0, time.UTC))
	assert.Equal(t, float64(44640), d.Minutes())
	// June has 30 days
	d = CandleOneMonth.GetDuration(time.Date(2022, 6, 24, 10, 10, 10, 0, time.UTC))
	assert.Equal(t, float64(43200), d.Minutes())
}

func TestWeekDuration(t *testing.T) {
	// Normal week.
	d := CandleOneWeek.GetDuration(time.Date(2022, 12, 7, 10, 10, 10, 0, time.UTC))
	assert.Equal(t, float64(10080), d.Minutes())
	// Week with DST
	loc, err := time.LoadLocation("Europe/Berlin")
	assert.NoError(t, err)
	dst := time.Date(2022, 10, 29, 10, 10, 10, 0, loc)
	assert.True(t, dst.IsDST()) // This should use daylight saving time.
	d = CandleOneWeek.GetDuration(dst)
	assert.Equal(t, float64(10140), d.Minutes())
}

func TestDayDuration(t *testing.T) {
	// Normal day.
	d := CandleOneDay.GetDuration(time.Date(2022, 12, 6, 10, 10, 10, 0, time.UTC))
	assert.Equal(t, float64(1440), d.Minutes())
	// Day with DST
	loc, err := time.LoadLocation("Europe/Berlin")
	assert.NoError(t, err)
	dst := time.Date(2022, 10, 30, 10, 10, 10, 0, loc)
	d = CandleOneDay.GetDuration(dst)
	assert.Equal(t, float64(1500), d.Minutes())
}

func TestGetNthCandleTime(t *testing.T) {
	r := CandleOneMonth
	d := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	n := r.GetNthCandleTime(d, 1)
	assert.True(t, n.Equal(time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)))
	n = r.GetNthCandleTime(d, 12)
	assert.True(t, n.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	n = r.GetNthCandleTime(d, -1)
	assert.True(t, n.Equal(time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)))
	n = r.GetNthCandleTime(d, -12)
	assert.True(t, n.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestGetZerothCandleTime(t *testing.T) {
	r := CandleOneMonth
	d := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	n := r.GetNthCandleTime(d, 0)
	assert.True(t, n.Equal(d))
	r = CandleOneWeek
	d = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	n = r.GetNthCandleTime(d, 0)
	assert.True(t, n.Equal(d))
	d2 := time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)
	n = r.GetNthCandleTime(d2, 0)
	assert.True(t, n.Equal(d))
}

func TestParseCandleResolution(t *testing.T) {
	r, err := ParseCandleResolution("5")
	assert.NoError(t, err)
	assert.Equal(t, CandleFiveMinutes, r)
	r, err = ParseCandleResolution("d")
	assert.NoError(t, err)
	assert.Equal(t, CandleOneDay, r)
	assert.False(t, r.IsIntraday())
	assert.Equal(t, "60", CandleSixtyMinutes.String())
	_, err = ParseCandleResolution("2")
	assert.Error(t, err)

	var u CandleResolution
	assert.NoError(t, u.UnmarshalText([]byte("15")))
	assert.Equal(t, CandleFifteenMinutes, u)
}

func TestGetNthCandleTimeIntraday(t *testing.T) {
	r := CandleFiveMinutes
	d := time.Date(2025, 1, 6, 9, 33, 12, 0, time.UTC)
	assert.True(t, r.GetNthCandleTime(d, 0).Equal(time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)))
	assert.True(t, r.GetNthCandleTime(d, 2).Equal(time.Date(2025, 1, 6, 9, 40, 0, 0, time.UTC)))
}

func TestIntradayDuration(t *testing.T) {
	d := time.Date(2025, 3, 9, 1, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Minute*15, CandleFifteenMinutes.GetDuration(d))
	assert.Equal(t, time.Hour, CandleSixtyMinutes.GetDuration(d))
	assert.True(t, CandleSixtyMinutes.GetNthCandleTime(d, -1).Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, CandleThirtyMinutes.GetNthCandleTime(d, 1).Equal(time.Date(2025, 3, 9, 2, 0, 0, 0, time.UTC)))
}

func TestFormatString(t *testing.T) {
	d := time.Date(2025, 1, 6, 9, 35, 0, 0, time.UTC)
	assert.Equal(t, "Jan 6 09:35", d.Format(CandleFiveMinutes.FormatString()))
	assert.Equal(t, "2025-01-06", d.Format(CandleOneWeek.FormatString()))
	assert.Equal(t, "CandleResolution(9)", CandleResolution(9).String())
}
