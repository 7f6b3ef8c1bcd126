// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package candles

import (
	"fmt"
	"strings"
	"time"
)

type CandleResolution int32

const (
	CandleOneMinute CandleResolution = iota
	CandleFiveMinutes
	CandleFifteenMinutes
	CandleThirtyMinutes
	CandleSixtyMinutes
	CandleOneDay
	CandleOneWeek
	CandleOneMonth
)

const NumCandleResolutions = CandleOneMonth + 1

type resolutionInfo struct {
	// Resolution code as used by the market data backend.
	code string
	// Candle length of intraday resolutions, 0 for day based resolutions.
	minutes int
}

var resolutions = [NumCandleResolutions]resolutionInfo{
	{"1", 1},
	{"5", 5},
	{"15", 15},
	{"30", 30},
	{"60", 60},
	{"D", 0},
	{"W", 0},
	{"M", 0},
}

func (r CandleResolution) info() resolutionInfo {
	if r < 0 || r >= NumCandleResolutions {
		panic("unsupported candle resolution")
	}
	return resolutions[r]
}

// ParseCandleResolution accepts backend codes such as "5" or "D".
func ParseCandleResolution(s string) (CandleResolution, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, info := range resolutions {
		if info.code == s {
			return CandleResolution(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported candle resolution %q", s)
}

func (r CandleResolution) String() string {
	if r < 0 || r >= NumCandleResolutions {
		return fmt.Sprintf("CandleResolution(%d)", int32(r))
	}
	return resolutions[r].code
}

func (r CandleResolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *CandleResolution) UnmarshalText(b []byte) error {
	p, err := ParseCandleResolution(string(b))
	if err != nil {
		return err
	}
	*r = p
	return nil
}

func (r CandleResolution) IsIntraday() bool {
	return r < CandleOneDay
}

// FormatString returns a time layout for labelling candles of this resolution.
func (r CandleResolution) FormatString() string {
	if r.IsIntraday() {
		return "Jan 2 15:04"
	}
	return time.DateOnly
}

// GetDuration returns the length of the candle containing t.
// Day based candles consider daylight saving time of t's location.
func (r CandleResolution) GetDuration(t time.Time) time.Duration {
	if m := r.info().minutes; m > 0 {
		return time.Duration(m) * time.Minute
	}
	start := r.periodStart(t, t.Location())
	return r.nextPeriodStart(start).Sub(start)
}

func (r CandleResolution) GetNthCandleTime(t time.Time, n int) time.Time {
	// Get 0th candle time first, so that n = 0 works.
	t = r.getRecentCandleStartTime(t)
	for i := 0; i > n; i-- {
		// Go one second back to the previous interval to get the correct duration.
		t = t.Add(-r.GetDuration(t.Add(-time.Second)))
	}
	for i := 0; i < n; i++ {
		t = t.Add(r.GetDuration(t))
	}
	return t
}

func (r CandleResolution) getRecentCandleStartTime(t time.Time) time.Time {
	if m := r.info().minutes; m > 0 {
		minutes := t.Hour()*60 + t.Minute()
		minutes -= minutes % m
		y, mo, d := t.Date()
		return time.Date(y, mo, d, minutes/60, minutes%60, 0, 0, t.Location())
	}
	// We use UTC start of day as normalised start of day-based candles.
	// The backend may use timestamps of closing time, which may even be non-constant.
	return r.periodStart(t, time.UTC)
}

// periodStart returns midnight in loc at the start of the day, week or month containing t.
// Candlestick weeks start on Mondays.
func (r CandleResolution) periodStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	switch r {
	case CandleOneWeek:
		d -= (int(t.Weekday()) + 6) % 7
	case CandleOneMonth:
		d = 1
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (r CandleResolution) nextPeriodStart(start time.Time) time.Time {
	switch r {
	case CandleOneWeek:
		return start.AddDate(0, 0, 7)
	case CandleOneMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}
