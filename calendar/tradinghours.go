// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package calendar

import (
	"fmt"
	"time"
)

const timeLabelLayout = "3:04 PM"

// Clock is a wall clock time of day in exchange local time.
// 24:00 is allowed as the end of the last window.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if c.Hour < 0 || c.Minute < 0 || c.Minute > 59 || c.minutes() > 24*60 {
		return Clock{}, fmt.Errorf("invalid time of day %q", s)
	}
	return c, nil
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Label formats the clock like "9:30 AM".
func (c Clock) Label() string {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format(timeLabelLayout)
}

// On returns the instant of this clock on the local date of day.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// TradingWindows are the gapless half-open session windows of a trading day:
// [PreMarketStart, CoreStart) pre-market, [CoreStart, ExtendedStart) core trading,
// [ExtendedStart, ExtendedEnd) extended hours. Anything else is closed.
type TradingWindows struct {
	PreMarketStart Clock
	CoreStart      Clock
	ExtendedStart  Clock
	ExtendedEnd    Clock
}

func DefaultTradingWindows() TradingWindows {
	return TradingWindows{
		PreMarketStart: Clock{Hour: 4, Minute: 0},
		CoreStart:      Clock{Hour: 9, Minute: 30},
		ExtendedStart:  Clock{Hour: 16, Minute: 0},
		ExtendedEnd:    Clock{Hour: 20, Minute: 0},
	}
}

func (w TradingWindows) Validate() error {
	if w.PreMarketStart.minutes() < 0 ||
		w.PreMarketStart.minutes() >= w.CoreStart.minutes() ||
		w.CoreStart.minutes() >= w.ExtendedStart.minutes() ||
		w.ExtendedStart.minutes() >= w.ExtendedEnd.minutes() ||
		w.ExtendedEnd.minutes() > 24*60 {
		return fmt.Errorf("trading windows out of order: %s %s %s %s",
			w.PreMarketStart, w.CoreStart, w.ExtendedStart, w.ExtendedEnd)
	}
	return nil
}

// sessionAt classifies a time of day, given as the offset from local midnight.
func (w TradingWindows) sessionAt(sinceMidnight time.Duration) Session {
	switch {
	case sinceMidnight < w.PreMarketStart.offset():
		return SessionClosed
	case sinceMidnight < w.CoreStart.offset():
		return SessionPreMarket
	case sinceMidnight < w.ExtendedStart.offset():
		return SessionCoreTrading
	case sinceMidnight < w.ExtendedEnd.offset():
		return SessionExtendedHours
	default:
		return SessionClosed
	}
}

// nextBoundaryHint names the boundary which ends the session s.
func (w TradingWindows) nextBoundaryHint(s Session, zoneLabel string) string {
	switch s {
	case SessionPreMarket:
		return fmt.Sprintf("Core Trading at %s %s", w.CoreStart.Label(), zoneLabel)
	case SessionCoreTrading:
		return fmt.Sprintf("Extended Hours at %s %s", w.ExtendedStart.Label(), zoneLabel)
	case SessionExtendedHours:
		return fmt.Sprintf("Market Closed at %s %s", w.ExtendedEnd.Label(), zoneLabel)
	default:
		return ""
	}
}
