// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package config

import (
	"daytrader/calendar"
	"fmt"
)

// Windows parses the configured session boundaries.
func (m MarketConfig) Windows() (calendar.TradingWindows, error) {
	var w calendar.TradingWindows
	clocks := []struct {
		name  string
		value string
		dst   *calendar.Clock
	}{
		{"PreMarketStart", m.PreMarketStart, &w.PreMarketStart},
		{"CoreStart", m.CoreStart, &w.CoreStart},
		{"ExtendedStart", m.ExtendedStart, &w.ExtendedStart},
		{"ExtendedEnd", m.ExtendedEnd, &w.ExtendedEnd},
	}
	for _, c := range clocks {
		clock, err := calendar.ParseClock(c.value)
		if err != nil {
			return calendar.TradingWindows{}, fmt.Errorf("market %s: %w", c.name, err)
		}
		*c.dst = clock
	}
	return w, w.Validate()
}

// Holidays returns the built-in table extended by configured dates and rule years.
func (m MarketConfig) Holidays() (calendar.HolidayCalendar, error) {
	h := calendar.NYSEHolidays()
	if m.RuleHolidayYears != nil {
		h = h.Union(calendar.RuleHolidays(m.RuleHolidayYears.From, m.RuleHolidayYears.To))
	}
	extra := make([]calendar.Date, 0, len(m.ExtraHolidays))
	for _, s := range m.ExtraHolidays {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return calendar.HolidayCalendar{}, fmt.Errorf("market holiday: %w", err)
		}
		extra = append(extra, d)
	}
	return h.Union(calendar.NewHolidayCalendar(extra...)), nil
}

// CalendarOptions converts the market section for calendar.NewExchangeCalendar.
func (m MarketConfig) CalendarOptions() ([]calendar.Option, error) {
	windows, err := m.Windows()
	if err != nil {
		return nil, &calendar.ConfigurationError{Setting: "trading windows", Err: err}
	}
	holidays, err := m.Holidays()
	if err != nil {
		return nil, &calendar.ConfigurationError{Setting: "holidays", Err: err}
	}
	return []calendar.Option{
		calendar.WithLocation(m.TimeZone),
		calendar.WithZoneLabel(m.ZoneLabel),
		calendar.WithWindows(windows),
		calendar.WithHolidays(holidays),
	}, nil
}
