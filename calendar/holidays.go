// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
	"github.com/rickar/cal/v2/us"
)

// Date is a civil date in the exchange's local calendar.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// HolidayCalendar is an immutable set of full-day exchange closures.
type HolidayCalendar struct {
	dates map[Date]struct{}
}

func NewHolidayCalendar(dates ...Date) HolidayCalendar {
	h := HolidayCalendar{dates: make(map[Date]struct{}, len(dates))}
	for _, d := range dates {
		h.dates[d] = struct{}{}
	}
	return h
}

func (h HolidayCalendar) Contains(d Date) bool {
	_, ok := h.dates[d]
	return ok
}

func (h HolidayCalendar) Len() int {
	return len(h.dates)
}

// Dates returns all holidays in ascending order.
func (h HolidayCalendar) Dates() []Date {
	dates := make([]Date, 0, len(h.dates))
	for d := range h.dates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func (h HolidayCalendar) Union(o HolidayCalendar) HolidayCalendar {
	u := NewHolidayCalendar()
	for d := range h.dates {
		u.dates[d] = struct{}{}
	}
	for d := range o.dates {
		u.dates[d] = struct{}{}
	}
	return u
}

// NYSE full-day closures as published for 2025 to 2027.
var nyseHolidays = []Date{
	{2025, time.January, 1},   // New Year's Day
	{2025, time.January, 20},  // Martin Luther King Jr. Day
	{2025, time.February, 17}, // Presidents' Day
	{2025, time.April, 18},    // Good Friday
	{2025, time.May, 26},      // Memorial Day
	{2025, time.June, 19},     // Juneteenth
	{2025, time.July, 4},      // Independence Day
	{2025, time.September, 1}, // Labor Day
	{2025, time.November, 27}, // Thanksgiving
	{2025, time.December, 25}, // Christmas Day

	{2026, time.January, 1},
	{2026, time.January, 19},
	{2026, time.February, 16},
	{2026, time.April, 3},
	{2026, time.May, 25},
	{2026, time.June, 19},
	{2026, time.July, 3}, // Independence Day (observed)
	{2026, time.September, 7},
	{2026, time.November, 26},
	{2026, time.December, 25},

	{2027, time.January, 1},
	{2027, time.January, 18},
	{2027, time.February, 15},
	{2027, time.March, 26},
	{2027, time.May, 31},
	{2027, time.June, 18}, // Juneteenth (observed)
	{2027, time.July, 5},  // Independence Day (observed)
	{2027, time.September, 6},
	{2027, time.November, 25},
	{2027, time.December, 24}, // Christmas Day (observed)
}

func NYSEHolidays() HolidayCalendar {
	return NewHolidayCalendar(nyseHolidays...)
}

var nyseHolidayRules = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	aa.GoodFriday,
	us.MemorialDay,
	us.Juneteenth,
	us.IndependenceDay,
	us.LaborDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// RuleHolidays derives NYSE full-day closures for the years from..to (inclusive)
// from holiday rules. Weekend holidays move to the adjacent weekday, except
// that the exchange does not close on the Friday before a Saturday New Year's Day.
func RuleHolidays(from, to int) HolidayCalendar {
	h := NewHolidayCalendar()
	for year := from; year <= to; year++ {
		for _, rule := range nyseHolidayRules {
			_, observed := rule.Calc(year)
			if observed.IsZero() {
				continue
			}
			d := DateOf(observed)
			if d.Year != year || isWeekend(d.Weekday()) {
				continue
			}
			h.dates[d] = struct{}{}
		}
	}
	return h
}

func isWeekend(w time.Weekday) bool {
	return w == time.Saturday || w == time.Sunday
}
