// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package calendar

import (
	"fmt"
	"time"
)

const DefaultLocation = "America/New_York"
const DefaultZoneLabel = "ET"

// ConfigurationError is returned if the exchange calendar cannot be set up,
// e.g. because the time zone database is missing. It is not worth retrying.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("exchange calendar configuration %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ExchangeCalendar classifies instants into trading sessions.
// It holds no mutable state and may be shared between goroutines.
type ExchangeCalendar struct {
	location  *time.Location
	zoneLabel string
	holidays  HolidayCalendar
	windows   TradingWindows
	now       func() time.Time
}

type options struct {
	locationName string
	zoneLabel    string
	holidays     HolidayCalendar
	windows      TradingWindows
	now          func() time.Time
}

type Option func(*options)

func WithLocation(name string) Option {
	return func(o *options) { o.locationName = name }
}

func WithZoneLabel(label string) Option {
	return func(o *options) { o.zoneLabel = label }
}

func WithHolidays(h HolidayCalendar) Option {
	return func(o *options) { o.holidays = h }
}

func WithWindows(w TradingWindows) Option {
	return func(o *options) { o.windows = w }
}

// WithClock replaces time.Now as the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewExchangeCalendar(opts ...Option) (*ExchangeCalendar, error) {
	o := options{
		locationName: DefaultLocation,
		zoneLabel:    DefaultZoneLabel,
		holidays:     NYSEHolidays(),
		windows:      DefaultTradingWindows(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	loc, err := time.LoadLocation(o.locationName)
	if err != nil {
		return nil, &ConfigurationError{Setting: "time zone " + o.locationName, Err: err}
	}
	if err = o.windows.Validate(); err != nil {
		return nil, &ConfigurationError{Setting: "trading windows", Err: err}
	}
	return &ExchangeCalendar{
		location:  loc,
		zoneLabel: o.zoneLabel,
		holidays:  o.holidays,
		windows:   o.windows,
		now:       o.now,
	}, nil
}

// NewUSExchangeCalendar returns the NYSE calendar with its default windows and holidays.
func NewUSExchangeCalendar() (*ExchangeCalendar, error) {
	return NewExchangeCalendar()
}

func (c *ExchangeCalendar) Location() *time.Location {
	return c.location
}

func (c *ExchangeCalendar) Windows() TradingWindows {
	return c.windows
}

func (c *ExchangeCalendar) Holidays() HolidayCalendar {
	return c.holidays
}

func (c *ExchangeCalendar) IsHoliday(t time.Time) bool {
	return c.holidays.Contains(DateOf(t.In(c.location)))
}

func (c *ExchangeCalendar) IsTradingDay(t time.Time) bool {
	return !isWeekend(t.In(c.location).Weekday()) && !c.IsHoliday(t)
}

// NextTradingDay returns local midnight of the first trading day after the date of t.
func (c *ExchangeCalendar) NextTradingDay(t time.Time) time.Time {
	return c.skipClosedDays(midnight(t.In(c.location)).AddDate(0, 0, 1))
}

// Classify determines the trading session at instant t.
// Each local date is evaluated on its own, so the hours after midnight never
// belong to the previous day's extended session.
func (c *ExchangeCalendar) Classify(t time.Time) SessionStatus {
	local := t.In(c.location)

	var session Session
	var closure Closure
	switch {
	case c.IsHoliday(local):
		session, closure = SessionHoliday, ClosureHoliday
	case isWeekend(local.Weekday()):
		session, closure = SessionClosed, ClosureWeekend
	default:
		sinceMidnight := wallClock(local)
		session = c.windows.sessionAt(sinceMidnight)
		if session == SessionClosed {
			closure = ClosureAfterHours
			if sinceMidnight < c.windows.PreMarketStart.offset() {
				closure = ClosureOvernight
			}
		}
	}

	status := newSessionStatus(session, local, c.zoneLabel)
	status.Closure = closure
	if session.IsOpen() {
		status.NextSessionHint = c.windows.nextBoundaryHint(session, c.zoneLabel)
	} else {
		next := c.nextPreMarketOpen(local)
		status.NextSessionHint = fmt.Sprintf("Pre-Market opens %s at %s %s",
			next.Format("Mon, Jan 2, 2006"), c.windows.PreMarketStart.Label(), c.zoneLabel)
	}
	return status
}

// Now classifies the current instant.
func (c *ExchangeCalendar) Now() SessionStatus {
	return c.Classify(c.now())
}

func (c *ExchangeCalendar) IsOpen(t time.Time) bool {
	return c.Classify(t).IsOpen
}

func (c *ExchangeCalendar) IsOpenNow() bool {
	return c.Now().IsOpen
}

func (c *ExchangeCalendar) IsSession(t time.Time, s Session) bool {
	return c.Classify(t).Session == s
}

// TimeUntilNextSession returns the wait until the next pre-market open.
// The second return value is false while the market is open.
func (c *ExchangeCalendar) TimeUntilNextSession(t time.Time) (NextSession, bool) {
	if c.IsOpen(t) {
		return NextSession{}, false
	}
	local := t.In(c.location)
	return newNextSession(local, c.nextPreMarketOpen(local)), true
}

// nextPreMarketOpen returns the first pre-market start after local. Today counts
// if it is a trading day and pre-market has not started yet.
func (c *ExchangeCalendar) nextPreMarketOpen(local time.Time) time.Time {
	day := midnight(local)
	if wallClock(local) >= c.windows.PreMarketStart.offset() {
		day = day.AddDate(0, 0, 1)
	}
	return c.windows.PreMarketStart.On(c.skipClosedDays(day))
}

func (c *ExchangeCalendar) skipClosedDays(day time.Time) time.Time {
	for isWeekend(day.Weekday()) || c.IsHoliday(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// wallClock returns the local time of day as an offset from a nominal midnight,
// which is independent of daylight saving transitions.
func wallClock(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}
