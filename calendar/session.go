// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package calendar

import "time"

type Session int

const (
	SessionClosed Session = iota
	SessionHoliday
	SessionPreMarket
	SessionCoreTrading
	SessionExtendedHours
)

func (s Session) String() string {
	switch s {
	case SessionClosed:
		return "closed"
	case SessionHoliday:
		return "holiday"
	case SessionPreMarket:
		return "pre_market"
	case SessionCoreTrading:
		return "core_trading"
	case SessionExtendedHours:
		return "extended_hours"
	default:
		return "unknown"
	}
}

// Description is the fixed display label of a session.
func (s Session) Description() string {
	switch s {
	case SessionHoliday:
		return "NYSE Holiday"
	case SessionPreMarket:
		return "Pre-Market"
	case SessionCoreTrading:
		return "Market Open"
	case SessionExtendedHours:
		return "Extended Hours"
	default:
		return "Market Closed"
	}
}

func (s Session) IsOpen() bool {
	return s == SessionPreMarket || s == SessionCoreTrading || s == SessionExtendedHours
}

func (s Session) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type DataStrategy string

const (
	DataStrategyLive          DataStrategy = "live"
	DataStrategyPreviousClose DataStrategy = "previous_close"
)

// Closure tells why a closed status is closed. It is empty while a session is open.
type Closure string

const (
	ClosureNone       Closure = ""
	ClosureWeekend    Closure = "weekend"
	ClosureHoliday    Closure = "holiday"
	ClosureOvernight  Closure = "overnight"
	ClosureAfterHours Closure = "after_hours"
)

type SessionStatus struct {
	Session           Session      `json:"session"`
	IsOpen            bool         `json:"isOpen"`
	Description       string       `json:"description"`
	NextSessionHint   string       `json:"nextSession"`
	CurrentTimeLabel  string       `json:"currentTime"`
	TimeZoneLabel     string       `json:"timeZone"`
	ShouldAutoRefresh bool         `json:"shouldAutoRefresh"`
	DataStrategy      DataStrategy `json:"dataStrategy"`
	Closure           Closure      `json:"closure,omitempty"`
	LocalTime         time.Time    `json:"localTime"`
}

func newSessionStatus(s Session, local time.Time, zoneLabel string) SessionStatus {
	status := SessionStatus{
		Session:           s,
		IsOpen:            s.IsOpen(),
		Description:       s.Description(),
		CurrentTimeLabel:  local.Format(timeLabelLayout),
		TimeZoneLabel:     zoneLabel,
		ShouldAutoRefresh: s.IsOpen(),
		DataStrategy:      DataStrategyPreviousClose,
		LocalTime:         local,
	}
	if status.IsOpen {
		status.DataStrategy = DataStrategyLive
	}
	return status
}

// NextSession describes the wait until the next pre-market open.
type NextSession struct {
	Start        time.Time
	Until        time.Duration
	Hours        int
	Minutes      int
	TotalMinutes int
}

func newNextSession(from, start time.Time) NextSession {
	until := start.Sub(from)
	total := int(until / time.Minute)
	return NextSession{
		Start:        start,
		Until:        until,
		Hours:        int(until / time.Hour),
		Minutes:      total % 60,
		TotalMinutes: total,
	}
}
