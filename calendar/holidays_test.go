// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package calendar

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNYSEHolidaysAreWeekdays(t *testing.T) {
	h := NYSEHolidays()
	assert.Equal(t, 30, h.Len())
	for _, d := range h.Dates() {
		assert.False(t, isWeekend(d.Weekday()), "%s is on a weekend", d)
	}
}

func TestRuleHolidaysMatchPublishedTable(t *testing.T) {
	published := NYSEHolidays().Dates()
	derived := RuleHolidays(2025, 2027).Dates()
	if diff := cmp.Diff(published, derived); diff != "" {
		t.Errorf("rule holidays differ from published table (-published +derived):\n%s", diff)
	}
}

func TestRuleHolidaysSaturdayNewYear(t *testing.T) {
	// 2022-01-01 was a Saturday, the exchange did not close on 2021-12-31.
	h := RuleHolidays(2021, 2022)
	assert.False(t, h.Contains(Date{2021, time.December, 31}))
	assert.False(t, h.Contains(Date{2022, time.January, 1}))
	// Christmas 2021 was a Saturday, observed on Friday.
	assert.True(t, h.Contains(Date{2021, time.December, 24}))
}

func TestHolidayCalendarUnion(t *testing.T) {
	extra := NewHolidayCalendar(Date{2025, time.January, 9})
	u := NYSEHolidays().Union(extra)
	assert.Equal(t, 31, u.Len())
	assert.True(t, u.Contains(Date{2025, time.January, 9}))
	assert.True(t, u.Contains(Date{2025, time.January, 1}))
	// Inputs remain unchanged.
	assert.Equal(t, 1, extra.Len())
	assert.False(t, NYSEHolidays().Contains(Date{2025, time.January, 9}))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-05-26")
	assert.NoError(t, err)
	assert.Equal(t, Date{2025, time.May, 26}, d)
	assert.Equal(t, "2025-05-26", d.String())
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = ParseDate("26.05.2025")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	assert.NoError(t, err)
	assert.Equal(t, Clock{Hour: 9, Minute: 30}, c)
	assert.Equal(t, "9:30 AM", c.Label())

	c, err = ParseClock("24:00")
	assert.NoError(t, err)
	assert.Equal(t, 24*60, c.minutes())

	for _, s := range []string{"", "24:01", "12:60", "-1:00", "noon"} {
		_, err = ParseClock(s)
		assert.Error(t, err, s)
	}
}
