// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chart

import (
	"context"
	"daytrader/indapi/candles"
	"fmt"
)

const preferencesPath = "/api/user/chart-preferences"

type Preferences struct {
	DefaultTimeframe candles.CandleResolution `json:"defaultTimeframe"`
	Indicators       Indicators               `json:"indicators"`
	ChartType        string                   `json:"chartType"`
	Theme            string                   `json:"theme"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		DefaultTimeframe: DefaultResolution,
		Indicators: Indicators{
			VWAP: true,
			EMA9: true,
		},
		ChartType: "candlestick",
		Theme:     "dark",
	}
}

// Preferences loads the chart preferences of the user.
// Values missing in the reply keep their defaults.
func (c *Chart) Preferences(ctx context.Context) (Preferences, error) {
	p := DefaultPreferences()
	if err := c.client.Get(ctx, preferencesPath, nil, &p); err != nil {
		return DefaultPreferences(), fmt.Errorf("chart preferences: %w", err)
	}
	return p, nil
}

func (c *Chart) SavePreferences(ctx context.Context, p Preferences) error {
	var reply map[string]any
	if err := c.client.Post(ctx, preferencesPath, p, &reply); err != nil {
		return fmt.Errorf("saving chart preferences: %w", err)
	}
	return nil
}
