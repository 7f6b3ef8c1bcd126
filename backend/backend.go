// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package backend

import (
	"daytrader/config"
	"daytrader/webclient"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var ErrMissingToken = errors.New("backend token is missing")

// NewClient creates a backend client according to the configuration.
func NewClient(c config.Config, logger zerolog.Logger) (*webclient.Client, error) {
	appConfig, err := c.Copy()
	if err != nil {
		return nil, err
	}
	b := appConfig.Backend
	if len(b.Token) == 0 {
		return nil, ErrMissingToken
	}
	return webclient.NewClient(webclient.ClientConfig{
		BaseUrl:            b.ApiUrl,
		Token:              b.Token,
		Timeout:            time.Second * time.Duration(b.TimeoutSeconds),
		RateLimitPerSecond: b.RateLimitPerSecond,
	}, logger), nil
}

func IsValidConfig(c config.Config) bool {
	appConfig, err := c.Copy()
	if err != nil {
		return false
	}
	return len(appConfig.Backend.ApiUrl) > 0 && len(appConfig.Backend.Token) > 0
}
