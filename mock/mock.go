// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package mock

import (
	"bufio"
	"daytrader/config"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// NewLogger returns a logger writing json lines which can be read using the scanner.
func NewLogger(t *testing.T) (zerolog.Logger, *bufio.Scanner) {
	r, w, err := os.Pipe()
	if err != nil {
		assert.Fail(t, "failed to create logger mock: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	t.Cleanup(func() { w.Close() })
	return zerolog.New(w).Level(zerolog.DebugLevel), bufio.NewScanner(r)
}

// NewBackendConfig returns a test configuration using the given backend url.
// Retries are not delayed, to keep tests fast.
func NewBackendConfig(apiUrl string) config.Config {
	c := config.NewTestConfig()
	appConfig, _ := c.Lock()
	appConfig.Backend.ApiUrl = apiUrl
	appConfig.Backend.WsUrl = "ws" + strings.TrimPrefix(apiUrl, "http") + "/ws/trades"
	appConfig.Backend.Token = "test-token"
	appConfig.Backend.RateLimitPerSecond = 0
	appConfig.Refresh.RetryDelay = time.Millisecond
	_ = c.Unlock(appConfig)
	return c
}

// NewClock returns a clock function which always returns t.
func NewClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
