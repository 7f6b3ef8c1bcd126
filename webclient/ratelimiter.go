// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package webclient

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Simple bucket rate limiter (client side) which optionally considers http headers.
// The limit is stored in the upper and the request counter in the lower 32 bits
// of a single word, so both can be swapped at once.
type RateLimiter struct {
	state     atomic.Uint64
	interval  atomic.Int64
	startTime atomic.Int64 // unix milliseconds of the current interval start
}

const MinWaitTime = time.Millisecond * 250

func packState(limit, counter uint64) uint64 {
	return limit<<32 | counter&0xffffffff
}

func unpackState(s uint64) (limit, counter uint64) {
	return s >> 32, s & 0xffffffff
}

// Create a rate limiter to be initialized by http headers.
// Call HandleResponseHeaders to initialize.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{}
}

// Manually initialize rate limiter. The interval starts with the first request.
func NewManualRateLimiter(interval time.Duration, limit uint32) *RateLimiter {
	l := &RateLimiter{}
	l.state.Store(packState(uint64(limit), 0))
	l.interval.Store(int64(interval))
	return l
}

func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		state := l.state.Load()
		limit, counter := unpackState(state)
		if limit == 0 {
			return nil // no limitation
		}

		interval := l.interval.Load()
		startTime := l.startTime.Load()
		if interval > 0 && startTime > 0 {
			endTime := time.UnixMilli(startTime).Add(time.Duration(interval))
			if time.Since(endTime) > 0 {
				if !l.startTime.CompareAndSwap(startTime, endTime.UnixMilli()) {
					continue
				}
				// Subtract instead of setting to zero in order to avoid race conditions.
				l.state.Add(^(counter - 1))
				state -= counter
				counter = 0
			}
		}
		if counter < limit {
			if l.state.CompareAndSwap(state, state+1) {
				return nil
			}
			continue
		}
		// too many requests, poll every MinWaitTime
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(MinWaitTime):
		}
	}
}

// Return the remaining count or max int if not limited.
func (l *RateLimiter) Remaining() int {
	limit, counter := unpackState(l.state.Load())
	if limit == 0 {
		return math.MaxInt
	}
	return max(int(limit)-int(counter), 0)
}

// HandleResponseHeadersWithWait evaluates rate limit headers of a response.
// If the server answered 429, it waits a little and asks for a retry.
// The first call should not run in parallel so that the counter starts correctly.
func (l *RateLimiter) HandleResponseHeadersWithWait(ctx context.Context, resp *http.Response) (retry bool, err error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(MinWaitTime):
			return true, nil
		}
	}
	if l.state.Load() != 0 {
		l.HandleManualTimer()
		return false, nil
	}
	limit, ok := headerInt(resp.Header, "x-ratelimit-limit", "ratelimit-limit")
	if !ok || limit <= 0 {
		return false, nil
	}
	interval := time.Minute // default rate limit reset interval
	if resetUnixTime, ok := headerInt(resp.Header, "x-ratelimit-reset"); ok && resetUnixTime > 0 {
		if d := time.Until(time.Unix(resetUnixTime, 0)).Round(time.Second * 10); d > 0 {
			interval = d
		}
	} else if resetSeconds, ok := headerInt(resp.Header, "ratelimit-reset"); ok && resetSeconds > 0 {
		interval = time.Second * time.Duration(resetSeconds)
	}
	// This response already counts as the first request.
	if l.state.CompareAndSwap(0, packState(uint64(limit), 1)) {
		l.startTime.CompareAndSwap(0, time.Now().UnixMilli())
		l.interval.Store(int64(interval))
	} else {
		l.state.Add(1)
	}
	return false, nil
}

func (l *RateLimiter) HandleManualTimer() {
	if l.interval.Load() > 0 && l.startTime.Load() == 0 {
		l.startTime.CompareAndSwap(0, time.Now().UnixMilli())
	}
}

func headerInt(h http.Header, keys ...string) (int64, bool) {
	for _, k := range keys {
		if v, err := strconv.ParseInt(h.Get(k), 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
