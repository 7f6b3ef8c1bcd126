// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpgradeRequired = errors.New("upgrade required")
)

// APIError is a non-2xx reply of the backend.
type APIError struct {
	StatusCode      int
	Message         string
	UpgradeRequired bool
	RequiredTier    string
}

func (e *APIError) Error() string {
	if len(e.Message) == 0 {
		return fmt.Sprintf("query returned error code %d", e.StatusCode)
	}
	return fmt.Sprintf("query returned error code %d (%s)", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrUpgradeRequired:
		return e.UpgradeRequired
	}
	return false
}

// IsRetryable tells whether repeating the request may succeed.
// Only authentication and subscription problems are final, apart from cancellation.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrUpgradeRequired)
}

type errorEnvelope struct {
	Error           string `json:"error"`
	Message         string `json:"message"`
	UpgradeRequired bool   `json:"upgrade_required"`
	RequiredTier    string `json:"required_tier"`
}

func newAPIError(resp *http.Response) *APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var env errorEnvelope
	if json.Unmarshal(b, &env) == nil {
		apiErr.Message = env.Error
		if len(apiErr.Message) == 0 {
			apiErr.Message = env.Message
		}
		apiErr.UpgradeRequired = env.UpgradeRequired
		apiErr.RequiredTier = env.RequiredTier
	} else {
		apiErr.Message = strings.TrimSpace(string(b))
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusPaymentRequired {
		msg := strings.ToLower(apiErr.Message)
		if strings.Contains(msg, "upgrade") || strings.Contains(msg, "premium") || len(apiErr.RequiredTier) > 0 {
			apiErr.UpgradeRequired = true
		}
	}
	return apiErr
}

func ParseJsonResponse(resp *http.Response, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	m, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || m != "application/json" {
		return fmt.Errorf("invalid content type %s", resp.Header.Get("Content-Type"))
	}

	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Client issues authenticated JSON requests against the backend.
type Client struct {
	baseUrl              string
	token                string
	apiClient            *http.Client
	rateLimiter          *RateLimiter
	perSecondRateLimiter *RateLimiter
	logger               zerolog.Logger
}

type ClientConfig struct {
	BaseUrl            string
	Token              string
	Timeout            time.Duration
	RateLimitPerSecond int
}

func NewClient(c ClientConfig, logger zerolog.Logger) *Client {
	perSecond := NewRateLimiter()
	if c.RateLimitPerSecond > 0 {
		perSecond = NewManualRateLimiter(time.Second, uint32(c.RateLimitPerSecond))
	}
	return &Client{
		baseUrl:              strings.TrimSuffix(c.BaseUrl, "/"),
		token:                c.Token,
		apiClient:            &http.Client{Timeout: c.Timeout},
		rateLimiter:          NewRateLimiter(),
		perSecondRateLimiter: perSecond,
		logger:               logger,
	}
}

func (c *Client) BaseUrl() string {
	return c.baseUrl
}

func (c *Client) RemainingApiLimit() int {
	return min(c.perSecondRateLimiter.Remaining(), c.rateLimiter.Remaining())
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, v any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, v)
}

func (c *Client) Post(ctx context.Context, path string, body any, v any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, b, v)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, v any) error {
	resp, err := c.runRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err = ParseJsonResponse(resp, v); err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return err
	}
	return nil
}

func (c *Client) createRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(c.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	return req, nil
}

func (c *Client) runRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	for {
		// Throttle according to http headers with an additional limit per second.
		if err := c.perSecondRateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := c.createRequest(ctx, method, path, query, body)
		if err != nil {
			return nil, err
		}
		resp, err := c.apiClient.Do(req)
		if err != nil {
			return nil, err
		}
		c.perSecondRateLimiter.HandleManualTimer()
		retry, err := c.rateLimiter.HandleResponseHeadersWithWait(ctx, resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if !retry {
			return resp, nil
		}
		resp.Body.Close()
		c.logger.Debug().Str("path", path).Msg("rate limited by backend, retrying")
	}
}
