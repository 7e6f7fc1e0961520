// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpclient provides an HTTP client that retries rate limited and
// transient server failures of model provider APIs.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryStrategy decides how a failed status is retried.
type RetryStrategy int

const (
	NoRetry RetryStrategy = iota

	// ConservativeRetry retries server errors at most twice with a short,
	// fixed delay.
	ConservativeRetry

	// SmartRetry honors Retry-After and otherwise backs off exponentially.
	SmartRetry
)

// RetryStrategyFunc maps an HTTP status to a strategy.
type RetryStrategyFunc func(status int) RetryStrategy

// Client wraps http.Client with retries. Delays are interrupted when the
// request context is done.
type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	strategyFunc RetryStrategyFunc
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithMaxRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

func WithRetryStrategy(fn RetryStrategyFunc) Option {
	return func(c *Client) {
		c.strategyFunc = fn
	}
}

// New creates a Client. Defaults: 60s timeout, 3 retries, 1s base delay.
func New(opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		maxRetries:   3,
		baseDelay:    time.Second,
		strategyFunc: DefaultRetryStrategy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultRetryStrategy retries 429/503 with backoff and other gateway or
// server errors conservatively.
func DefaultRetryStrategy(status int) RetryStrategy {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do sends req, retrying per the strategy. A non-2xx response that is not
// retried is returned with a nil error so the caller can read its body.
// When retries run out a *RetryableError is returned along with the last
// response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		strategy := c.strategyFunc(resp.StatusCode)
		if strategy == NoRetry {
			return resp, nil
		}

		delay := c.delay(strategy, attempt, resp.Header)
		if attempt >= c.maxRetries || delay <= 0 {
			return resp, &RetryableError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("giving up after %d attempt(s)", attempt+1),
				RetryAfter: delay,
			}
		}

		slog.Warn("Retrying model provider request",
			"status", resp.StatusCode,
			"delay", delay,
			"attempt", attempt+1,
			"max_retries", c.maxRetries)
		resp.Body.Close()

		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

func (c *Client) delay(strategy RetryStrategy, attempt int, h http.Header) time.Duration {
	switch strategy {
	case SmartRetry:
		if d := RetryAfter(h); d > 0 {
			return d
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		return backoff + backoff/10
	case ConservativeRetry:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(1+attempt) * c.baseDelay
	default:
		return 0
	}
}

// RetryAfter parses a Retry-After header given in seconds.
func RetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
