// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the document source and
// the inference backends.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// throttled responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps how long a server-supplied Retry-After may hold us.
const maxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 3

// Retryable reports whether a status code signals server-side throttling
// that is worth waiting out.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries on 429 and 503 with
// exponential backoff starting at RetryBaseDelay. A Retry-After header given
// in seconds replaces the computed delay (capped at two minutes).
//
// When maxRetries is 0 the default (3) is used. Throttled response bodies are
// drained and closed before sleeping. If ctx is cancelled during a wait the
// function returns ctx.Err(). After exhausting retries the last throttled
// response is returned so the caller can inspect it. The request body, if
// any, must be replayable through req.GetBody.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, logger *zap.Logger) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := retryAfter(resp.Header.Get("Retry-After"))
		if backoff == 0 {
			backoff = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		logger.Debug("throttled, backing off",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Budget returns the longest DoWithRetry can take when every attempt is
// throttled, given the client's per-request timeout. Zero timeout means
// there is no bound and Budget returns zero.
func Budget(timeout time.Duration, maxRetries int) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	total := time.Duration(maxRetries+1) * timeout
	for attempt := 0; attempt < maxRetries; attempt++ {
		wait := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if wait < maxRetryAfter {
			wait = maxRetryAfter
		}
		total += wait
	}
	return total
}

// retryAfter parses a Retry-After value given in whole seconds. HTTP-date
// values and garbage yield zero, leaving the exponential schedule in charge.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}
