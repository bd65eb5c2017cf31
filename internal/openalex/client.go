// Package openalex implements the rate-limit-aware OpenAlex API client and
// the query surfaces built on it: the taxonomy-subtree preloader and the
// works-count oracle.
package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rmoretti/fieldharvest/internal/model"
)

// retryAfterFallback is used when a 429 carries no parseable Retry-After.
const retryAfterFallback = 2 * time.Second

// Client issues GET requests against the OpenAlex API. It owns the adaptive
// pacing state and handles throttling (429) and server errors (5xx)
// internally by backing off and retrying; only non-retryable conditions and
// an exhausted retry budget surface to the caller.
//
// Requests are strictly sequential: exactly one request is in flight at any
// time, so the pacing state needs no locking.
type Client struct {
	http       *http.Client
	baseURL    string
	userAgent  string
	mailto     string
	limiter    *rate.Limiter
	pace       *PaceState
	maxRetries int
	started    bool // pacing applies between calls, not before the first
	log        *zap.Logger
}

// NewClient creates a Client with the given pacing state
func NewClient(cfg model.APIConfig, pace *PaceState, log *zap.Logger) *Client {
	rps := rate.Limit(cfg.MaxRequestsPerSec)
	if cfg.MaxRequestsPerSec <= 0 {
		rps = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		http:       &http.Client{},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		mailto:     cfg.Mailto,
		limiter:    rate.NewLimiter(rps, burst),
		pace:       pace,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

// Pace returns the current inter-request delay, for progress reporting
func (c *Client) Pace() time.Duration {
	return c.pace.Current()
}

// Get fetches path with the given query and decodes the JSON body into out.
// Throttling, server errors and transport errors are retried with
// multiplicative backoff until success or until the configured retry budget
// (0 = unbounded) runs out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, timeout time.Duration, out interface{}) error {
	if c.mailto != "" {
		query = cloneValues(query)
		query.Set("mailto", c.mailto)
	}
	reqURL := c.baseURL + path + "?" + query.Encode()

	attempts := 0
	for {
		if c.started {
			if err := sleepCtx(ctx, c.pace.Current()); err != nil {
				return err
			}
		}
		c.started = true

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		status, retryAfter, body, err := c.doRequest(ctx, reqURL, timeout)
		switch {
		case err != nil:
			c.log.Warn("request failed, backing off",
				zap.String("url", path),
				zap.Error(err))
			c.pace.Backoff()

		case status == http.StatusTooManyRequests:
			wait := parseRetryAfter(retryAfter, retryAfterFallback)
			c.log.Warn("rate limited",
				zap.String("url", path),
				zap.Duration("retry_after", wait))
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			c.pace.Backoff()

		case status >= 500:
			c.log.Warn("server error, backing off",
				zap.String("url", path),
				zap.Int("status", status))
			c.pace.Backoff()

		case status >= 200 && status < 300:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			c.pace.Cooldown()
			return nil

		default:
			return fmt.Errorf("unexpected status %d for %s", status, path)
		}

		attempts++
		if c.maxRetries > 0 && attempts >= c.maxRetries {
			return fmt.Errorf("giving up on %s after %d attempts", path, attempts)
		}
	}
}

// doRequest performs a single GET and returns the status, the Retry-After
// header value, and the body.
func (c *Client) doRequest(ctx context.Context, reqURL string, timeout time.Duration) (int, string, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, fmt.Errorf("read body: %w", err)
	}

	return resp.StatusCode, resp.Header.Get("Retry-After"), body, nil
}

// parseRetryAfter interprets a Retry-After value: an integer seconds count or
// an HTTP-date. Both forms are floored at 1s; unparseable values fall back to
// the fixed default.
func parseRetryAfter(h string, fallback time.Duration) time.Duration {
	if h == "" {
		return fallback
	}
	if n, err := strconv.Atoi(h); err == nil {
		if n < 1 {
			n = 1
		}
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		wait := time.Until(t)
		if wait < time.Second {
			wait = time.Second
		}
		return wait
	}
	return fallback
}

// sleepCtx blocks for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}
