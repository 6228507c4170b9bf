// Package fetch retrieves job board pages with retries, backoff, and
// host-level politeness delays. All failures are returned as typed values.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Client fetches pages with a browser-like header set, bounded retries with
// exponential backoff and jitter, and a shared per-host delay.
type Client struct {
	httpClient *http.Client
	limiter    *HostLimiter
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewClient creates a fetch client. maxRetries is the number of additional
// attempts after the first failure; timeout applies per request.
func NewClient(userAgent string, timeout time.Duration, maxRetries int, limiter *HostLimiter, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		baseDelay:  2 * time.Second,
		logger:     logger,
	}
}

// Get retrieves rawURL and returns the body. On failure the returned error
// is always a *Error carrying the failure kind.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("parse url: %w", err)}
	}

	var lastErr *Error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt, lastErr)
			c.logger.Warn("retrying fetch",
				"url", rawURL,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, &Error{Kind: KindTimeout, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx, parsed.Host); err != nil {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}

		body, ferr := c.fetchOnce(ctx, rawURL)
		if ferr == nil {
			return body, nil
		}
		lastErr = ferr
		if !ferr.Retryable() {
			return nil, ferr
		}
	}

	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]byte, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	return body, nil
}

// backoffDelay computes the retry delay: Retry-After when the server sent
// one, otherwise baseDelay * 2^(attempt-1) with ±30% jitter.
func (c *Client) backoffDelay(attempt int, lastErr *Error) time.Duration {
	if lastErr != nil && lastErr.RetryAfter > 0 {
		return lastErr.RetryAfter
	}

	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// parseRetryAfter parses the seconds form of a Retry-After header value.
// Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
