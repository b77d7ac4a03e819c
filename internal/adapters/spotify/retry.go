package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxBackoff        = 8 * time.Second
)

// StatusError is a non-2xx answer that was not retried or ran out of attempts.
type StatusError struct {
	Status   int
	Attempts int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify adapter: status %d after %d attempt(s)", e.Status, e.Attempts)
}

// getJSON issues a GET and decodes a 200 body into out. It makes at most
// maxRetries+1 attempts. Transport errors,
// 429 and 5xx are retried with exponential backoff; Retry-After wins when
// present. Every wait is capped at maxBackoff.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	attempts := max(c.maxRetries, 0) + 1

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("spotify adapter: build request: %w", err)
		}

		// #nosec G107 -- URL built from the configured API base
		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			defer resp.Body.Close()
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("spotify adapter: decode response: %w", err)
			}
			return nil
		}

		wait, retryable := retryDelay(resp, err)
		if resp != nil {
			_ = resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("spotify adapter: request canceled: %w", ctxErr)
		}
		if !retryable || attempt >= attempts {
			if err != nil {
				return fmt.Errorf("spotify adapter: request failed after %d attempt(s): %w", attempt, err)
			}
			return &StatusError{Status: resp.StatusCode, Attempts: attempt}
		}

		if wait == 0 {
			wait = c.backoff(attempt)
		}
		c.logger.Warn("spotify adapter: retrying", "attempt", attempt, "max", attempts, "wait", wait, "error", describe(resp, err))
		if err := sleepWithContext(ctx, min(wait, maxBackoff)); err != nil {
			return err
		}
	}
}

// backoff doubles the base delay per attempt, starting at the base.
func (c *Client) backoff(attempt int) time.Duration {
	base := c.baseBackoff
	if base <= 0 {
		base = defaultBackoff
	}
	d := base << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// retryDelay reports whether the outcome is worth another attempt and any
// server-requested delay.
func retryDelay(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp.Header.Get("Retry-After")), true
	}
	return 0, false
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func describe(resp *http.Response, err error) string {
	if err != nil {
		return err.Error()
	}
	return "status " + strconv.Itoa(resp.StatusCode)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
