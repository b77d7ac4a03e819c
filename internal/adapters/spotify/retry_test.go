package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientGetJSON(t *testing.T) {
	tests := []struct {
		name             string
		statuses         []int
		maxRetries       int
		expectedAttempts int
		expectedStatus   int
		expectErr        bool
	}{
		{
			name:             "retries on 503 then decodes",
			statuses:         []int{http.StatusServiceUnavailable, http.StatusBadGateway},
			maxRetries:       2,
			expectedAttempts: 3,
		},
		{
			name:             "exhausts retries on 429",
			statuses:         []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests},
			maxRetries:       1,
			expectedAttempts: 2,
			expectedStatus:   http.StatusTooManyRequests,
			expectErr:        true,
		},
		{
			name:             "zero retries makes a single attempt",
			statuses:         []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
			maxRetries:       0,
			expectedAttempts: 1,
			expectedStatus:   http.StatusServiceUnavailable,
			expectErr:        true,
		},
		{
			name:             "does not retry client errors",
			statuses:         []int{http.StatusUnauthorized},
			maxRetries:       3,
			expectedAttempts: 1,
			expectedStatus:   http.StatusUnauthorized,
			expectErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				if attempts <= len(tt.statuses) {
					w.WriteHeader(tt.statuses[attempts-1])
					return
				}
				fmt.Fprint(w, `{"ok": true}`)
			}))
			defer ts.Close()

			client := NewClient(ts.Client(), ts.URL, WithRetry(tt.maxRetries, time.Millisecond))

			var out struct {
				OK bool `json:"ok"`
			}
			err := client.getJSON(context.Background(), ts.URL, &out)
			if (err != nil) != tt.expectErr {
				t.Fatalf("expected error: %v, got: %v", tt.expectErr, err)
			}
			if tt.expectErr {
				var se *StatusError
				if !errors.As(err, &se) || se.Status != tt.expectedStatus {
					t.Fatalf("expected StatusError %d, got %v", tt.expectedStatus, err)
				}
			} else if !out.OK {
				t.Fatal("body was not decoded")
			}
			if attempts != tt.expectedAttempts {
				t.Fatalf("attempts: got %d, want %d", attempts, tt.expectedAttempts)
			}
		})
	}
}

func TestClientGetJSON_Canceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), ts.URL, WithRetry(5, time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := client.getJSON(ctx, ts.URL, &struct{}{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Retry-After was not interrupted, waited %v", elapsed)
	}
}

func TestBackoff(t *testing.T) {
	c := NewClient(nil, "", WithRetry(10, 100*time.Millisecond))
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for i, w := range want {
		if got := c.backoff(i + 1); got != w {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, w)
		}
	}
	if got := c.backoff(20); got != maxBackoff {
		t.Errorf("expected cap %v, got %v", maxBackoff, got)
	}
	if got := NewClient(nil, "").backoff(1); got != defaultBackoff {
		t.Errorf("expected default %v, got %v", defaultBackoff, got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("no header: got %v", got)
	}
	if got := parseRetryAfter("2"); got != 2*time.Second {
		t.Fatalf("seconds: got %v, want 2s", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("garbage: got %v", got)
	}
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Fatalf("date: got %v", got)
	}
}
