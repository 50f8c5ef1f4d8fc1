package backend

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{"429 Too Many Requests", http.StatusTooManyRequests, true},
		{"500 Internal Server Error", http.StatusInternalServerError, true},
		{"502 Bad Gateway", http.StatusBadGateway, true},
		{"503 Service Unavailable", http.StatusServiceUnavailable, true},
		{"504 Gateway Timeout", http.StatusGatewayTimeout, true},
		{"400 Bad Request", http.StatusBadRequest, false},
		{"401 Unauthorized", http.StatusUnauthorized, false},
		{"404 Not Found", http.StatusNotFound, false},
		{"200 OK", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.statusCode); got != tt.want {
				t.Errorf("ShouldRetry(%d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"attempt 0", 0, InitialBackoff},
		{"attempt 1", 1, InitialBackoff * 2},
		{"attempt 2", 2, InitialBackoff * 4},
		{"attempt large", 20, MaxBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateBackoff(tt.attempt); got != tt.want {
				t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func noBackoff(int) time.Duration { return time.Millisecond }

func TestWithRetry(t *testing.T) {
	t.Run("success after transient failures", func(t *testing.T) {
		calls := 0
		got, err := withRetry(context.Background(), noBackoff, func() (string, error) {
			calls++
			if calls < MaxRetryAttempts {
				return "", &statusError{StatusCode: http.StatusServiceUnavailable, Message: "busy"}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("withRetry() error = %v", err)
		}
		if got != "ok" || calls != MaxRetryAttempts {
			t.Errorf("withRetry() = %q after %d calls", got, calls)
		}
	})

	t.Run("non-retryable status returns at once", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), noBackoff, func() (int, error) {
			calls++
			return 0, &statusError{StatusCode: http.StatusUnauthorized, Message: "nope"}
		})
		var se *statusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
			t.Errorf("withRetry() error = %v, want 401", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("transport error is not retried", func(t *testing.T) {
		calls := 0
		boom := errors.New("connection refused")
		_, err := withRetry(context.Background(), noBackoff, func() (int, error) {
			calls++
			return 0, boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Errorf("withRetry() = %v after %d calls", err, calls)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), noBackoff, func() (int, error) {
			calls++
			return 0, &statusError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}
		})
		if err == nil || calls != MaxRetryAttempts {
			t.Errorf("withRetry() = %v after %d calls", err, calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := withRetry(ctx, noBackoff, func() (int, error) { return 1, nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("withRetry() error = %v, want context.Canceled", err)
		}
	})
}
