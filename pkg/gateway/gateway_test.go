package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxAttempts: 3})
	if err != nil {
		t.Fatal(err)
	}
	c.sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return c, &calls
}

func TestTranscribe_Success(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "webm" {
			t.Errorf("missing format parameter")
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing request id")
		}
		_ = json.NewEncoder(w).Encode(Result{Transcript: "hi", Confidence: 0.8, ChunkCount: 1})
	})

	res, err := c.Transcribe(context.Background(), []byte("audio"), Options{Format: "webm", Language: "en-US"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Transcript != "hi" || res.Confidence != 0.8 {
		t.Fatalf("unexpected result %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestTranscribe_RetriesServersideFailure(t *testing.T) {
	var c *Client
	var calls *atomic.Int32
	c, calls = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Load() < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(Result{Transcript: "eventually"})
	})

	res, err := c.Transcribe(context.Background(), []byte("x"), Options{Format: "webm"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Transcript != "eventually" {
		t.Fatalf("unexpected result %+v", res)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestTranscribe_ExhaustsAttemptCeiling(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Transcribe(context.Background(), []byte("x"), Options{Format: "webm"})
	if err == nil {
		t.Fatal("expected failure after attempt ceiling")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls.Load())
	}
}

func TestTranscribe_NoRetryOnDefinitiveRejection(t *testing.T) {
	cases := []struct {
		status int
		kind   string
	}{
		{http.StatusBadRequest, "unsupported_format"},
		{http.StatusRequestEntityTooLarge, "file_too_large"},
		{http.StatusTooManyRequests, "rate_limit_exceeded"},
		{http.StatusBadGateway, "authentication_failed"},
	}
	for _, tc := range cases {
		c, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": tc.kind, "message": "no"})
		})

		_, err := c.Transcribe(context.Background(), []byte("x"), Options{Format: "webm"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("%s: expected APIError, got %v", tc.kind, err)
		}
		if apiErr.Kind != tc.kind || apiErr.StatusCode != tc.status {
			t.Fatalf("%s: unexpected error %+v", tc.kind, apiErr)
		}
		if calls.Load() != 1 {
			t.Fatalf("%s: definitive rejection must not be retried, got %d calls", tc.kind, calls.Load())
		}
	}
}

func TestTranscribe_RetryAfterParsed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate_limit_exceeded"})
	})

	_, err := c.Transcribe(context.Background(), []byte("x"), Options{Format: "webm"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.RetryAfter != 17*time.Second {
		t.Fatalf("expected 17s retry-after, got %v", apiErr.RetryAfter)
	}
}

func TestTranscribe_RetriesConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // nothing listens anymore

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second, MaxAttempts: 2})
	if err != nil {
		t.Fatal(err)
	}
	attempts := 0
	c.sleep = func(_ context.Context, _ time.Duration) error {
		attempts++
		return nil
	}

	_, err = c.Transcribe(context.Background(), []byte("x"), Options{Format: "webm"})
	if err == nil {
		t.Fatal("expected connection failure")
	}
	if attempts != 1 {
		t.Fatalf("expected one backoff between two attempts, got %d", attempts)
	}
}

func TestBackoffFor(t *testing.T) {
	if backoffFor(1) != time.Second {
		t.Fatalf("expected 1s, got %v", backoffFor(1))
	}
	if backoffFor(2) != 2*time.Second {
		t.Fatalf("expected 2s, got %v", backoffFor(2))
	}
	if backoffFor(10) != backoffCeiling {
		t.Fatalf("backoff must be capped, got %v", backoffFor(10))
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
