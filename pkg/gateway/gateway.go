// Package gateway is the caller-side companion of the transcription
// service: it wraps the HTTP endpoint with per-attempt timeouts,
// bounded exponential-backoff retry and error normalization.
//
// Retries cover transient transport failures and 5xx responses only.
// Definitive rejections (validation errors, rate limits, auth failures)
// are surfaced immediately; retrying them would just amplify load
// against an already-exhausted quota.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout     = 2 * time.Minute
	defaultMaxAttempts = 3
	backoffBase        = time.Second
	backoffCeiling     = 30 * time.Second
)

// APIError is a definitive rejection returned by the service.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// Word mirrors the per-word timing of the service response.
type Word struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
}

// Alternative mirrors a lower-ranked transcript candidate.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Result is a successful transcription response.
type Result struct {
	Transcript       string        `json:"transcript"`
	Confidence       float64       `json:"confidence"`
	Alternatives     []Alternative `json:"alternatives"`
	Words            []Word        `json:"words"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
	ChunkCount       int           `json:"chunkCount"`
}

// Options are the per-upload recognition parameters.
type Options struct {
	Format     string
	Language   string
	SampleRate int
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
}

type Client struct {
	baseURL     string
	maxAttempts int
	httpClient  *http.Client

	// sleep is swappable so tests can skip real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		maxAttempts: cfg.MaxAttempts,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		sleep:       sleepContext,
	}, nil
}

// Transcribe uploads one audio buffer and returns its transcript,
// retrying transient failures up to the attempt ceiling.
func (c *Client) Transcribe(ctx context.Context, audio []byte, opts Options) (*Result, error) {
	requestID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffFor(attempt)); err != nil {
				return nil, err
			}
		}

		res, err := c.doRequest(ctx, audio, opts, requestID)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("transcription failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, audio []byte, opts Options, requestID string) (*Result, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/v1/transcribe")
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("format", opts.Format)
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	if opts.SampleRate > 0 {
		q.Set("sampleRate", strconv.Itoa(opts.SampleRate))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp, body)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

func decodeAPIError(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Kind = payload.Error
		apiErr.Message = payload.Message
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return apiErr
}

// definitiveKinds are server-side rejections that another attempt can
// never fix; retrying a rate limit or a rejected credential only
// amplifies load.
var definitiveKinds = map[string]bool{
	"unsupported_format":    true,
	"file_too_large":        true,
	"audio_too_long":        true,
	"rate_limit_exceeded":   true,
	"authentication_failed": true,
	"not_initialized":       true,
}

// isTransient reports whether the failure is worth another attempt:
// transport-level errors and 5xx responses that don't carry a
// definitive rejection kind.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 && !definitiveKinds[apiErr.Kind]
	}
	// No APIError means the request never completed: timeout,
	// connection refused, reset.
	return true
}

func backoffFor(attempt int) time.Duration {
	d := backoffBase << (attempt - 1)
	if d > backoffCeiling {
		return backoffCeiling
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
