// Package recalc sends pending sleep edits to the fatigue-model service and
// hands back the recomputed roster.
package recalc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/edit"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
	"github.com/codeGROOVE-dev/retry"
)

// Request asks the fatigue model to recompute a month with edited sleep.
type Request struct {
	Month        string        `json:"month"`
	HomeBase     string        `json:"home_base,omitempty"`
	HomeTimezone string        `json:"home_base_timezone,omitempty"`
	ConfigPreset string        `json:"config_preset,omitempty"`
	Edits        []edit.Record `json:"sleep_edits"`
}

// Recalculator returns a replacement dataset for req.
type Recalculator interface {
	Recalculate(ctx context.Context, req Request) (*roster.Dataset, error)
}

// StatusError is a non-2xx response from the service.
type StatusError struct {
	Body string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// HTTPClient talks to the fatigue-model service over JSON.
type HTTPClient struct {
	client   *http.Client
	logger   *slog.Logger
	endpoint string
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) { h.client = c }
}

// WithRetry sets the attempt count and the initial backoff.
func WithRetry(attempts uint, delay time.Duration) ClientOption {
	return func(h *HTTPClient) {
		h.attempts = attempts
		h.delay = delay
		h.maxDelay = max(delay, h.maxDelay)
	}
}

// NewHTTPClient returns a client posting to baseURL + "/api/v1/recalculate".
func NewHTTPClient(baseURL string, logger *slog.Logger, opts ...ClientOption) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTPClient{
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/v1/recalculate",
		attempts: 5,
		delay:    time.Second,
		maxDelay: 2 * time.Minute,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Recalculate posts req and decodes the returned dataset. Network errors,
// 429 and 5xx responses are retried with jittered backoff; other failures
// return at once.
func (h *HTTPClient) Recalculate(ctx context.Context, req Request) (*roster.Dataset, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var body []byte
	err = retry.Do(
		func() error {
			var postErr error
			body, postErr = h.post(ctx, payload)
			return postErr
		},
		retry.Context(ctx),
		retry.Attempts(h.attempts),
		retry.Delay(h.delay),
		retry.MaxDelay(h.maxDelay),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			h.logger.Debug("retrying recalculation", "attempt", n+1, "month", req.Month, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("recalculating %s: %w", req.Month, err)
	}

	var ds roster.Dataset
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	h.logger.Info("recalculation complete", "month", req.Month, "edits", len(req.Edits), "duties", len(ds.Duties))
	return &ds, nil
}

func (h *HTTPClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "chronogram/1.0")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			h.logger.Debug("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			h.logger.Debug("failed to read error body", "error", readErr)
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ne net.Error
	return errors.As(err, &ne)
}
