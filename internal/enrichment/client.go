package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"railguard-cloud/internal/observability/metrics"
	telemetry "railguard-cloud/internal/telemetry/domain"
)

const maxErrorBodyBytes = 4 << 10

// Client calls the external anomaly classifier.
type Client struct {
	url     string
	client  *http.Client
	logger  *log.Logger
	timeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout bounds each classifier call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient constructs a classifier client.
func NewClient(url string, logger *log.Logger, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("enrichment: empty classifier url")
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify sends the canonical reading to the classifier and returns its
// verdict. The call is fail-open: any transport error, timeout or non-2xx
// response yields the fallback verdict and never an error. Each reading gets
// exactly one attempt; a missed classification is superseded by the next
// reading seconds later.
func (c *Client) Classify(ctx context.Context, reading telemetry.CanonicalReading) telemetry.ClassificationResult {
	start := time.Now()
	if c == nil || c.client == nil {
		return telemetry.FallbackResult()
	}

	result, err := c.call(ctx, reading)
	if err != nil {
		c.logger.Printf("enrichment: classifier unavailable for node %s: %v", reading.NodeID, err)
		metrics.ObserveEnrichment(metrics.ResultFallback, time.Since(start))
		return telemetry.FallbackResult()
	}
	metrics.ObserveEnrichment(metrics.ResultSuccess, time.Since(start))
	return result
}

func (c *Client) call(ctx context.Context, reading telemetry.CanonicalReading) (telemetry.ClassificationResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(reading)
	if err != nil {
		return telemetry.ClassificationResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return telemetry.ClassificationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return telemetry.ClassificationResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The response body carries the rejection detail (e.g. a 422
		// validation message); keep it for the log line.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return telemetry.ClassificationResult{}, &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(detail))}
	}

	var result telemetry.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return telemetry.ClassificationResult{}, err
	}
	return result, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("classifier returned status %d", e.code)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.code, e.body)
}
