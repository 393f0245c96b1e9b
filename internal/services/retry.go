package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/farmline-ivr/internal/observability"
)

// StatusError reports a non-success HTTP status from an upstream provider
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// RetryableStatus is true for 429 and every 5xx
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Retrier re-runs an operation with exponential backoff while it fails with a retryable status.
// Transport errors and other statuses fail immediately.
type Retrier struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Retryable       func(code int) bool

	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRetrier creates a retrier using RetryableStatus
func NewRetrier(attempts int, initial, max time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Retrier {
	return &Retrier{
		Attempts:        attempts,
		InitialInterval: initial,
		MaxInterval:     max,
		Retryable:       RetryableStatus,
		metrics:         metrics,
		logger:          logger,
	}
}

// Do runs op until it succeeds, fails permanently, runs out of attempts or ctx ends.
// service labels metrics and log lines.
func (r *Retrier) Do(ctx context.Context, service string, op func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.InitialInterval
	policy.MaxInterval = r.MaxInterval
	policy.MaxElapsedTime = 0

	retries := uint64(0)
	if r.Attempts > 1 {
		retries = uint64(r.Attempts - 1)
	}
	schedule := backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)

	start := time.Now()
	err := backoff.RetryNotify(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && r.Retryable(statusErr.Code) {
			return err
		}
		return backoff.Permanent(err)
	}, schedule, func(err error, wait time.Duration) {
		r.metrics.UpstreamRetries.WithLabelValues(service).Inc()
		r.logger.Warn("upstream call failed, retrying",
			zap.String("service", service),
			zap.Duration("wait", wait),
			zap.Error(err))
	})

	r.metrics.UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.metrics.UpstreamRequests.WithLabelValues(service, outcome).Inc()
	return err
}

// RetryingClient issues GET requests through a Retrier with a per-attempt timeout
type RetryingClient struct {
	httpClient *http.Client
	retrier    *Retrier
}

// NewRetryingClient creates a client whose every attempt is bounded by timeout
func NewRetryingClient(timeout time.Duration, retrier *Retrier) *RetryingClient {
	return &RetryingClient{
		httpClient: &http.Client{Timeout: timeout},
		retrier:    retrier,
	}
}

// GetJSON fetches url and decodes a 2xx JSON body into out.
// Non-2xx responses surface as *StatusError after retries.
func (c *RetryingClient) GetJSON(ctx context.Context, service, url string, out any) error {
	return c.retrier.Do(ctx, service, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", service, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", service, err)
		}
		return nil
	})
}
