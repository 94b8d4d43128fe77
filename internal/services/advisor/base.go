package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	xhttp "FinFolio/pkg/http"
)

// BaseConfig configures an HTTPServiceBase.
type BaseConfig struct {
	Name        string
	BaseURL     string
	Timeout     time.Duration
	Headers     map[string]string
	MaxFailures uint32        // consecutive failures that open the breaker
	OpenTimeout time.Duration // how long the breaker stays open
	Backoff     time.Duration // first retry delay, grows linearly
}

// HTTPServiceBase posts JSON to a model provider behind a circuit breaker.
type HTTPServiceBase struct {
	baseURL string
	headers map[string]string
	backoff time.Duration
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPServiceBase(cfg BaseConfig) *HTTPServiceBase {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &HTTPServiceBase{
		baseURL: cfg.BaseURL,
		headers: cfg.Headers,
		backoff: backoff,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// PostJSON posts payload to path under the base URL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("advisor http client not initialized")
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     b.baseURL + path,
			Headers: b.headers,
			Body:    payload,
		}, dest)
	})
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries transient failures up to attempts times in total.
// Client errors and an open breaker are returned immediately.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || !retryable(err) || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
