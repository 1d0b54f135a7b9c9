// Package external provides the anti-corruption layer between umbrella
// domain logic and third-party HTTP APIs. All outbound calls are routed
// through the BaseClient, which enforces consistent resilience patterns:
// circuit breaking, trace propagation, and error mapping.
//
// Requests are issued exactly once. The weather provider contract is a
// single fetch attempt; callers that cannot obtain data degrade to a safe
// default instead of retrying.
package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"umbrella/internal/types"
)

// BaseClient wraps an *http.Client and a circuit breaker to enforce
// consistent resilience patterns on all outbound HTTP calls. Provider
// clients (weather, geocoding, webhook delivery) embed or hold a BaseClient.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient with the given http client, circuit
// breaker name, and user agent string.
func NewBaseClient(httpClient *http.Client, breakerName string, userAgent string) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BaseClient{
		client:    httpClient,
		breaker:   cb,
		userAgent: userAgent,
	}
}

// NewBaseClientWithBreaker creates a BaseClient with a caller-provided
// circuit breaker. Useful for testing or sharing a breaker across clients.
func NewBaseClientWithBreaker(httpClient *http.Client, breaker *gobreaker.CircuitBreaker[*http.Response], userAgent string) *BaseClient {
	return &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		userAgent: userAgent,
	}
}

// Do executes the HTTP request with:
//  1. Trace ID injection (X-Request-Id from context)
//  2. User-Agent header injection
//  3. Circuit breaker wrapping (5xx and 429 count as breaker failures)
//  4. Error mapping to types.AppError on transport failure or open breaker
//
// The request is attempted exactly once. Responses with non-2xx statuses
// are returned as-is so callers can apply provider-specific error mapping;
// the caller is responsible for closing the response body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if traceID := types.GetRequestID(req.Context()); traceID != "" {
		req.Header.Set("X-Request-Id", traceID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// Feed 5xx and 429 into the breaker's failure count. The response
		// is still passed through for caller-side status mapping.
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})

	if err == nil {
		return resp, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"upstream circuit breaker is open",
			err,
		)
	}

	// The breaker recorded the failure; hand the response back so the
	// caller maps the status code (429 vs 5xx vs provider-specific).
	if resp != nil {
		return resp, nil
	}

	return nil, types.NewAppError(
		types.ErrCodeUpstreamUnavailable,
		"upstream request failed",
		err,
	)
}
