package external

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"umbrella/internal/types"
)

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewBaseClient(&http.Client{Timeout: 5 * time.Second}, "test", "Umbrella-Test/1.0")

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestDo_InjectsTraceIDAndUserAgent(t *testing.T) {
	var gotTrace, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("X-Request-Id")
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := NewBaseClient(&http.Client{}, "test", "Umbrella-Test/1.0")

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "trace-123"))

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotTrace != "trace-123" {
		t.Errorf("trace = %q", gotTrace)
	}
	if gotUA != "Umbrella-Test/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
}

func TestDo_SingleAttemptOn500(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewBaseClient(&http.Client{}, "test", "Umbrella-Test/1.0")

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("5xx must be passed through for caller mapping, got %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want exactly 1 (no retries)", calls.Load())
	}
}

func TestDo_CircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewBaseClient(&http.Client{}, "test", "Umbrella-Test/1.0")

	// Six consecutive 5xx responses trip the breaker.
	for i := 0; i < 6; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := client.Do(req)
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamUnavailable {
		t.Fatalf("got %v, want upstream_unavailable once the breaker is open", err)
	}
}

func TestDo_TransportFailure(t *testing.T) {
	client := NewBaseClient(&http.Client{Timeout: time.Second}, "test", "Umbrella-Test/1.0")

	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := client.Do(req)
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamUnavailable {
		t.Fatalf("got %v, want upstream_unavailable", err)
	}
}

func TestDo_4xxPassedThroughWithoutBreakerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewBaseClient(&http.Client{}, "test", "Umbrella-Test/1.0")

	// Well past the breaker threshold: 401s never trip it.
	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}
}
