package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"umbrella/internal/external"
	"umbrella/internal/types"
)

func newTestChannel(t *testing.T, handler http.HandlerFunc) *WebhookChannel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := external.NewBaseClient(&http.Client{Timeout: 5 * time.Second}, "test-webhook", "Umbrella-Reminder/1.0")
	return NewWebhookChannelWithBase(base, srv.URL, discardLogger())
}

func TestWebhookDeliver_PostsPayload(t *testing.T) {
	var got webhookPayload
	ch := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	fired := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	msg := types.ReminderMessage{
		MessageID: "m1",
		Content:   types.ReminderContent{Title: "No umbrella needed", Body: "Clear skies ahead!"},
		FiredAt:   fired,
	}
	if err := ch.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "No umbrella needed" || got.Body != "Clear skies ahead!" {
		t.Errorf("payload = %+v", got)
	}
	if !got.FiredAt.Equal(fired) {
		t.Errorf("fired_at = %v", got.FiredAt)
	}
}

func TestWebhookDeliver_Non2xxIsError(t *testing.T) {
	ch := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := ch.Deliver(context.Background(), types.ReminderMessage{MessageID: "m1"})
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != types.ErrCodeUpstreamProvider {
		t.Fatalf("got %v, want upstream_provider_error", err)
	}
}

func TestWebhookDeliver_MissingURL(t *testing.T) {
	base := external.NewBaseClient(&http.Client{}, "test-webhook", "Umbrella-Reminder/1.0")
	ch := NewWebhookChannelWithBase(base, "", discardLogger())

	err := ch.Deliver(context.Background(), types.ReminderMessage{MessageID: "m1"})
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != types.ErrCodeInternalScheduler {
		t.Fatalf("got %v, want internal_scheduler_error", err)
	}
}
