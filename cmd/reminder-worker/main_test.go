package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"umbrella/internal/notify"
	"umbrella/internal/types"
)

type mockChannel struct {
	failIDs map[string]bool

	delivered []types.ReminderMessage
}

func (m *mockChannel) Deliver(ctx context.Context, msg types.ReminderMessage) error {
	if m.failIDs[msg.MessageID] {
		return errors.New("endpoint unreachable")
	}
	m.delivered = append(m.delivered, msg)
	return nil
}

func record(t *testing.T, sqsID string, msg types.ReminderMessage) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return events.SQSMessage{MessageId: sqsID, Body: string(body)}
}

func newTestHandler(ch DeliveryChannel) *Handler {
	return &Handler{
		channel: ch,
		metrics: notify.NoopMetrics{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestHandle_DeliversBatch(t *testing.T) {
	ch := &mockChannel{}
	h := newTestHandler(ch)

	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "sqs-1", types.ReminderMessage{MessageID: "m1", FiredAt: time.Now()}),
		record(t, "sqs-2", types.ReminderMessage{MessageID: "m2", FiredAt: time.Now()}),
	}}

	resp, err := h.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("failures = %v", resp.BatchItemFailures)
	}
	if len(ch.delivered) != 2 {
		t.Errorf("delivered %d messages, want 2", len(ch.delivered))
	}
}

func TestHandle_ReportsPartialFailures(t *testing.T) {
	ch := &mockChannel{failIDs: map[string]bool{"m2": true}}
	h := newTestHandler(ch)

	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "sqs-1", types.ReminderMessage{MessageID: "m1"}),
		record(t, "sqs-2", types.ReminderMessage{MessageID: "m2"}),
		record(t, "sqs-3", types.ReminderMessage{MessageID: "m3"}),
	}}

	resp, err := h.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "sqs-2" {
		t.Errorf("failures = %v, want only sqs-2", resp.BatchItemFailures)
	}
	if len(ch.delivered) != 2 {
		t.Errorf("delivered %d messages, want the 2 good ones", len(ch.delivered))
	}
}

func TestHandle_UnparseableMessageIsAcked(t *testing.T) {
	ch := &mockChannel{}
	h := newTestHandler(ch)

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "sqs-1", Body: "not json"},
	}}

	resp, err := h.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A permanently malformed message must not be redriven forever.
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("failures = %v, want none", resp.BatchItemFailures)
	}
}
