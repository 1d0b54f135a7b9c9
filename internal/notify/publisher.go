// Package notify provides reminder delivery: an SQS publisher used as the
// host scheduler's sink, the webhook channel the worker delivers through,
// and CloudWatch delivery metrics.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"umbrella/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// ReminderPublisher publishes fired reminders to the reminder SQS queue.
// It implements hostsched.Sink.
type ReminderPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewReminderPublisher creates a ReminderPublisher targeting the given
// queue.
func NewReminderPublisher(client SQSSender, queueURL string, logger *slog.Logger) *ReminderPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderPublisher{client: client, queueURL: queueURL, logger: logger}
}

// Deliver serializes the reminder message and sends it to the queue.
func (p *ReminderPublisher) Deliver(ctx context.Context, msg types.ReminderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("reminder publisher: failed to marshal message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("reminder publisher: failed to send message: %w", err)
	}

	p.logger.InfoContext(ctx, "reminder enqueued",
		"message_id", msg.MessageID,
		"handle", msg.Handle,
	)
	return nil
}

// LogSink is a delivery sink that only logs the fired reminder. Used in
// local environments where no queue is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Deliver logs the reminder content and succeeds.
func (s *LogSink) Deliver(ctx context.Context, msg types.ReminderMessage) error {
	s.logger.InfoContext(ctx, "reminder fired (log sink)",
		"message_id", msg.MessageID,
		"handle", msg.Handle,
		"title", msg.Content.Title,
		"body", msg.Content.Body,
	)
	return nil
}
