// Package main is the entrypoint for the reminder worker Lambda function.
//
// The worker consumes fired reminder messages from the reminder SQS queue
// and delivers them to the configured webhook endpoint. Lambda's SQS
// integration uses partial batch responses: messages that fail delivery are
// reported in batchItemFailures so SQS redrives only those.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"umbrella/internal/config"
	"umbrella/internal/notify"
	"umbrella/internal/types"
)

// DeliveryChannel is the webhook delivery contract, satisfied by
// *notify.WebhookChannel.
type DeliveryChannel interface {
	Deliver(ctx context.Context, msg types.ReminderMessage) error
}

// Handler holds the dependencies for the reminder worker.
type Handler struct {
	channel DeliveryChannel
	metrics notify.DeliveryMetrics
	logger  *slog.Logger
}

// Handle processes an SQS event containing fired reminder messages. Each
// message is processed independently; delivery failures are reported as
// partial batch failures so only those messages are retried.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process reminder message",
				"message_id", record.MessageId,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processRecord delivers a single fired reminder.
func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) error {
	var msg types.ReminderMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Error("failed to unmarshal reminder message",
			"message_id", record.MessageId,
			"error", err,
		)
		// Permanent parse failure, do not retry (return nil to ACK).
		return nil
	}

	logger := h.logger.With(
		"message_id", msg.MessageID,
		"handle", msg.Handle,
		"fired_at", msg.FiredAt,
		"retry_count", msg.RetryCount,
	)
	logger.Info("delivering reminder")

	start := time.Now()
	err := h.channel.Deliver(ctx, msg)
	h.metrics.RecordLatency(ctx, time.Since(start))

	if err != nil {
		h.metrics.RecordDelivery(ctx, notify.ResultFailure)
		return err
	}

	h.metrics.RecordDelivery(ctx, notify.ResultSuccess)
	logger.Info("reminder delivered")
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("reminder worker initializing (cold start)")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	reminderCfg := config.ReminderConfig{
		WebhookURL: os.Getenv("REMINDER_WEBHOOK_URL"),
		UserAgent:  os.Getenv("REMINDER_USER_AGENT"),
		Timeout:    10 * time.Second,
	}
	if reminderCfg.UserAgent == "" {
		reminderCfg.UserAgent = "Umbrella-Reminder/1.0"
	}
	if timeoutStr := os.Getenv("REMINDER_TIMEOUT"); timeoutStr != "" {
		if d, parseErr := time.ParseDuration(timeoutStr); parseErr == nil {
			reminderCfg.Timeout = d
		}
	}

	channel := notify.NewWebhookChannel(reminderCfg, logger)
	metrics := notify.NewCloudWatchDeliveryMetrics(cloudwatch.NewFromConfig(awsCfg), logger)

	handler := &Handler{
		channel: channel,
		metrics: metrics,
		logger:  logger,
	}

	logger.Info("reminder worker initialized",
		"user_agent", reminderCfg.UserAgent,
		"timeout", reminderCfg.Timeout.String(),
	)

	lambda.Start(handler.Handle)
}
