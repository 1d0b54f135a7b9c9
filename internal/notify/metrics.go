package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatch metric names and dimensions. All delivery components use these
// constants.
const (
	MetricNamespace       = "Umbrella"
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"

	DimResult = "Result"
)

// MetricResult labels a delivery outcome.
type MetricResult string

const (
	ResultSuccess MetricResult = "success"
	ResultFailure MetricResult = "failure"
)

// DeliveryMetrics records reminder delivery telemetry.
type DeliveryMetrics interface {
	RecordDelivery(ctx context.Context, result MetricResult)
	RecordLatency(ctx context.Context, d time.Duration)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchDeliveryMetrics implements
// DeliveryMetrics.
var _ DeliveryMetrics = (*CloudWatchDeliveryMetrics)(nil)

// CloudWatchDeliveryMetrics emits delivery metrics to AWS CloudWatch.
// Emission failures are logged and swallowed: telemetry must never fail a
// delivery.
type CloudWatchDeliveryMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchDeliveryMetrics creates a metrics recorder publishing to the
// Umbrella namespace.
func NewCloudWatchDeliveryMetrics(client CloudWatchClient, logger *slog.Logger) *CloudWatchDeliveryMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchDeliveryMetrics{
		client:    client,
		namespace: MetricNamespace,
		logger:    logger,
	}
}

// RecordDelivery emits a DeliveryAttempt metric with a Result dimension.
func (m *CloudWatchDeliveryMetrics) RecordDelivery(ctx context.Context, result MetricResult) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricDeliveryAttempt),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(DimResult),
						Value: aws.String(string(result)),
					},
				},
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.WarnContext(ctx, "failed to emit delivery metric", "error", err)
	}
}

// RecordLatency emits the time a delivery attempt took.
func (m *CloudWatchDeliveryMetrics) RecordLatency(ctx context.Context, d time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricDeliveryLatency),
				Value:      aws.Float64(float64(d.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.WarnContext(ctx, "failed to emit latency metric", "error", err)
	}
}

// NoopMetrics is a DeliveryMetrics that records nothing. Used where no
// CloudWatch client is configured.
type NoopMetrics struct{}

func (NoopMetrics) RecordDelivery(context.Context, MetricResult) {}
func (NoopMetrics) RecordLatency(context.Context, time.Duration) {}
