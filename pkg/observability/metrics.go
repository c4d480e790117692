package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics publishes application metrics to CloudWatch.
// A nil client disables publishing, which keeps local development quiet.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordTurn records metrics for one chat turn
func (m *Metrics) RecordTurn(ctx context.Context, intent string, duration time.Duration, operationsApplied int, err error) {
	if m.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	dimensions := []types.Dimension{
		{
			Name:  aws.String("Intent"),
			Value: aws.String(intent),
		},
		{
			Name:  aws.String("Status"),
			Value: aws.String(status),
		},
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("TurnDuration"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("TurnCount"),
			Dimensions: dimensions,
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("OperationsApplied"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(operationsApplied)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// RecordLLMLatency records latency of one LLM round trip
func (m *Metrics) RecordLLMLatency(ctx context.Context, model string, latency time.Duration, err error) {
	if m.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("LLMLatency"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("Model"),
					Value: aws.String(model),
				},
				{
					Name:  aws.String("Status"),
					Value: aws.String(status),
				},
			},
			Value:     aws.Float64(float64(latency.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		// Metrics failures never fail the operation being measured
		if m.logger != nil {
			m.logger.Warn("Failed to publish metrics", zap.Error(err))
		}
	}
}
