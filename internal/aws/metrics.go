package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Checkout metric names.
const (
	MetricIntentsCreated          = "PaymentIntentsCreated"
	MetricOrdersCreated           = "OrdersCreated"
	MetricDuplicateAttempts       = "DuplicateVerificationAttempts"
	MetricSignatureFailures       = "SignatureFailures"
	MetricMaterializationFailures = "MaterializationFailures"
	MetricGatewayErrors           = "GatewayErrors"
	MetricWebhooksReceived        = "WebhooksReceived"
)

// Metrics publishes counters to CloudWatch. A disabled Metrics is a no-op,
// which is what local runs and tests use.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	enabled   bool
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics bound to a namespace.
func NewMetrics(client CloudWatchAPI, namespace string, enabled bool) *Metrics {
	if namespace == "" {
		namespace = "NurseryCheckout"
	}
	return &Metrics{
		client:    client,
		namespace: namespace,
		enabled:   enabled && client != nil,
		nowFunc:   time.Now,
	}
}

// RecordCount increments a counter metric by one.
func (m *Metrics) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	if m == nil || !m.enabled {
		return nil
	}

	dims := make([]cwtypes.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, cwtypes.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(metricName),
				Value:      sdkaws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  sdkaws.Time(m.nowFunc()),
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", metricName, err)
	}
	return nil
}

// Enabled reports whether metrics are shipped to CloudWatch.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}
