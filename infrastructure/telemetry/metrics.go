// Package telemetry provides OpenTelemetry metrics for the provisioning
// server runtime.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	retries     metric.Int64Counter

	invocationDuration metric.Float64Histogram

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/provisionkit/provision-go",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider backed by the global
// meter provider. Without a configured SDK the instruments are no-ops.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	meter := otel.GetMeterProvider().Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{meter: meter}
	mp.initErr = mp.initInstruments()
	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.invocations, err = mp.meter.Int64Counter(
		"provision.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return err
	}

	mp.failures, err = mp.meter.Int64Counter(
		"provision.tool.failures",
		metric.WithDescription("Number of tool invocations enveloped as failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	mp.retries, err = mp.meter.Int64Counter(
		"provision.retry.attempts",
		metric.WithDescription("Number of backoff retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	mp.invocationDuration, err = mp.meter.Float64Histogram(
		"provision.tool.duration",
		metric.WithDescription("Duration of tool invocations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordInvocation records a completed tool invocation.
func (mp *MetricsProvider) RecordInvocation(ctx context.Context, toolName string, success bool, duration time.Duration) {
	if mp.initErr != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.Bool("success", success),
	)
	mp.invocations.Add(ctx, 1, attrs)
	if !success {
		mp.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
	mp.invocationDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordRetry records one backoff retry attempt for the labeled policy.
func (mp *MetricsProvider) RecordRetry(ctx context.Context, label string) {
	if mp.initErr != nil {
		return
	}
	mp.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
}
