package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics installs a manual-reader meter provider so recorded
// metrics can be collected and inspected.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	mp := NewMetricsProvider(DefaultMetricsConfig())
	if mp.Error() != nil {
		t.Fatalf("NewMetricsProvider() error = %v", mp.Error())
	}
	return reader, mp
}

func collectMetricNames(t *testing.T, reader *metric.ManualReader) map[string]bool {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	if config.MeterName != "github.com/provisionkit/provision-go" {
		t.Errorf("MeterName = %s", config.MeterName)
	}
	if config.MeterVersion == "" {
		t.Error("MeterVersion is empty")
	}
}

func TestNewMetricsProvider(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	if mp == nil {
		t.Fatal("NewMetricsProvider() returned nil")
	}
}

func TestNewMetricsProvider_EmptyConfigFallsBack(t *testing.T) {
	reader, _ := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	mp := NewMetricsProvider(MetricsConfig{})
	if mp.Error() != nil {
		t.Errorf("NewMetricsProvider() with empty config error = %v", mp.Error())
	}
}

func TestMetricsProvider_RecordInvocation(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.RecordInvocation(ctx, "database_create", true, 100*time.Millisecond)
	mp.RecordInvocation(ctx, "database_create", false, 50*time.Millisecond)

	names := collectMetricNames(t, reader)
	for _, want := range []string{
		"provision.tool.invocations",
		"provision.tool.failures",
		"provision.tool.duration",
	} {
		if !names[want] {
			t.Errorf("metric %q not recorded; got %v", want, names)
		}
	}
}

func TestMetricsProvider_RecordRetry(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	mp.RecordRetry(context.Background(), "database")

	names := collectMetricNames(t, reader)
	if !names["provision.retry.attempts"] {
		t.Errorf("retry metric not recorded; got %v", names)
	}
}
