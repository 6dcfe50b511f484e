// Package testing provides in-memory OpenTelemetry providers and assertions
// for checking the spans and metrics the Mercado Pago client emits.
//
// Usage:
//
//	tp := NewTestTraceProvider()
//	mp := NewTestMeterProvider()
//	client, _ := httpclient.NewBuilder(nil).
//		WithAccessToken(token).
//		WithTracerProvider(tp).
//		WithMeterProvider(mp).
//		Build()
//
//	// ... send requests ...
//
//	span := FindSpan(t, tp.Exporter.GetSpans(), "mercadopago GET")
//	AssertSpanAttribute(t, span, "http.response.status_code", 200)
//	assert.Equal(t, uint64(1), HistogramCount(t, mp.Collect(t), "http.client.request.duration"))
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const attrValueMismatchErrMsg = "attribute %s value mismatch"

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously
// into memory, so spans are visible as soon as they end.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return &TestTraceProvider{TracerProvider: provider, Exporter: exporter}
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider read on demand by Collect.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return &TestMeterProvider{MeterProvider: provider, Reader: reader}
}

// Collect reads all metrics from the provider.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindSpan returns the first span named name and fails the test if there is none.
func FindSpan(t *testing.T, spans tracetest.SpanStubs, name string) *tracetest.SpanStub {
	t.Helper()
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	require.Failf(t, "span not found", "no span named %q among %d spans", name, len(spans))
	return nil
}

// SpanAttribute looks up an attribute by key.
func SpanAttribute(span *tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

// AssertSpanAttribute asserts that a span has a specific attribute with the expected value.
// expected is a string, int, int64, float64 or bool.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	value, ok := SpanAttribute(span, key)
	if !ok {
		t.Errorf("attribute %s not found in span %s", key, span.Name)
		return
	}
	switch v := expected.(type) {
	case string:
		assert.Equal(t, v, value.AsString(), attrValueMismatchErrMsg, key)
	case int:
		assert.Equal(t, int64(v), value.AsInt64(), attrValueMismatchErrMsg, key)
	case int64:
		assert.Equal(t, v, value.AsInt64(), attrValueMismatchErrMsg, key)
	case float64:
		assert.Equal(t, v, value.AsFloat64(), attrValueMismatchErrMsg, key)
	case bool:
		assert.Equal(t, v, value.AsBool(), attrValueMismatchErrMsg, key)
	default:
		t.Fatalf("unsupported attribute value type: %T", expected)
	}
}

// FindMetric finds a metric by name in the ResourceMetrics.
// Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// HistogramCount sums the counts of every data point of a float64 histogram.
func HistogramCount(t *testing.T, rm metricdata.ResourceMetrics, metricName string) uint64 {
	t.Helper()
	m := FindMetric(rm, metricName)
	require.NotNil(t, m, "metric %s not found", metricName)
	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is %T, not a float64 histogram", metricName, m.Data)

	var total uint64
	for _, dp := range data.DataPoints {
		total += dp.Count
	}
	return total
}

// SumInt64 totals every data point of an int64 counter.
func SumInt64(t *testing.T, rm metricdata.ResourceMetrics, metricName string) int64 {
	t.Helper()
	m := FindMetric(rm, metricName)
	require.NotNil(t, m, "metric %s not found", metricName)
	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T, not an int64 sum", metricName, m.Data)

	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}
