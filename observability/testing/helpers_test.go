package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestTraceProviderCapturesSpans(t *testing.T) {
	tp := NewTestTraceProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "mercadopago GET")
	span.SetAttributes(
		attribute.String("http.request.method", "GET"),
		attribute.Int("http.response.status_code", 200),
		attribute.Bool("retried", false),
	)
	span.End()

	found := FindSpan(t, tp.Exporter.GetSpans(), "mercadopago GET")
	AssertSpanAttribute(t, found, "http.request.method", "GET")
	AssertSpanAttribute(t, found, "http.response.status_code", 200)
	AssertSpanAttribute(t, found, "retried", false)

	_, ok := SpanAttribute(found, "missing")
	assert.False(t, ok)
}

func TestMeterProviderCollects(t *testing.T) {
	mp := NewTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	meter := mp.Meter("test")
	hist, err := meter.Float64Histogram("duration")
	require.NoError(t, err)
	counter, err := meter.Int64Counter("retries")
	require.NoError(t, err)

	ctx := context.Background()
	hist.Record(ctx, 0.1, metric.WithAttributes(attribute.Int("status", 429)))
	hist.Record(ctx, 0.2, metric.WithAttributes(attribute.Int("status", 200)))
	counter.Add(ctx, 2)
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "POST")))

	rm := mp.Collect(t)
	assert.Equal(t, uint64(2), HistogramCount(t, rm, "duration"))
	assert.Equal(t, int64(3), SumInt64(t, rm, "retries"))
	assert.Nil(t, FindMetric(rm, "absent"))
}
