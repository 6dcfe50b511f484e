package httpclient

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/gaborage/mercadopago-go/httpclient"

	// Metric names following OpenTelemetry semantic conventions
	metricHTTPClientDuration = "http.client.request.duration" // Histogram in seconds, one per attempt
	metricRateLimitRetries   = "mercadopago.client.rate_limit.retries"

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrURLFull            = "url.full"
	attrErrorType          = "error.type"
	attrRequestID          = "mercadopago.request_id"
	attrCallCount          = "mercadopago.call_count"
)

var httpDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// clientMetrics holds the instruments of one client. Nil instruments are
// skipped, so a failed registration never breaks a request.
type clientMetrics struct {
	duration metric.Float64Histogram
	retries  metric.Int64Counter
}

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize HTTP client metric %s: %v\n", metricName, err)
	}
}

func newClientMetrics(mp metric.MeterProvider) *clientMetrics {
	meter := mp.Meter(meterName)
	m := &clientMetrics{}

	var err error
	m.duration, err = meter.Float64Histogram(
		metricHTTPClientDuration,
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...),
	)
	logMetricError(metricHTTPClientDuration, err)

	m.retries, err = meter.Int64Counter(
		metricRateLimitRetries,
		metric.WithDescription("Requests retried after HTTP 429"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRateLimitRetries, err)

	return m
}

func (m *clientMetrics) recordAttempt(ctx context.Context, method string, status int, elapsed time.Duration, errType ErrorType) {
	if m == nil || m.duration == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(attrHTTPRequestMethod, method)}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrHTTPResponseStatus, status))
	}
	if errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, string(errType)))
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func (m *clientMetrics) recordRetry(ctx context.Context, method string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrHTTPRequestMethod, method)))
}
