package httpclient

import (
	"bytes"
	"context"
	"io"
	"math"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/mercadopago-go/logger"
	mptrace "github.com/gaborage/mercadopago-go/trace"
)

// requestTemplate is the immutable source every attempt is rebuilt from.
type requestTemplate struct {
	method string
	url    string
	header nethttp.Header
	body   []byte
}

func (t *requestTemplate) newRequest(ctx context.Context) (*nethttp.Request, error) {
	var body io.Reader = nethttp.NoBody
	if len(t.body) > 0 {
		body = bytes.NewReader(t.body)
	}
	req, err := nethttp.NewRequestWithContext(ctx, t.method, t.url, body)
	if err != nil {
		return nil, err
	}
	req.Header = t.header.Clone()
	return req, nil
}

// execute sends tmpl until the answer is not 429 or the retry budget is
// spent. Transport failures are returned at once and never retried.
func (c *client) execute(ctx context.Context, tmpl *requestTemplate) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "mercadopago "+tmpl.method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrHTTPRequestMethod, tmpl.method),
			attribute.String(attrURLFull, tmpl.url),
		))
	defer span.End()

	requestID := mptrace.InjectHeaders(ctx, tmpl.header)
	span.SetAttributes(attribute.String(attrRequestID, requestID))

	start := time.Now()
	attempts := 0
	for {
		resp, err := c.attempt(ctx, tmpl, requestID, start, int64(attempts+1))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		if resp.StatusCode != nethttp.StatusTooManyRequests {
			span.SetAttributes(
				attribute.Int(attrHTTPResponseStatus, resp.StatusCode),
				attribute.Int64(attrCallCount, resp.Stats.CallCount),
			)
			if !IsSuccessStatus(resp.StatusCode) {
				span.SetStatus(codes.Error, nethttp.StatusText(resp.StatusCode))
			}
			return resp, nil
		}

		attempts++
		if attempts > c.config.MaxRetries {
			err := newTooManyRetriesError()
			c.logger.Warn().
				Str("request_id", requestID).
				Int("retries", c.config.MaxRetries).
				Msg("REST client retries exhausted")
			span.SetAttributes(attribute.Int64(attrCallCount, resp.Stats.CallCount))
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		delay := parseRetryAfter(resp.Headers.Get(HeaderRetryAfter))
		c.metrics.recordRetry(ctx, tmpl.method)
		c.logger.Warn().
			Str("request_id", requestID).
			Int("attempt", attempts).
			Int("max_retries", c.config.MaxRetries).
			Dur("retry_after", delay).
			Msg("REST client rate limited, retrying")
		span.AddEvent("rate_limited", trace.WithAttributes(attribute.Int64("retry_after_ms", delay.Milliseconds())))

		if err := c.sleep(ctx, delay); err != nil {
			netErr := NewNetworkError("retry wait interrupted", err)
			span.RecordError(netErr)
			span.SetStatus(codes.Error, netErr.Error())
			return nil, netErr
		}
	}
}

// attempt performs one send. callCount is the number of this send within Send.
func (c *client) attempt(ctx context.Context, tmpl *requestTemplate, requestID string, start time.Time, callCount int64) (*Response, error) {
	req, err := tmpl.newRequest(ctx)
	if err != nil {
		return nil, NewInternalError("failed to create request", err)
	}

	if c.config.RateLimiter != nil {
		if err := c.config.RateLimiter.Wait(ctx); err != nil {
			return nil, NewNetworkError("rate limiter wait failed", err)
		}
	}

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return nil, NewInternalError("request interceptor failed", err)
		}
	}

	c.logRequest(req, tmpl.body, requestID)

	sendStart := time.Now()
	logger.IncrementAPICounter(ctx)
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		elapsed := time.Since(sendStart)
		logger.AddAPIElapsed(ctx, elapsed.Nanoseconds())
		c.metrics.recordAttempt(ctx, tmpl.method, 0, elapsed, NetworkError)
		return nil, NewNetworkError("request failed", err)
	}
	defer httpResp.Body.Close()

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, req, httpResp); err != nil {
			return nil, NewInternalError("response interceptor failed", err)
		}
	}

	body, err := io.ReadAll(httpResp.Body)
	elapsed := time.Since(sendStart)
	logger.AddAPIElapsed(ctx, elapsed.Nanoseconds())
	if err != nil {
		c.metrics.recordAttempt(ctx, tmpl.method, httpResp.StatusCode, elapsed, NetworkError)
		return nil, NewNetworkError("failed to read response body", err)
	}
	c.metrics.recordAttempt(ctx, tmpl.method, httpResp.StatusCode, elapsed, "")

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
		},
	}
	c.logResponse(resp, requestID)
	return resp, nil
}

// maxRetryAfterSeconds is the largest delay representable as a time.Duration.
const maxRetryAfterSeconds = uint64(math.MaxInt64 / int64(time.Second))

// parseRetryAfter reads Retry-After as whole seconds. Missing or non-numeric
// values (HTTP dates included) mean DefaultRetryAfter; 0 means no wait.
func parseRetryAfter(value string) time.Duration {
	secs, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return DefaultRetryAfter
	}
	if secs > maxRetryAfterSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs) * time.Second
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
