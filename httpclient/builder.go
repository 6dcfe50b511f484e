package httpclient

import (
	"maps"
	"net"
	nethttp "net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/mercadopago-go/logger"
)

const tracerName = "github.com/gaborage/mercadopago-go/httpclient"

// Builder assembles a Client.
type Builder struct {
	logger         logger.Logger
	config         *Config
	httpClient     *nethttp.Client
	tracerProvider oteltrace.TracerProvider
	meterProvider  metric.MeterProvider
}

// NewBuilder creates a builder with default settings. A nil logger discards
// all log output.
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{
		logger: log,
		config: &Config{
			BaseURL:            DefaultBaseURL,
			Timeout:            DefaultTimeout,
			ConnectTimeout:     DefaultConnectTimeout,
			MaxRetries:         DefaultMaxRetries,
			UserAgent:          DefaultUserAgent,
			MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
			DefaultHeaders:     make(map[string]string),
		},
	}
}

// WithAccessToken sets the bearer credential. Required.
func (b *Builder) WithAccessToken(token string) *Builder {
	b.config.AccessToken = token
	return b
}

// WithBaseURL overrides the API root, typically with an httptest server URL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithConnectTimeout sets the dial timeout. Ignored with WithHTTPClient.
func (b *Builder) WithConnectTimeout(timeout time.Duration) *Builder {
	b.config.ConnectTimeout = timeout
	return b
}

// WithMaxRetries sets how many times a 429 answer is retried.
func (b *Builder) WithMaxRetries(maxRetries int) *Builder {
	b.config.MaxRetries = maxRetries
	return b
}

// WithRateLimit throttles outgoing attempts to rps requests per second.
// A non-positive rps removes the limiter.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	if rps <= 0 {
		b.config.RateLimiter = nil
		return b
	}
	if burst < 1 {
		burst = 1
	}
	b.config.RateLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	return b
}

// WithRateLimiter shares an existing limiter, e.g. between clients using the
// same credentials.
func (b *Builder) WithRateLimiter(limiter *rate.Limiter) *Builder {
	b.config.RateLimiter = limiter
	return b
}

// WithHTTPClient replaces the transport entirely.
func (b *Builder) WithHTTPClient(c *nethttp.Client) *Builder {
	b.httpClient = c
	return b
}

// WithTracerProvider sets the provider of the per-Send span. Default: otel global.
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMeterProvider sets the provider of the attempt metrics. Default: otel global.
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithDefaultHeader adds a header sent on every request
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithUserAgent overrides the User-Agent header
func (b *Builder) WithUserAgent(ua string) *Builder {
	b.config.UserAgent = ua
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithLogPayloads enables debug logging of headers and bodies
func (b *Builder) WithLogPayloads(enabled bool) *Builder {
	b.config.LogPayloads = enabled
	return b
}

// WithMaxPayloadLogBytes caps logged body bytes. Non-positive values keep the default.
func (b *Builder) WithMaxPayloadLogBytes(n int) *Builder {
	if n > 0 {
		b.config.MaxPayloadLogBytes = n
	}
	return b
}

// Build validates the configuration and creates the client.
func (b *Builder) Build() (Client, error) {
	if b.config.AccessToken == "" {
		return nil, NewInternalError("access token is required", nil)
	}
	if b.config.MaxRetries < 0 {
		return nil, NewInternalError("max retries must not be negative", nil)
	}
	if b.config.BaseURL == "" {
		b.config.BaseURL = DefaultBaseURL
	}

	cfg := *b.config
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	cfg.RequestInterceptors = append([]RequestInterceptor(nil), b.config.RequestInterceptors...)
	cfg.ResponseInterceptors = append([]ResponseInterceptor(nil), b.config.ResponseInterceptors...)

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Timeout, cfg.ConnectTimeout)
	}

	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := b.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	return &client{
		logger:     b.logger,
		config:     &cfg,
		httpClient: httpClient,
		tracer:     tp.Tracer(tracerName),
		metrics:    newClientMetrics(mp),
		sleep:      sleepContext,
	}, nil
}

func newHTTPClient(timeout, connectTimeout time.Duration) *nethttp.Client {
	transport := nethttp.DefaultTransport.(*nethttp.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	return &nethttp.Client{Timeout: timeout, Transport: transport}
}
