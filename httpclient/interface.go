// Package httpclient is the Mercado Pago REST transport: a request builder
// that attaches bearer authentication and an executor that retries on
// HTTP 429 as instructed by Retry-After.
package httpclient

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/mercadopago-go/trace"
)

const (
	// HeaderXRequestID is the correlation header sent on every request
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderIdempotencyKey makes POST requests safe to repeat
	HeaderIdempotencyKey = "X-Idempotency-Key"
	// HeaderRetryAfter carries the number of seconds to wait after a 429
	HeaderRetryAfter = "Retry-After"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerUserAgent     = "User-Agent"
	contentTypeJSON     = "application/json"
)

// Defaults applied by NewBuilder.
const (
	DefaultBaseURL            = "https://api.mercadopago.com"
	DefaultTimeout            = 30 * time.Second
	DefaultConnectTimeout     = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultMaxPayloadLogBytes = 1024
	DefaultRetryAfter         = time.Second
	DefaultUserAgent          = "mercadopago-go"
)

// Client creates requests against the Mercado Pago API. Implementations are
// immutable once built and safe for concurrent use.
type Client interface {
	// Request starts a request. A path beginning with "http" is used as the
	// full URL, anything else is appended to the base URL.
	Request(method, path string) *RequestBuilder
	Get(path string) *RequestBuilder
	Post(path string) *RequestBuilder
	Put(path string) *RequestBuilder
	Patch(path string) *RequestBuilder
	Delete(path string) *RequestBuilder
	// BaseURL returns the base URL without a trailing slash.
	BaseURL() string
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewSerializationError("failed to decode response body", err)
	}
	return nil
}

// Stats contains request execution statistics
type Stats struct {
	// ElapsedTime spans every attempt of one Send, retry waits included.
	ElapsedTime time.Duration
	// CallCount is the number of HTTP sends performed.
	CallCount int64
}

// RequestInterceptor is called before each attempt is sent
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after each attempt's response headers arrive
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	BaseURL        string
	AccessToken    string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// MaxRetries is the number of additional sends allowed after a 429. Zero sends once.
	MaxRetries           int
	RateLimiter          *rate.Limiter
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	DefaultHeaders       map[string]string
	UserAgent            string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
}
