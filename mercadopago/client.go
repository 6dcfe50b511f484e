// Package mercadopago exposes typed operations of the Mercado Pago REST API
// on top of the httpclient transport.
package mercadopago

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gaborage/mercadopago-go/config"
	"github.com/gaborage/mercadopago-go/httpclient"
	"github.com/gaborage/mercadopago-go/logger"
	"github.com/gaborage/mercadopago-go/validation"
)

// DefaultFanOutLimit bounds the concurrent sends of batch operations such as
// GetPayments.
const DefaultFanOutLimit = 4

// Client performs typed API calls. It is safe for concurrent use.
type Client struct {
	http        httpclient.Client
	validator   *validation.Validator
	fanOutLimit int
}

// Option configures a Client.
type Option func(*Client)

// WithValidator replaces the process-wide request validator.
func WithValidator(v *validation.Validator) Option {
	return func(c *Client) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithFanOutLimit sets how many requests batch operations keep in flight.
// Values below 1 are ignored.
func WithFanOutLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.fanOutLimit = n
		}
	}
}

// New wraps an already built transport.
func New(hc httpclient.Client, opts ...Option) *Client {
	c := &Client{
		http:        hc,
		validator:   validation.Default(),
		fanOutLimit: DefaultFanOutLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds the transport from a loaded configuration. When log is
// nil a logger is created from cfg.Log.
func NewFromConfig(cfg *config.Config, log logger.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("mercadopago: nil configuration")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	cc := cfg.Client
	b := httpclient.NewBuilder(log).
		WithAccessToken(cc.AccessToken).
		WithBaseURL(cc.BaseURL).
		WithTimeout(cc.Timeout).
		WithConnectTimeout(cc.ConnectTimeout).
		WithMaxRetries(cc.MaxRetries).
		WithLogPayloads(cc.Payload.Log).
		WithMaxPayloadLogBytes(cc.Payload.MaxBytes)
	if cc.Rate.Limit > 0 {
		b = b.WithRateLimit(cc.Rate.Limit, cc.Rate.Burst)
	}

	hc, err := b.Build()
	if err != nil {
		return nil, err
	}
	return New(hc, opts...), nil
}

// HTTP returns the underlying transport for endpoints without a typed method.
func (c *Client) HTTP() httpclient.Client { return c.http }

// RequestOption adjusts a single call.
type RequestOption func(*httpclient.RequestBuilder)

// WithIdempotencyKey sets X-Idempotency-Key so the API deduplicates repeated
// POSTs. Keys are never generated implicitly; see NewIdempotencyKey.
func WithIdempotencyKey(key string) RequestOption {
	return func(rb *httpclient.RequestBuilder) {
		rb.Header(httpclient.HeaderIdempotencyKey, key)
	}
}

// WithHeader sets an arbitrary header on one call.
func WithHeader(key, value string) RequestOption {
	return func(rb *httpclient.RequestBuilder) {
		rb.Header(key, value)
	}
}

// NewIdempotencyKey returns a random UUID suitable for X-Idempotency-Key.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

func (c *Client) validate(req any) error {
	err := c.validator.Validate(req)
	if err == nil {
		return nil
	}
	field := ""
	var ve *validation.ValidationError
	if errors.As(err, &ve) && len(ve.Errors) > 0 {
		field = ve.Errors[0].Field
	}
	return httpclient.NewValidationError(err.Error(), field, err)
}

func validationFailure(message, field string) error {
	return httpclient.NewValidationError(message, field, nil)
}

// do sends rb and decodes a 2xx body into out.
func do[T any](ctx context.Context, rb *httpclient.RequestBuilder, opts []RequestOption) (*T, error) {
	for _, opt := range opts {
		opt(rb)
	}
	resp, err := rb.Send(ctx)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := resp.Decode(out); err != nil {
		return nil, err
	}
	return out, nil
}
