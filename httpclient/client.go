package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http/httpguts"

	"github.com/gaborage/mercadopago-go/logger"
)

// client implements the Client interface
type client struct {
	logger     logger.Logger
	config     *Config
	httpClient *nethttp.Client
	tracer     trace.Tracer
	metrics    *clientMetrics
	// sleep waits out a Retry-After delay; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Client = (*client)(nil)

func (c *client) BaseURL() string { return c.config.BaseURL }

// Request starts a request with the bearer token and default headers attached.
func (c *client) Request(method, path string) *RequestBuilder {
	target := path
	if !strings.HasPrefix(path, "http") {
		target = c.config.BaseURL + path
	}

	header := make(nethttp.Header, len(c.config.DefaultHeaders)+2)
	if c.config.UserAgent != "" {
		header.Set(headerUserAgent, c.config.UserAgent)
	}
	for k, v := range c.config.DefaultHeaders {
		header.Set(k, v)
	}
	header.Set(headerAuthorization, "Bearer "+c.config.AccessToken)

	return &RequestBuilder{client: c, method: method, url: target, header: header}
}

func (c *client) Get(path string) *RequestBuilder    { return c.Request(nethttp.MethodGet, path) }
func (c *client) Post(path string) *RequestBuilder   { return c.Request(nethttp.MethodPost, path) }
func (c *client) Put(path string) *RequestBuilder    { return c.Request(nethttp.MethodPut, path) }
func (c *client) Patch(path string) *RequestBuilder  { return c.Request(nethttp.MethodPatch, path) }
func (c *client) Delete(path string) *RequestBuilder { return c.Request(nethttp.MethodDelete, path) }

// queryPair keeps insertion order, duplicates included.
type queryPair struct {
	key, value string
}

// RequestBuilder accumulates one request. The first failing step is
// remembered and returned by Send. A builder must not be reused after Send.
type RequestBuilder struct {
	client *client
	method string
	url    string
	header nethttp.Header
	query  []queryPair
	body   []byte
	err    error
}

// Header sets a header, replacing any previous value.
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	if !httpguts.ValidHeaderFieldName(key) {
		rb.err = NewInternalError(fmt.Sprintf("invalid header name %q", key), nil)
		return rb
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		rb.err = NewInternalError(fmt.Sprintf("invalid value for header %q", key), nil)
		return rb
	}
	rb.header.Set(key, value)
	return rb
}

// Query appends query parameters. params is one of url.Values,
// map[string]string, map[string][]string, [][2]string, a string-keyed map
// of scalars (or slices of scalars) such as map[string]any, or a struct
// with `url` tags. Map keys are emitted in sorted order; nil map values
// are skipped.
func (rb *RequestBuilder) Query(params any) *RequestBuilder {
	if rb.err != nil || params == nil {
		return rb
	}
	switch p := params.(type) {
	case url.Values:
		rb.addValues(p)
	case map[string][]string:
		rb.addValues(p)
	case map[string]string:
		for _, k := range sortedKeys(p) {
			rb.query = append(rb.query, queryPair{k, p[k]})
		}
	case [][2]string:
		for _, kv := range p {
			rb.query = append(rb.query, queryPair{kv[0], kv[1]})
		}
	default:
		v := reflect.ValueOf(params)
		if v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
			values, err := mapValues(v)
			if err != nil {
				rb.err = NewSerializationError("failed to encode query parameters", err)
				return rb
			}
			rb.addValues(values)
			return rb
		}
		if v.Kind() != reflect.Struct {
			rb.err = NewSerializationError(fmt.Sprintf("unsupported query parameter type %T", params), nil)
			return rb
		}
		values, err := query.Values(params)
		if err != nil {
			rb.err = NewSerializationError("failed to encode query parameters", err)
			return rb
		}
		rb.addValues(values)
	}
	return rb
}

func (rb *RequestBuilder) addValues(values map[string][]string) {
	for _, k := range sortedKeys(values) {
		for _, v := range values[k] {
			rb.query = append(rb.query, queryPair{k, v})
		}
	}
}

// mapValues flattens a string-keyed map whose values are scalars or slices
// of scalars.
func mapValues(m reflect.Value) (map[string][]string, error) {
	out := make(map[string][]string, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		v := iter.Value()
		for isIndirect(v) && !v.IsNil() {
			v = v.Elem()
		}
		if isIndirect(v) {
			continue
		}
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			for i := range v.Len() {
				s, err := scalarString(v.Index(i))
				if err != nil {
					return nil, fmt.Errorf("key %q: %w", key, err)
				}
				out[key] = append(out[key], s)
			}
			continue
		}
		s, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = append(out[key], s)
	}
	return out, nil
}

func isIndirect(v reflect.Value) bool {
	return v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer
}

func scalarString(v reflect.Value) (string, error) {
	for isIndirect(v) && !v.IsNil() {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v.Interface()), nil
	default:
		return "", fmt.Errorf("unsupported value type %s", v.Type())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// JSON sets body to its JSON encoding.
func (rb *RequestBuilder) JSON(body any) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	data, err := json.Marshal(body)
	if err != nil {
		rb.err = NewSerializationError("failed to encode request body", err)
		return rb
	}
	rb.body = data
	rb.header.Set(headerContentType, contentTypeJSON)
	return rb
}

// Send executes the request, retrying on 429. Any non-2xx final status is
// returned as an error: an *APIErrorResponse when the body is a Mercado Pago
// error document and an internal error carrying the raw body otherwise.
func (rb *RequestBuilder) Send(ctx context.Context) (*Response, error) {
	if rb.err != nil {
		return nil, rb.err
	}

	target, err := rb.targetURL()
	if err != nil {
		return nil, err
	}

	tmpl := &requestTemplate{
		method: rb.method,
		url:    target,
		header: rb.header.Clone(),
		body:   rb.body,
	}

	resp, err := rb.client.execute(ctx, tmpl)
	if err != nil {
		return nil, err
	}

	if IsSuccessStatus(resp.StatusCode) {
		return resp, nil
	}
	if apiErr, ok := parseAPIError(resp.Body, resp.StatusCode); ok {
		return nil, apiErr
	}
	return nil, newUnexpectedResponseError(resp.StatusCode, resp.Body)
}

func (rb *RequestBuilder) targetURL() (string, error) {
	u, err := url.Parse(rb.url)
	if err != nil {
		return "", NewInternalError("invalid request url", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", NewInternalError(fmt.Sprintf("request url %q is not absolute", rb.url), nil)
	}
	if len(rb.query) == 0 {
		return u.String(), nil
	}

	var sb strings.Builder
	sb.WriteString(u.RawQuery)
	for _, p := range rb.query {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	u.RawQuery = sb.String()
	return u.String(), nil
}
