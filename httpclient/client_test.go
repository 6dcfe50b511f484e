package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessToken = "APP_USR-test-access-token"

// capturedRequest is what a test server saw for one attempt.
type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// recordingServer answers with handler and keeps every request it received.
type recordingServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
}

func newRecordingServer(t *testing.T, handler http.HandlerFunc) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.requests = append(rs.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		rs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) captured() []capturedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]capturedRequest(nil), rs.requests...)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// sleepRecorder replaces the Retry-After wait and returns immediately.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestClient(t *testing.T, baseURL string, configure ...func(*Builder)) (*client, *sleepRecorder) {
	t.Helper()
	b := NewBuilder(nil).WithAccessToken(testAccessToken).WithBaseURL(baseURL)
	for _, fn := range configure {
		fn(b)
	}
	built, err := b.Build()
	require.NoError(t, err)

	c := built.(*client)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return c, rec
}

func TestBuilderDefaults(t *testing.T) {
	built, err := NewBuilder(nil).WithAccessToken(testAccessToken).Build()
	require.NoError(t, err)

	c := built.(*client)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.config.Timeout)
	assert.Equal(t, DefaultConnectTimeout, c.config.ConnectTimeout)
	assert.Equal(t, DefaultMaxRetries, c.config.MaxRetries)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Nil(t, c.config.RateLimiter)
	assert.NotNil(t, c.logger)
}

func TestBuilderValidation(t *testing.T) {
	_, err := NewBuilder(nil).Build()
	require.Error(t, err)
	assert.True(t, IsErrorType(err, InternalError))
	assert.Contains(t, err.Error(), "access token is required")

	_, err = NewBuilder(nil).WithAccessToken(testAccessToken).WithMaxRetries(-1).Build()
	require.Error(t, err)
	assert.True(t, IsErrorType(err, InternalError))
}

func TestBuilderTrimsBaseURL(t *testing.T) {
	built, err := NewBuilder(nil).WithAccessToken(testAccessToken).WithBaseURL("https://sandbox.example.com//").Build()
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.example.com", built.BaseURL())
	assert.Equal(t, "https://sandbox.example.com/v1/payments", built.Get("/v1/payments").url)
}

func TestBuilderRateLimit(t *testing.T) {
	built, err := NewBuilder(nil).WithAccessToken(testAccessToken).WithRateLimit(5, 0).Build()
	require.NoError(t, err)
	limiter := built.(*client).config.RateLimiter
	require.NotNil(t, limiter)
	assert.Equal(t, 1, limiter.Burst())

	built, err = NewBuilder(nil).WithAccessToken(testAccessToken).WithRateLimit(5, 2).WithRateLimit(0, 0).Build()
	require.NoError(t, err)
	assert.Nil(t, built.(*client).config.RateLimiter)
}

func TestBuiltClientIsIsolatedFromBuilder(t *testing.T) {
	b := NewBuilder(nil).WithAccessToken(testAccessToken).WithDefaultHeader("X-Product-Id", "first")
	built, err := b.Build()
	require.NoError(t, err)

	b.WithDefaultHeader("X-Product-Id", "second").WithAccessToken("other")
	rb := built.Get("/pos")
	assert.Equal(t, "first", rb.header.Get("X-Product-Id"))
	assert.Equal(t, "Bearer "+testAccessToken, rb.header.Get("Authorization"))
}

func TestRequestURLResolution(t *testing.T) {
	c, _ := newTestClient(t, "https://api.example.com/")

	assert.Equal(t, "https://api.example.com/v1/payments/1", c.Get("/v1/payments/1").url)
	assert.Equal(t, "http://other.example.com/x", c.Get("http://other.example.com/x").url)
	assert.Equal(t, "https://other.example.com/y", c.Post("https://other.example.com/y").url)

	for method, rb := range map[string]*RequestBuilder{
		http.MethodGet:    c.Get("/"),
		http.MethodPost:   c.Post("/"),
		http.MethodPut:    c.Put("/"),
		http.MethodPatch:  c.Patch("/"),
		http.MethodDelete: c.Delete("/"),
	} {
		assert.Equal(t, method, rb.method)
	}
}

func TestSendAttachesBearerAndDefaultHeaders(t *testing.T) {
	srv := newRecordingServer(t, jsonHandler(http.StatusOK, `{"id":1}`))
	c, _ := newTestClient(t, srv.URL, func(b *Builder) {
		b.WithDefaultHeader("X-Platform-Id", "mp-platform").WithUserAgent("shop/1.0")
	})

	resp, err := c.Get("/v1/payments/1").Header("X-Custom", "yes").Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))

	reqs := srv.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+testAccessToken, reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "mp-platform", reqs[0].Header.Get("X-Platform-Id"))
	assert.Equal(t, "shop/1.0", reqs[0].Header.Get("User-Agent"))
	assert.Equal(t, "yes", reqs[0].Header.Get("X-Custom"))
	assert.NotEmpty(t, reqs[0].Header.Get(HeaderXRequestID))
}

func TestHeaderOverwrites(t *testing.T) {
	c, _ := newTestClient(t, "https://api.example.com")
	rb := c.Post("/v1/payments").Header(HeaderIdempotencyKey, "a").Header(HeaderIdempotencyKey, "b")
	assert.Equal(t, []string{"b"}, rb.header.Values(HeaderIdempotencyKey))
}

func TestHeaderInvalid(t *testing.T) {
	srv := newRecordingServer(t, jsonHandler(http.StatusOK, `{}`))
	c, _ := newTestClient(t, srv.URL)

	_, err := c.Get("/x").Header("Bad Header", "v").Send(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, InternalError))

	_, err = c.Get("/x").Header("X-Ok", "line\nbreak").Send(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, InternalError))

	assert.Empty(t, srv.captured(), "nothing is sent after a builder error")
}

type searchFilters struct {
	ExternalReference string `url:"external_reference,omitempty"`
	Status            string `url:"status,omitempty"`
	Limit             int    `url:"limit,omitempty"`
}

func TestQueryEncoding(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params []any
		want   string
	}{
		{name: "pairs keep order and duplicates", path: "/s", params: []any{[][2]string{{"b", "2"}, {"a", "1"}, {"b", "3"}}}, want: "b=2&a=1&b=3"},
		{name: "map sorted", path: "/s", params: []any{map[string]string{"z": "1", "a": "x y"}}, want: "a=x+y&z=1"},
		{name: "url values", path: "/s", params: []any{url.Values{"status": {"approved", "pending"}}}, want: "status=approved&status=pending"},
		{name: "multi map", path: "/s", params: []any{map[string][]string{"k": {"1", "2"}}}, want: "k=1&k=2"},
		{name: "struct", path: "/s", params: []any{searchFilters{ExternalReference: "order-1", Limit: 10}}, want: "external_reference=order-1&limit=10"},
		{name: "struct pointer", path: "/s", params: []any{&searchFilters{Status: "approved"}}, want: "status=approved"},
		{name: "appends to existing query", path: "/s?sort=date", params: []any{[][2]string{{"a", "1"}}}, want: "sort=date&a=1"},
		{name: "multiple calls accumulate", path: "/s", params: []any{[][2]string{{"a", "1"}}, map[string]string{"b": "2"}}, want: "a=1&b=2"},
		{name: "escapes", path: "/s", params: []any{[][2]string{{"q", "a&b=c"}}}, want: "q=a%26b%3Dc"},
		{name: "scalar any map", path: "/s", params: []any{map[string]any{"limit": 30, "status": "approved", "sandbox": true, "skip": nil}}, want: "limit=30&sandbox=true&status=approved"},
		{name: "int map", path: "/s", params: []any{map[string]int{"offset": 60, "limit": 30}}, want: "limit=30&offset=60"},
		{name: "any map with slice", path: "/s", params: []any{map[string]any{"id": []any{1, "2"}}}, want: "id=1&id=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRecordingServer(t, jsonHandler(http.StatusOK, `{}`))
			c, _ := newTestClient(t, srv.URL)

			rb := c.Get(tt.path)
			for _, p := range tt.params {
				rb = rb.Query(p)
			}
			_, err := rb.Send(context.Background())
			require.NoError(t, err)

			reqs := srv.captured()
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.want, reqs[0].Query)
		})
	}
}

func TestQueryUnsupportedType(t *testing.T) {
	c, _ := newTestClient(t, "https://api.example.com")
	_, err := c.Get("/s").Query(42).Send(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, SerializationError))

	_, err = c.Get("/s").Query(map[string]any{"nested": map[string]string{"a": "b"}}).Send(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, SerializationError))
}

func TestJSONBody(t *testing.T) {
	srv := newRecordingServer(t, jsonHandler(http.StatusCreated, `{"id":99,"status":"approved"}`))
	c, _ := newTestClient(t, srv.URL)

	payload := map[string]any{"transaction_amount": 100.5, "description": "ünïcode"}
	resp, err := c.Post("/v1/payments").JSON(payload).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(1), resp.Stats.CallCount)

	reqs := srv.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	expected, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Equal(t, expected, reqs[0].Body)

	var out struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, int64(99), out.ID)
	assert.Equal(t, "approved", out.Status)
}

func TestJSONEncodingFailure(t *testing.T) {
	srv := newRecordingServer(t, jsonHandler(http.StatusOK, `{}`))
	c, _ := newTestClient(t, srv.URL)

	_, err := c.Post("/x").JSON(map[string]any{"bad": make(chan int)}).Send(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, SerializationError))
	assert.Empty(t, srv.captured())
}

func TestResponseDecodeFailure(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte("not json")}
	var out map[string]any
	err := resp.Decode(&out)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, SerializationError))
}

func TestSendMapsAPIError(t *testing.T) {
	srv := newRecordingServer(t, jsonHandler(http.StatusNotFound,
		`{"message":"Payment not found","error":"not_found","status":404,"cause":[{"code":2000,"description":"Payment not found"}]}`))
	c, rec := newTestClient(t, srv.URL)

	resp, err := c.Get("/v1/payments/1").Send(context.Background())
	require.Error(t, err)
	assert.Nil(t, resp)

	var apiErr *APIErrorResponse
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, "Payment not found", apiErr.Message)
	assert.Equal(t, "not_found", apiErr.ErrorCode)
	require.Len(t, apiErr.Cause, 1)
	assert.Equal(t, "Payment not found", apiErr.Cause[0].Description)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "API Error (404): Payment not found", err.Error())

	assert.Len(t, srv.captured(), 1)
	assert.Empty(t, rec.recorded())
}

func TestSendAPIErrorWithoutStatus(t *testing.T) {
	srv := newRecordingServer(t, jsonHandler(http.StatusBadRequest, `{"message":"invalid token"}`))
	c, _ := newTestClient(t, srv.URL)

	_, err := c.Get("/x").Send(context.Background())
	assert.True(t, IsHTTPStatusError(err, http.StatusBadRequest))
}

func TestSendMalformedErrorBody(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "<html>upstream exploded</html>")
	})
	c, _ := newTestClient(t, srv.URL)

	_, err := c.Get("/x").Send(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, InternalError))
	assert.Contains(t, err.Error(), "<html>upstream exploded</html>")
	assert.Contains(t, err.Error(), "500")
	assert.Len(t, srv.captured(), 1, "5xx is not retried")
}

func TestSendInvalidURL(t *testing.T) {
	c, _ := newTestClient(t, "https://api.example.com")
	_, err := c.Get("http://[::1").Send(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, InternalError))
}
