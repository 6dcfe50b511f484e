package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
)

// ErrorType categorizes client errors.
type ErrorType string

const (
	// APIError is a non-2xx answer from Mercado Pago with a parsable error body,
	// or the synthesized error returned once 429 retries are exhausted.
	APIError ErrorType = "api"
	// NetworkError is a transport failure: DNS, TLS, timeouts, context cancellation.
	NetworkError ErrorType = "network"
	// SerializationError is a JSON encode or decode failure.
	SerializationError ErrorType = "serialization"
	// InternalError is a client-side precondition failure.
	InternalError ErrorType = "internal"
	// ValidationError is a request model rejected before anything was sent.
	ValidationError ErrorType = "validation"
)

// Sentinel errors matched by errors.Is against API errors.
var (
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnauthorized = errors.New("invalid or expired access token")
	ErrNotFound     = errors.New("resource not found")
)

const (
	tooManyRetriesMessage = "Too many retries"
	tooManyRetriesCode    = "too_many_requests"
)

// ClientError is implemented by every error the client returns.
type ClientError interface {
	error
	Type() ErrorType
}

// Cause is one entry of the "cause" list in a Mercado Pago error body.
// Code is a number or a string depending on the endpoint.
type Cause struct {
	Code        any    `json:"code"`
	Description string `json:"description"`
	Data        any    `json:"data,omitempty"`
}

// APIErrorResponse is the error body Mercado Pago returns on failures.
type APIErrorResponse struct {
	Message   string  `json:"message"`
	ErrorCode string  `json:"error"`
	Status    int     `json:"status"`
	Cause     []Cause `json:"cause,omitempty"`
}

func (e *APIErrorResponse) Error() string {
	return fmt.Sprintf("API Error (%d): %s", e.Status, e.Message)
}

// Type implements ClientError.
func (e *APIErrorResponse) Type() ErrorType { return APIError }

// StatusCode returns the status carried by the error body.
func (e *APIErrorResponse) StatusCode() int { return e.Status }

// Is matches ErrRateLimited, ErrUnauthorized and ErrNotFound by status.
func (e *APIErrorResponse) Is(target error) bool {
	switch e.Status {
	case nethttp.StatusTooManyRequests:
		return target == ErrRateLimited
	case nethttp.StatusUnauthorized:
		return target == ErrUnauthorized
	case nethttp.StatusNotFound:
		return target == ErrNotFound
	}
	return false
}

// NewAPIError creates an API error. Callers outside this package mostly
// need it to fake Mercado Pago failures in tests.
func NewAPIError(status int, message, code string, causes ...Cause) *APIErrorResponse {
	return &APIErrorResponse{Message: message, ErrorCode: code, Status: status, Cause: causes}
}

func newTooManyRetriesError() *APIErrorResponse {
	return NewAPIError(nethttp.StatusTooManyRequests, tooManyRetriesMessage, tooManyRetriesCode)
}

// apiErrorWire requires "message" so arbitrary JSON objects are not taken
// for API errors.
type apiErrorWire struct {
	Message *string `json:"message"`
	Error   string  `json:"error"`
	Status  *int    `json:"status"`
	Cause   []Cause `json:"cause"`
}

// parseAPIError decodes an error body. A missing status defaults to
// httpStatus rather than 0, so callers always see the status that was
// actually returned.
func parseAPIError(body []byte, httpStatus int) (*APIErrorResponse, bool) {
	var wire apiErrorWire
	if err := json.Unmarshal(body, &wire); err != nil || wire.Message == nil {
		return nil, false
	}
	status := httpStatus
	if wire.Status != nil {
		status = *wire.Status
	}
	return &APIErrorResponse{Message: *wire.Message, ErrorCode: wire.Error, Status: status, Cause: wire.Cause}, true
}

// networkError represents transport failures
type networkError struct {
	message string
	err     error
}

func (e *networkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.err)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType { return NetworkError }
func (e *networkError) Unwrap() error   { return e.err }

// NewNetworkError creates a new network error
func NewNetworkError(message string, err error) ClientError {
	return &networkError{message: message, err: err}
}

// serializationError represents JSON encode/decode failures
type serializationError struct {
	message string
	err     error
}

func (e *serializationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("serialization error: %s: %v", e.message, e.err)
	}
	return fmt.Sprintf("serialization error: %s", e.message)
}

func (e *serializationError) Type() ErrorType { return SerializationError }
func (e *serializationError) Unwrap() error   { return e.err }

// NewSerializationError creates a new serialization error
func NewSerializationError(message string, err error) ClientError {
	return &serializationError{message: message, err: err}
}

// internalError represents client-side precondition failures
type internalError struct {
	message string
	err     error
}

func (e *internalError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("internal error: %s: %v", e.message, e.err)
	}
	return fmt.Sprintf("internal error: %s", e.message)
}

func (e *internalError) Type() ErrorType { return InternalError }
func (e *internalError) Unwrap() error   { return e.err }

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) ClientError {
	return &internalError{message: message, err: err}
}

// newUnexpectedResponseError keeps the raw body of an error response that is
// not a Mercado Pago error document.
func newUnexpectedResponseError(status int, body []byte) ClientError {
	return &internalError{message: fmt.Sprintf("HTTP %d: %s", status, body)}
}

// validationError represents a request rejected before sending
type validationError struct {
	message string
	field   string
	err     error
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType { return ValidationError }
func (e *validationError) Unwrap() error   { return e.err }

// Field returns the json name of the rejected field, if known.
func (e *validationError) Field() string { return e.field }

// NewValidationError creates a new validation error. cause may be nil.
func NewValidationError(message, field string, cause error) ClientError {
	return &validationError{message: message, field: field, err: cause}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError reports whether err is an API error with the given status.
func IsHTTPStatusError(err error, statusCode int) bool {
	var apiErr *APIErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.Status == statusCode
	}
	return false
}

// IsSuccessStatus reports whether code is in the 2xx range.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
