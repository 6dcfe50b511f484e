package notification

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/mercadopago-go/logger"
	"github.com/gaborage/mercadopago-go/trace"
)

// DefaultMaxBodyBytes caps the webhook body read by Handler.
const DefaultMaxBodyBytes = 64 << 10

// Func processes one authenticated notification. A returned error answers
// 500 so Mercado Pago redelivers.
type Func func(ctx context.Context, n *Notification) error

// ErrorResponse is the body of every non-200 webhook response.
type ErrorResponse struct {
	Error *ErrorDetail   `json:"error"`
	Meta  map[string]any `json:"meta"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type handlerOptions struct {
	logger       logger.Logger
	maxBodyBytes int64
}

// HandlerOption configures Handler.
type HandlerOption func(*handlerOptions)

// WithLogger logs rejected and failed deliveries.
func WithLogger(l logger.Logger) HandlerOption {
	return func(o *handlerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(o *handlerOptions) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// Handler returns an echo handler for the webhook endpoint. With a non-empty
// secret every delivery must carry a valid x-signature; the signed data ID is
// taken from the data.id query parameter, or from the body when absent.
//
// Responses: 200 when fn succeeds, 400 for malformed bodies or signature
// headers, 401 for signature mismatches and 500 when fn fails.
func Handler(secret string, fn Func, opts ...HandlerOption) echo.HandlerFunc {
	o := &handlerOptions{logger: logger.NewNop(), maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(o)
	}

	return func(c echo.Context) error {
		req := c.Request()
		requestID := req.Header.Get(HeaderRequestID)

		body, err := io.ReadAll(io.LimitReader(req.Body, o.maxBodyBytes+1))
		if err != nil {
			return reject(c, o, http.StatusBadRequest, "unreadable_body", "failed to read body", err)
		}
		if int64(len(body)) > o.maxBodyBytes {
			return reject(c, o, http.StatusRequestEntityTooLarge, "body_too_large", "notification body too large", nil)
		}

		n, err := Parse(body)
		if err != nil {
			return reject(c, o, http.StatusBadRequest, "malformed_notification", "malformed notification body", err)
		}

		if secret != "" {
			dataID := c.QueryParam("data.id")
			if dataID == "" {
				dataID = string(n.Data.ID)
			}
			switch err := VerifySignature(secret, req.Header.Get(HeaderSignature), requestID, dataID); {
			case errors.Is(err, ErrMalformedSignature):
				return reject(c, o, http.StatusBadRequest, "malformed_signature", "malformed x-signature header", err)
			case err != nil:
				return reject(c, o, http.StatusUnauthorized, "invalid_signature", "signature verification failed", err)
			}
		}

		ctx := req.Context()
		if requestID != "" {
			ctx = trace.WithTraceID(ctx, requestID)
		}
		if err := fn(ctx, n); err != nil {
			o.logger.Error().
				Err(err).
				Str("request_id", requestID).
				Str("type", n.Type).
				Str("action", n.Action).
				Str("data_id", string(n.Data.ID)).
				Msg("Notification processing failed")
			return c.JSON(http.StatusInternalServerError, errorResponse(c, "processing_failed", "notification processing failed"))
		}

		o.logger.Debug().
			Str("request_id", requestID).
			Str("type", n.Type).
			Str("data_id", string(n.Data.ID)).
			Msg("Notification processed")
		return c.NoContent(http.StatusOK)
	}
}

func reject(c echo.Context, o *handlerOptions, status int, code, message string, err error) error {
	o.logger.Warn().
		Err(err).
		Int("status", status).
		Str("code", code).
		Str("request_id", c.Request().Header.Get(HeaderRequestID)).
		Msg("Notification rejected")
	return c.JSON(status, errorResponse(c, code, message))
}

func errorResponse(c echo.Context, code, message string) ErrorResponse {
	traceID := c.Request().Header.Get(HeaderRequestID)
	if traceID == "" {
		traceID = trace.EnsureTraceID(c.Request().Context())
	}
	return ErrorResponse{
		Error: &ErrorDetail{Code: code, Message: message},
		Meta: map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"traceId":   traceID,
		},
	}
}
