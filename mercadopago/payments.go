package mercadopago

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"
)

const (
	pathPayments      = "/v1/payments"
	pathPaymentSearch = "/v1/payments/search"
)

// CreatePayment creates a payment. Pass WithIdempotencyKey to make the call
// safe to repeat.
func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest, opts ...RequestOption) (*PaymentResponse, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	return do[PaymentResponse](ctx, c.http.Post(pathPayments).JSON(req), opts)
}

// GetPayment fetches one payment by ID.
func (c *Client) GetPayment(ctx context.Context, id uint64, opts ...RequestOption) (*PaymentResponse, error) {
	return do[PaymentResponse](ctx, c.http.Get(paymentPath(id)), opts)
}

// GetPayments fetches several payments concurrently, at most fanOutLimit at a
// time. Results are in the order of ids. The first failure cancels the
// remaining requests and is returned.
func (c *Client) GetPayments(ctx context.Context, ids []uint64, opts ...RequestOption) ([]*PaymentResponse, error) {
	out := make([]*PaymentResponse, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			p, err := c.GetPayment(gctx, id, opts...)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchPayments lists the payments carrying externalReference.
func (c *Client) SearchPayments(ctx context.Context, externalReference string, opts ...RequestOption) (*SearchResponse[PaymentResponse], error) {
	rb := c.http.Get(pathPaymentSearch).Query([][2]string{{"external_reference", externalReference}})
	return do[SearchResponse[PaymentResponse]](ctx, rb, opts)
}

// SearchPaymentsWith searches with arbitrary filters: a PaymentSearchFilters,
// any `url`-tagged struct, url.Values, or a string-keyed map of scalar values
// such as map[string]any.
func (c *Client) SearchPaymentsWith(ctx context.Context, filters any, opts ...RequestOption) (*SearchResponse[PaymentResponse], error) {
	rb := c.http.Get(pathPaymentSearch)
	if filters != nil {
		rb = rb.Query(filters)
	}
	return do[SearchResponse[PaymentResponse]](ctx, rb, opts)
}

// CreateRefund refunds a payment fully, or partially when req.Amount is set.
// A nil req is a full refund.
func (c *Client) CreateRefund(ctx context.Context, paymentID uint64, req *RefundRequest, opts ...RequestOption) (*RefundResponse, error) {
	if req == nil {
		req = &RefundRequest{}
	}
	if err := c.validate(req); err != nil {
		return nil, err
	}
	rb := c.http.Post(paymentPath(paymentID) + "/refunds").JSON(req)
	return do[RefundResponse](ctx, rb, opts)
}

func paymentPath(id uint64) string {
	return pathPayments + "/" + strconv.FormatUint(id, 10)
}
