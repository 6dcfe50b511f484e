package mercadopago

import (
	"context"
	"fmt"
	"net/url"
)

// CreatePreference creates a Checkout Pro preference and returns its
// checkout links.
func (c *Client) CreatePreference(ctx context.Context, req *PreferenceRequest, opts ...RequestOption) (*PreferenceResponse, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	return do[PreferenceResponse](ctx, c.http.Post("/checkout/preferences").JSON(req), opts)
}

// CreateQROrder creates a dynamic QR order on the point of sale posID of the
// collector userID.
func (c *Client) CreateQROrder(ctx context.Context, userID uint64, posID string, req *QROrderRequest, opts ...RequestOption) (*QROrderResponse, error) {
	if posID == "" {
		return nil, validationFailure("pos_id is required", "pos_id")
	}
	if err := c.validate(req); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/instore/orders/qr/seller/collectors/%d/pos/%s/qrs", userID, url.PathEscape(posID))
	return do[QROrderResponse](ctx, c.http.Post(path).JSON(req), opts)
}

// CreateStore registers a physical store for userID.
func (c *Client) CreateStore(ctx context.Context, userID uint64, req *StoreRequest, opts ...RequestOption) (*StoreResponse, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	return do[StoreResponse](ctx, c.http.Post(fmt.Sprintf("/users/%d/stores", userID)).JSON(req), opts)
}

// SearchStores lists the stores of userID.
func (c *Client) SearchStores(ctx context.Context, userID uint64, opts ...RequestOption) (*SearchResponse[StoreResponse], error) {
	return do[SearchResponse[StoreResponse]](ctx, c.http.Get(fmt.Sprintf("/users/%d/stores/search", userID)), opts)
}

// CreatePOS creates a point of sale inside a store.
func (c *Client) CreatePOS(ctx context.Context, req *POSRequest, opts ...RequestOption) (*POSResponse, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	return do[POSResponse](ctx, c.http.Post("/pos").JSON(req), opts)
}

// ListPOS lists every point of sale of the account.
func (c *Client) ListPOS(ctx context.Context, opts ...RequestOption) (*SearchResponse[POSResponse], error) {
	return do[SearchResponse[POSResponse]](ctx, c.http.Get("/pos"), opts)
}
