// Package notification decodes and authenticates Mercado Pago webhook
// deliveries.
package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Topics carried in Notification.Type.
const (
	TypePayment           = "payment"
	TypeMerchantOrder     = "topic_merchant_order_wh"
	TypePointIntegration  = "point_integration_wh"
	TypeSubscription      = "subscription_preapproval"
	TypeChargebacks       = "topic_chargebacks_wh"
	TypeClaims            = "topic_claims_integration_wh"
	TypeStoreOrders       = "stores_orders"
	TypeDeliveryCancelled = "delivery_cancellation"
)

// ID is an identifier the API emits either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Uint64 parses the identifier as the numeric ID used by the payments API.
func (id ID) Uint64() (uint64, error) {
	return strconv.ParseUint(string(id), 10, 64)
}

// Data points at the resource the notification is about.
type Data struct {
	ID ID `json:"id"`
}

// Notification is the body of a webhook delivery.
type Notification struct {
	ID          ID     `json:"id"`
	LiveMode    bool   `json:"live_mode"`
	Type        string `json:"type"`
	DateCreated string `json:"date_created"`
	UserID      ID     `json:"user_id"`
	APIVersion  string `json:"api_version"`
	Action      string `json:"action"`
	Data        Data   `json:"data"`
}

// ErrMalformedNotification is returned by Parse for bodies that are not a
// notification document.
var ErrMalformedNotification = errors.New("malformed notification")

// Parse decodes a webhook body.
func Parse(body []byte) (*Notification, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedNotification)
	}
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}
	return &n, nil
}
