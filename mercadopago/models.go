package mercadopago

import "encoding/json"

// Identification is a payer document such as a CPF, CUIT or DNI.
type Identification struct {
	Type   string `json:"type" validate:"required"`
	Number string `json:"number" validate:"required"`
}

// Payer identifies who pays for a payment.
type Payer struct {
	Email          string          `json:"email" validate:"required,email"`
	Identification *Identification `json:"identification,omitempty"`
}

// PaymentRequest is the body of POST /v1/payments.
type PaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount" validate:"gt=0"`
	PaymentMethodID   string  `json:"payment_method_id" validate:"required"`
	Description       string  `json:"description,omitempty"`
	Payer             Payer   `json:"payer"`
	// Token is the card token produced by the browser SDK.
	Token             string `json:"token,omitempty"`
	Installments      uint32 `json:"installments,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`
	NotificationURL   string `json:"notification_url,omitempty" validate:"omitempty,url"`
}

// PayerResponse is the payer as reported back by the API.
type PayerResponse struct {
	ID             string          `json:"id,omitempty"`
	Email          string          `json:"email,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
	Type           string          `json:"type,omitempty"`
}

// FeeDetail is one fee charged on a payment.
type FeeDetail struct {
	Type     string  `json:"type,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	FeePayer string  `json:"fee_payer,omitempty"`
}

// PaymentResponse describes a payment. Optional fields the API omits decode
// as nil.
type PaymentResponse struct {
	ID                uint64         `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      *string        `json:"status_detail,omitempty"`
	TransactionAmount float64        `json:"transaction_amount"`
	DateCreated       *string        `json:"date_created,omitempty"`
	ExternalReference *string        `json:"external_reference,omitempty"`
	PaymentMethodID   *string        `json:"payment_method_id,omitempty"`
	PaymentTypeID     *string        `json:"payment_type_id,omitempty"`
	CurrencyID        *string        `json:"currency_id,omitempty"`
	Description       *string        `json:"description,omitempty"`
	Installments      *uint32        `json:"installments,omitempty"`
	NetReceivedAmount *float64       `json:"net_received_amount,omitempty"`
	Captured          *bool          `json:"captured,omitempty"`
	DateApproved      *string        `json:"date_approved,omitempty"`
	DateLastUpdated   *string        `json:"date_last_updated,omitempty"`
	LiveMode          *bool          `json:"live_mode,omitempty"`
	Payer             *PayerResponse `json:"payer,omitempty"`
	FeeDetails        []FeeDetail    `json:"fee_details,omitempty"`
}

// PaymentSearchFilters are the common filters of GET /v1/payments/search.
// Any other struct tagged with `url` works with SearchPaymentsWith too.
type PaymentSearchFilters struct {
	ExternalReference string `url:"external_reference,omitempty"`
	Status            string `url:"status,omitempty"`
	Sort              string `url:"sort,omitempty"`
	Criteria          string `url:"criteria,omitempty"`
	Range             string `url:"range,omitempty"`
	BeginDate         string `url:"begin_date,omitempty"`
	EndDate           string `url:"end_date,omitempty"`
	Offset            int    `url:"offset,omitempty"`
	Limit             int    `url:"limit,omitempty"`
}

// RefundRequest is the body of POST /v1/payments/{id}/refunds. A nil Amount
// refunds the whole payment.
type RefundRequest struct {
	Amount *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

type RefundResponse struct {
	ID          uint64  `json:"id"`
	PaymentID   uint64  `json:"payment_id"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	DateCreated *string `json:"date_created,omitempty"`
}

// PreferenceItem is one line item of a Checkout Pro preference.
type PreferenceItem struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description,omitempty"`
	PictureURL  string  `json:"picture_url,omitempty" validate:"omitempty,url"`
	CategoryID  string  `json:"category_id,omitempty"`
	Quantity    int32   `json:"quantity" validate:"gt=0"`
	CurrencyID  string  `json:"currency_id,omitempty" validate:"omitempty,currency"`
	UnitPrice   float64 `json:"unit_price" validate:"gt=0"`
}

type Phone struct {
	AreaCode string `json:"area_code,omitempty"`
	Number   string `json:"number,omitempty"`
}

// PreferenceIdentification is the optional document of a preference payer.
type PreferenceIdentification struct {
	Type   string `json:"type,omitempty"`
	Number string `json:"number,omitempty"`
}

type PreferencePayer struct {
	Name           string                    `json:"name,omitempty"`
	Surname        string                    `json:"surname,omitempty"`
	Email          string                    `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *Phone                    `json:"phone,omitempty"`
	Identification *PreferenceIdentification `json:"identification,omitempty"`
}

// BackURLs are the pages the buyer returns to after checkout.
type BackURLs struct {
	Success string `json:"success,omitempty" validate:"omitempty,url"`
	Pending string `json:"pending,omitempty" validate:"omitempty,url"`
	Failure string `json:"failure,omitempty" validate:"omitempty,url"`
}

// PreferenceRequest is the body of POST /checkout/preferences.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items" validate:"min=1,dive"`
	Payer             *PreferencePayer `json:"payer,omitempty"`
	BackURLs          *BackURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty" validate:"omitempty,oneof=approved all"`
	NotificationURL   string           `json:"notification_url,omitempty" validate:"omitempty,url"`
	ExternalReference string           `json:"external_reference,omitempty"`
	ExpirationDateTo  string           `json:"expiration_date_to,omitempty"`
}

// PreferenceResponse carries the checkout links of a created preference.
type PreferenceResponse struct {
	ID               string           `json:"id"`
	Items            []PreferenceItem `json:"items"`
	InitPoint        string           `json:"init_point"`
	SandboxInitPoint string           `json:"sandbox_init_point"`
	DateCreated      *string          `json:"date_created,omitempty"`
}

type QROrderItem struct {
	SKUNumber   string  `json:"sku_number,omitempty"`
	Category    string  `json:"category,omitempty"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description,omitempty"`
	UnitPrice   float64 `json:"unit_price" validate:"gt=0"`
	Quantity    int32   `json:"quantity" validate:"gt=0"`
	UnitMeasure string  `json:"unit_measure" validate:"required"`
	TotalAmount float64 `json:"total_amount" validate:"gt=0"`
}

// CashOut is the amount of cash handed to the buyer with a QR order.
type CashOut struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

// QROrderRequest creates a dynamic QR order on a point of sale.
type QROrderRequest struct {
	ExternalReference string        `json:"external_reference,omitempty"`
	Title             string        `json:"title,omitempty"`
	Description       string        `json:"description,omitempty"`
	NotificationURL   string        `json:"notification_url,omitempty" validate:"omitempty,url"`
	TotalAmount       float64       `json:"total_amount" validate:"gt=0"`
	Items             []QROrderItem `json:"items" validate:"min=1,dive"`
	CashOut           *CashOut      `json:"cash_out,omitempty"`
}

// QROrderResponse holds the EMVCo payload to render as a QR code.
type QROrderResponse struct {
	QRData         string `json:"qr_data"`
	InStoreOrderID string `json:"in_store_order_id"`
}

type StoreLocation struct {
	StreetNumber string  `json:"street_number" validate:"required"`
	StreetName   string  `json:"street_name" validate:"required"`
	CityName     string  `json:"city_name" validate:"required"`
	StateName    string  `json:"state_name" validate:"required"`
	Latitude     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Reference    string  `json:"reference,omitempty"`
}

// StoreRequest is the body of POST /users/{user_id}/stores.
type StoreRequest struct {
	Name       string        `json:"name" validate:"required"`
	ExternalID string        `json:"external_id" validate:"required"`
	Location   StoreLocation `json:"location"`
}

// StoreResponse keeps the location raw since its shape differs between
// create and search responses.
type StoreResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ExternalID   *string         `json:"external_id,omitempty"`
	DateCreation *string         `json:"date_creation,omitempty"`
	Location     json.RawMessage `json:"location,omitempty"`
}

// POSRequest is the body of POST /pos.
type POSRequest struct {
	Name        string `json:"name" validate:"required"`
	FixedAmount bool   `json:"fixed_amount"`
	StoreID     string `json:"store_id" validate:"required"`
	ExternalID  string `json:"external_id" validate:"required"`
}

type POSResponse struct {
	ID              uint64  `json:"id"`
	Name            string  `json:"name"`
	ExternalID      *string `json:"external_id,omitempty"`
	StoreID         string  `json:"store_id"`
	DateCreated     *string `json:"date_created,omitempty"`
	DateLastUpdated *string `json:"date_last_updated,omitempty"`
}

// Paging describes the window of a search result.
type Paging struct {
	Total  int64 `json:"total"`
	Offset int64 `json:"offset"`
	Limit  int64 `json:"limit"`
}

// SearchResponse is the envelope of every search endpoint.
type SearchResponse[T any] struct {
	Paging  Paging `json:"paging"`
	Results []T    `json:"results"`
}
