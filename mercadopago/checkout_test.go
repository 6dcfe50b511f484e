package mercadopago

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/mercadopago-go/httpclient"
)

func TestCreatePreference(t *testing.T) {
	stub := newAPIStub(t, map[string]http.HandlerFunc{
		"POST /checkout/preferences": reply(http.StatusCreated, `{
			"id": "123-abc",
			"items": [{"title": "Shirt", "quantity": 2, "unit_price": 50, "currency_id": "ARS"}],
			"init_point": "https://www.mercadopago.com/checkout?pref_id=123-abc",
			"sandbox_init_point": "https://sandbox.mercadopago.com/checkout?pref_id=123-abc"
		}`),
	})
	c := newTestClient(t, stub.URL)

	got, err := c.CreatePreference(context.Background(), &PreferenceRequest{
		Items:    []PreferenceItem{{Title: "Shirt", Quantity: 2, UnitPrice: 50, CurrencyID: "ARS"}},
		Payer:    &PreferencePayer{Email: "buyer@example.com", Phone: &Phone{AreaCode: "11", Number: "5555"}},
		BackURLs: &BackURLs{Success: "https://shop.example.com/ok"},
	})
	require.NoError(t, err)
	assert.Equal(t, "123-abc", got.ID)
	assert.Contains(t, got.InitPoint, "pref_id=123-abc")
	require.Len(t, got.Items, 1)
	assert.Equal(t, int32(2), got.Items[0].Quantity)

	body := stub.last(t).Body
	require.Contains(t, body, "back_urls")
	assert.Equal(t, "https://shop.example.com/ok", body["back_urls"].(map[string]any)["success"])
}

func TestCreatePreferenceValidation(t *testing.T) {
	c := newTestClient(t, "https://api.mercadopago.com")

	tests := []struct {
		name  string
		req   *PreferenceRequest
		field string
	}{
		{name: "no items", req: &PreferenceRequest{}, field: "items"},
		{
			name:  "zero quantity",
			req:   &PreferenceRequest{Items: []PreferenceItem{{Title: "x", Quantity: 0, UnitPrice: 1}}},
			field: "items[0].quantity",
		},
		{
			name:  "lowercase currency",
			req:   &PreferenceRequest{Items: []PreferenceItem{{Title: "x", Quantity: 1, UnitPrice: 1, CurrencyID: "ars"}}},
			field: "items[0].currency_id",
		},
		{
			name: "bad auto return",
			req: &PreferenceRequest{
				Items:      []PreferenceItem{{Title: "x", Quantity: 1, UnitPrice: 1}},
				AutoReturn: "sometimes",
			},
			field: "auto_return",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreatePreference(context.Background(), tt.req)
			require.Error(t, err)

			var fielded interface{ Field() string }
			require.ErrorAs(t, err, &fielded)
			assert.Equal(t, tt.field, fielded.Field())
		})
	}
}

func TestCreateQROrder(t *testing.T) {
	stub := newAPIStub(t, map[string]http.HandlerFunc{
		"POST /instore/orders/qr/seller/collectors/42/pos/POS001/qrs": reply(http.StatusCreated,
			`{"qr_data":"00020101021243650016COM.MERCADOLIBRE","in_store_order_id":"d4e8ca59"}`),
	})
	c := newTestClient(t, stub.URL)

	got, err := c.CreateQROrder(context.Background(), 42, "POS001", &QROrderRequest{
		ExternalReference: "order-1",
		Title:             "Coffee",
		TotalAmount:       20,
		Items: []QROrderItem{{
			Title: "Espresso", UnitPrice: 10, Quantity: 2, UnitMeasure: "unit", TotalAmount: 20,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "d4e8ca59", got.InStoreOrderID)
	assert.NotEmpty(t, got.QRData)
	assert.Equal(t, 20.0, stub.last(t).Body["total_amount"])
}

func TestCreateQROrderEscapesPOSID(t *testing.T) {
	stub := newAPIStub(t, map[string]http.HandlerFunc{
		"POST /instore/orders/qr/seller/collectors/1/pos/a%2Fb/qrs": reply(http.StatusCreated, `{"qr_data":"x","in_store_order_id":"y"}`),
	})
	c := newTestClient(t, stub.URL)

	req := &QROrderRequest{
		TotalAmount: 1,
		Items:       []QROrderItem{{Title: "t", UnitPrice: 1, Quantity: 1, UnitMeasure: "unit", TotalAmount: 1}},
	}
	_, err := c.CreateQROrder(context.Background(), 1, "a/b", req)
	require.NoError(t, err)

	_, err = c.CreateQROrder(context.Background(), 1, "", req)
	assert.True(t, httpclient.IsErrorType(err, httpclient.ValidationError))
}

func TestCreateStore(t *testing.T) {
	stub := newAPIStub(t, map[string]http.HandlerFunc{
		"POST /users/42/stores": reply(http.StatusCreated, `{
			"id": "1234567",
			"name": "Main store",
			"external_id": "STORE001",
			"location": {"address_line": "Av. Siempre Viva 123", "latitude": -34.6, "longitude": -58.4}
		}`),
	})
	c := newTestClient(t, stub.URL)

	got, err := c.CreateStore(context.Background(), 42, &StoreRequest{
		Name:       "Main store",
		ExternalID: "STORE001",
		Location: StoreLocation{
			StreetNumber: "123", StreetName: "Av. Siempre Viva",
			CityName: "Palermo", StateName: "Capital Federal",
			Latitude: -34.6, Longitude: -58.4,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1234567", got.ID)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "STORE001", *got.ExternalID)
	assert.JSONEq(t, `{"address_line":"Av. Siempre Viva 123","latitude":-34.6,"longitude":-58.4}`, string(got.Location))
}

func TestCreateStoreValidation(t *testing.T) {
	c := newTestClient(t, "https://api.mercadopago.com")

	_, err := c.CreateStore(context.Background(), 42, &StoreRequest{
		Name:       "s",
		ExternalID: "e",
		Location: StoreLocation{
			StreetNumber: "1", StreetName: "n", CityName: "c", StateName: "s",
			Latitude: 120,
		},
	})
	var fielded interface{ Field() string }
	require.ErrorAs(t, err, &fielded)
	assert.Equal(t, "location.latitude", fielded.Field())
}

func TestSearchStores(t *testing.T) {
	stub := newAPIStub(t, map[string]http.HandlerFunc{
		"GET /users/42/stores/search": reply(http.StatusOK, `{
			"paging": {"total": 2, "offset": 0, "limit": 50},
			"results": [{"id": "1", "name": "A"}, {"id": "2", "name": "B"}]
		}`),
	})
	c := newTestClient(t, stub.URL)

	got, err := c.SearchStores(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Paging.Total)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "B", got.Results[1].Name)
	assert.Nil(t, got.Results[0].ExternalID)
}

func TestCreatePOS(t *testing.T) {
	stub := newAPIStub(t, map[string]http.HandlerFunc{
		"POST /pos": reply(http.StatusCreated, `{"id":2711382,"name":"Caja 1","external_id":"POS001","store_id":"1234567"}`),
	})
	c := newTestClient(t, stub.URL)

	got, err := c.CreatePOS(context.Background(), &POSRequest{
		Name: "Caja 1", FixedAmount: true, StoreID: "1234567", ExternalID: "POS001",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2711382), got.ID)
	assert.Equal(t, "1234567", got.StoreID)
	assert.Equal(t, true, stub.last(t).Body["fixed_amount"])

	_, err = c.CreatePOS(context.Background(), &POSRequest{Name: "Caja 2"})
	assert.True(t, httpclient.IsErrorType(err, httpclient.ValidationError))
}

func TestListPOS(t *testing.T) {
	stub := newAPIStub(t, map[string]http.HandlerFunc{
		"GET /pos": reply(http.StatusOK, `{
			"paging": {"total": 1, "offset": 0, "limit": 50},
			"results": [{"id": 1, "name": "Caja 1", "store_id": "1234567"}]
		}`),
	})
	c := newTestClient(t, stub.URL)

	got, err := c.ListPOS(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "Caja 1", got.Results[0].Name)
}
