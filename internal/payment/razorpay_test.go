package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snapcart/storefront-api/internal/payment"
)

func TestRazorpayCreateOrder(t *testing.T) {
	var gotAuthUser, gotAuthPass, gotPath string
	var gotBody payment.OrderRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payment.Order{
			ID: "order_test1", Entity: "order", Amount: gotBody.Amount, AmountDue: gotBody.Amount,
			Currency: gotBody.Currency, Receipt: gotBody.Receipt, Status: "created", CreatedAt: 1700000000,
		})
	}))
	defer srv.Close()

	gw := payment.Razorpay{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL, Client: srv.Client()}
	order, err := gw.CreateOrder(context.Background(), payment.OrderRequest{Amount: 5000, Currency: "INR", Receipt: "receipt_1717243200000"})
	require.NoError(t, err)

	require.Equal(t, "/v1/orders", gotPath)
	require.Equal(t, "rzp_test_key", gotAuthUser)
	require.Equal(t, "secret", gotAuthPass)
	require.Equal(t, int64(5000), gotBody.Amount)
	require.Equal(t, "INR", gotBody.Currency)
	require.Equal(t, "receipt_1717243200000", gotBody.Receipt)

	require.Equal(t, "order_test1", order.ID)
	require.Equal(t, "created", order.Status)
}

func TestRazorpayCreateOrderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`))
	}))
	defer srv.Close()

	gw := payment.Razorpay{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL, Client: srv.Client()}
	_, err := gw.CreateOrder(context.Background(), payment.OrderRequest{Amount: 0, Currency: "INR", Receipt: "receipt_1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "The amount must be atleast INR 1.00")
}

func TestRazorpayCreateOrderMissingCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	gw := payment.Razorpay{BaseURL: srv.URL, Client: srv.Client()}
	_, err := gw.CreateOrder(context.Background(), payment.OrderRequest{Amount: 5000, Currency: "INR"})
	require.Error(t, err)
	require.False(t, called)
}
