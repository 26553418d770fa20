package payment_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/snapcart/storefront-api/internal/payment"
)

type stubGateway struct {
	calls int
	last  payment.OrderRequest
	order payment.Order
	err   error
}

func (g *stubGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.Order, error) {
	g.calls++
	g.last = req
	if g.err != nil {
		return payment.Order{}, g.err
	}
	return g.order, nil
}

func newHandler(svc *payment.Service) *payment.Handler {
	return &payment.Handler{Svc: svc, Validate: validator.New(), Log: zerolog.Nop()}
}

func TestCreateOrderSuccess(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gw := &stubGateway{order: payment.Order{
		ID: "order_MnrlGkZauFiQzW", Entity: "order", Amount: 5000, AmountDue: 5000,
		Currency: "INR", Receipt: fmt.Sprintf("receipt_%d", fixed.UnixMilli()), Status: "created",
	}}
	svc := &payment.Service{Gateway: gw, Secret: "testsecret", Currency: "INR", Now: func() time.Time { return fixed }}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/order", strings.NewReader(`{"amount":5000}`))
	rec := httptest.NewRecorder()
	newHandler(svc).CreateOrder(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool          `json:"success"`
		Order   payment.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "order_MnrlGkZauFiQzW", resp.Order.ID)

	require.Equal(t, 1, gw.calls)
	require.Equal(t, int64(5000), gw.last.Amount)
	require.Equal(t, "INR", gw.last.Currency)
	require.Equal(t, fmt.Sprintf("receipt_%d", fixed.UnixMilli()), gw.last.Receipt)
}

func TestCreateOrderMissingCredentials(t *testing.T) {
	gw := &stubGateway{}
	svc := &payment.Service{Gateway: gw, Secret: "", Currency: "INR"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/order", strings.NewReader(`{"amount":5000}`))
	rec := httptest.NewRecorder()
	newHandler(svc).CreateOrder(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "razorpay credentials")
	// no network call may happen before the configuration check
	require.Equal(t, 0, gw.calls)
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	gw := &stubGateway{err: fmt.Errorf("razorpay order create: amount exceeds maximum amount allowed")}
	svc := &payment.Service{Gateway: gw, Secret: "testsecret", Currency: "INR"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/order", strings.NewReader(`{"amount":5000}`))
	rec := httptest.NewRecorder()
	newHandler(svc).CreateOrder(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "amount exceeds maximum amount allowed")
}

func TestCreateOrderRejectsBadPayloads(t *testing.T) {
	svc := &payment.Service{Gateway: &stubGateway{}, Secret: "testsecret", Currency: "INR"}
	h := newHandler(svc)

	for _, body := range []string{`{"amount":0}`, `{"amount":-1}`, `{}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/order", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.CreateOrder(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func verifyBody(orderID, paymentID, signature string) string {
	b, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  signature,
	})
	return string(b)
}

func TestVerifyAccepted(t *testing.T) {
	svc := &payment.Service{Gateway: &stubGateway{}, Secret: "testsecret", Currency: "INR"}
	sig := payment.Signature("testsecret", "order_ABC123", "pay_XYZ789")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/verify", strings.NewReader(verifyBody("order_ABC123", "pay_XYZ789", sig)))
	rec := httptest.NewRecorder()
	newHandler(svc).Verify(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"verified":true}`, rec.Body.String())
}

func TestVerifyMismatchIsClientError(t *testing.T) {
	svc := &payment.Service{Gateway: &stubGateway{}, Secret: "testsecret", Currency: "INR"}
	wrong := "89f8e3b6f201ec69bddc5a279b9f30c4b325e663b4b48aa94eb7ad7a834c1158"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/verify", strings.NewReader(verifyBody("order_ABC123", "pay_XYZ789", wrong)))
	rec := httptest.NewRecorder()
	newHandler(svc).Verify(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"verified":false}`, rec.Body.String())
}

func TestVerifyMalformedPayloadIsServerError(t *testing.T) {
	svc := &payment.Service{Gateway: &stubGateway{}, Secret: "testsecret", Currency: "INR"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/verify", strings.NewReader(`{"razorpay_order_id":`))
	rec := httptest.NewRecorder()
	newHandler(svc).Verify(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"verified":false}`, rec.Body.String())
}

func TestVerifyMissingSecretIsServerError(t *testing.T) {
	svc := &payment.Service{Gateway: &stubGateway{}, Secret: "", Currency: "INR"}
	sig := payment.Signature("testsecret", "order_ABC123", "pay_XYZ789")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/verify", strings.NewReader(verifyBody("order_ABC123", "pay_XYZ789", sig)))
	rec := httptest.NewRecorder()
	newHandler(svc).Verify(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"verified":false}`, rec.Body.String())
}

func TestVerifyIncompleteCallback(t *testing.T) {
	svc := &payment.Service{Gateway: &stubGateway{}, Secret: "testsecret", Currency: "INR"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/verify", strings.NewReader(`{"razorpay_order_id":"order_ABC123"}`))
	rec := httptest.NewRecorder()
	newHandler(svc).Verify(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"verified":false}`, rec.Body.String())
}
