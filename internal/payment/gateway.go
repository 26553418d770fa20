package payment

import "context"

// OrderRequest is the payload sent to the gateway when registering a
// pending payment. Amount is in the currency's smallest unit (paise).
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Order is the gateway's record of an intended payment. It is owned by the
// gateway and relayed to the client verbatim.
type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

// Callback is the triple returned by the gateway's client-side widget once
// the shopper completes a payment.
type Callback struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Gateway abstracts the upstream payment provider's order registration.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
}
