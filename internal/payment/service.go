package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned when gateway credentials are absent. The
// check runs before any network I/O.
var ErrNotConfigured = errors.New("missing razorpay credentials on server")

// ErrNoSecret is returned when callback verification is attempted without
// a server-held secret.
var ErrNoSecret = errors.New("razorpay key secret is not configured")

// Service creates gateway order intents and verifies payment callbacks.
// The same key secret drives both operations, so they cannot diverge.
type Service struct {
	Gateway  Gateway
	Secret   string
	Currency string

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// CreateOrder registers a pending payment of the given amount (smallest
// currency unit) with the gateway and returns its order object.
func (s *Service) CreateOrder(ctx context.Context, amount int64) (Order, error) {
	if s == nil || s.Gateway == nil {
		return Order{}, errors.New("payment service not configured")
	}
	if s.Secret == "" {
		return Order{}, ErrNotConfigured
	}
	req := OrderRequest{
		Amount:   amount,
		Currency: s.Currency,
		Receipt:  s.receipt(),
	}
	order, err := s.Gateway.CreateOrder(ctx, req)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// VerifyCallback reports whether the callback's signature matches the
// recomputed HMAC. It is a pure function of the callback and the secret;
// the only error case is a missing secret.
func (s *Service) VerifyCallback(cb Callback) (bool, error) {
	if s == nil || s.Secret == "" {
		return false, ErrNoSecret
	}
	return VerifySignature(s.Secret, cb.OrderID, cb.PaymentID, cb.Signature), nil
}

// receipt builds the free-text label attached to a gateway order. It is a
// display/reconciliation aid, not a uniqueness key.
func (s *Service) receipt() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return fmt.Sprintf("receipt_%d", now().UnixMilli())
}
