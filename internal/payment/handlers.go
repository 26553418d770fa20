package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/snapcart/storefront-api/internal/common"
)

// Handler exposes the two gateway endpoints consumed by the checkout page.
// Their response shapes are fixed by the storefront contract and differ
// from the canonical error envelope used elsewhere.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Log      zerolog.Logger
}

type createOrderRequest struct {
	Amount int64 `json:"amount" validate:"required,min=1"`
}

// CreateOrder handles POST /payments/razorpay/order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "payment handler unavailable"})
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid body"})
		return
	}
	if err := h.validate(req); err != nil {
		common.JSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "amount must be a positive integer in the smallest currency unit"})
		return
	}
	order, err := h.Svc.CreateOrder(r.Context(), req.Amount)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			h.Log.Error().Msg("razorpay credentials missing")
		} else {
			h.Log.Error().Err(err).Int64("amount", req.Amount).Msg("create gateway order")
		}
		common.JSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

// Verify handles POST /payments/razorpay/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSON(w, http.StatusInternalServerError, map[string]any{"verified": false})
		return
	}
	var cb Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		h.Log.Error().Err(err).Msg("decode payment callback")
		common.JSON(w, http.StatusInternalServerError, map[string]any{"verified": false})
		return
	}
	if err := h.validate(cb); err != nil {
		// an incomplete callback can never carry a valid signature
		common.JSON(w, http.StatusBadRequest, map[string]any{"verified": false})
		return
	}
	ok, err := h.Svc.VerifyCallback(cb)
	if err != nil {
		h.Log.Error().Err(err).Msg("verify payment callback")
		common.JSON(w, http.StatusInternalServerError, map[string]any{"verified": false})
		return
	}
	if !ok {
		h.Log.Warn().Str("order_id", cb.OrderID).Str("payment_id", cb.PaymentID).Msg("payment signature mismatch")
		common.JSON(w, http.StatusBadRequest, map[string]any{"verified": false})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"verified": true})
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}
