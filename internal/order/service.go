package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/snapcart/storefront-api/internal/common"
	"github.com/snapcart/storefront-api/internal/events"
)

// StatusPlaced is the only order status this slice assigns. Orders are
// persisted after payment is settled (COD selection or a verified online
// payment), so there is no pending-payment state here.
const StatusPlaced = "PLACED"

// Item is one purchased product line.
type Item struct {
	ProductID string `json:"product" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Unit      string `json:"unit"`
	Price     int64  `json:"price" validate:"min=0"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Image     string `json:"image"`
}

// Address is the delivery address captured by the map picker on checkout.
type Address struct {
	FullName    string  `json:"fullName" validate:"required"`
	Phone       string  `json:"phone" validate:"required"`
	FullAddress string  `json:"fullAddress" validate:"required"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Pincode     string  `json:"pincode"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// PaymentInfo links an online order to the gateway's order and payment ids.
type PaymentInfo struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
}

// Input is the order-placement payload sent by the checkout page. Amounts
// are in the currency's smallest unit.
type Input struct {
	UserID        string       `json:"userId" validate:"required"`
	Email         string       `json:"email" validate:"omitempty,email"`
	Items         []Item       `json:"items" validate:"required,min=1,dive"`
	TotalAmount   int64        `json:"totalAmount" validate:"required,min=1"`
	PaymentMethod string       `json:"paymentMethod" validate:"required,oneof=cod online"`
	Address       Address      `json:"address"`
	PaymentInfo   *PaymentInfo `json:"paymentInfo" validate:"required_if=PaymentMethod online"`
}

// Order is a persisted order in API-friendly format.
type Order struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	Email         string       `json:"email,omitempty"`
	Status        string       `json:"status"`
	Currency      string       `json:"currency"`
	TotalAmount   int64        `json:"totalAmount"`
	PaymentMethod string       `json:"paymentMethod"`
	PaymentInfo   *PaymentInfo `json:"paymentInfo,omitempty"`
	Address       Address      `json:"address"`
	Items         []Item       `json:"items,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Service persists orders and emits domain events.
type Service struct {
	Pool     *pgxpool.Pool
	Currency string
	Events   *events.Bus
	Log      zerolog.Logger
}

const insertOrderSQL = `
INSERT INTO orders (id, user_id, email, status, currency, total_amount, payment_method, payment_order_id, payment_payment_id, address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`

const insertItemSQL = `
INSERT INTO order_items (order_id, product_id, name, unit, price, qty, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Place stores the order and its items in one transaction and emits an
// order.created event. Event persist or notifier failures are logged and
// never fail the placement.
func (s *Service) Place(ctx context.Context, in Input) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order service not configured")
	}
	addressJSON, err := json.Marshal(in.Address)
	if err != nil {
		return Order{}, fmt.Errorf("encode address: %w", err)
	}

	id := uuid.New()
	var gatewayOrderID, gatewayPaymentID *string
	if in.PaymentInfo != nil {
		gatewayOrderID = &in.PaymentInfo.OrderID
		gatewayPaymentID = &in.PaymentInfo.PaymentID
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var createdAt time.Time
	err = tx.QueryRow(ctx, insertOrderSQL,
		id, in.UserID, nilIfEmpty(in.Email), StatusPlaced, s.Currency, in.TotalAmount,
		in.PaymentMethod, gatewayOrderID, gatewayPaymentID, addressJSON,
	).Scan(&createdAt)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	for _, it := range in.Items {
		if _, err := tx.Exec(ctx, insertItemSQL, id, it.ProductID, it.Name, it.Unit, it.Price, it.Quantity, it.Image); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}

	out := Order{
		ID:            id.String(),
		UserID:        in.UserID,
		Email:         in.Email,
		Status:        StatusPlaced,
		Currency:      s.Currency,
		TotalAmount:   in.TotalAmount,
		PaymentMethod: in.PaymentMethod,
		PaymentInfo:   in.PaymentInfo,
		Address:       in.Address,
		Items:         in.Items,
		CreatedAt:     createdAt,
	}

	s.emitOrderCreated(ctx, id, out)
	return out, nil
}

// emitOrderCreated publishes the placement event; the order is already
// committed, so a bus failure is logged instead of surfaced.
func (s *Service) emitOrderCreated(ctx context.Context, id uuid.UUID, out Order) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":       out.ID,
		"userId":        out.UserID,
		"total":         out.TotalAmount,
		"paymentMethod": out.PaymentMethod,
	}
	if out.Email != "" {
		payload["email"] = out.Email
	}
	if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, id, payload); err != nil {
		s.Log.Error().Err(err).Str("order_id", out.ID).Msg("order created event")
	}
}

const selectOrderSQL = `
SELECT id, user_id, email, status, currency, total_amount, payment_method, payment_order_id, payment_payment_id, address, created_at
FROM orders WHERE id = $1`

const selectItemsSQL = `
SELECT product_id, name, unit, price, qty, image
FROM order_items WHERE order_id = $1 ORDER BY id`

// Get returns one order with its items.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Order{}, common.NewAppError("BAD_REQUEST", "invalid order id", http.StatusBadRequest, err)
	}
	out, err := s.scanOrder(s.Pool.QueryRow(ctx, selectOrderSQL, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, common.NewAppError("ORDER_NOT_FOUND", "order not found", http.StatusNotFound, err)
		}
		return Order{}, err
	}

	rows, err := s.Pool.Query(ctx, selectItemsSQL, orderID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		var unit, image *string
		if err := rows.Scan(&it.ProductID, &it.Name, &unit, &it.Price, &it.Quantity, &image); err != nil {
			return Order{}, err
		}
		it.Unit = deref(unit)
		it.Image = deref(image)
		out.Items = append(out.Items, it)
	}
	return out, rows.Err()
}

const selectByUserSQL = `
SELECT id, user_id, email, status, currency, total_amount, payment_method, payment_order_id, payment_payment_id, address, created_at
FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT 100`

// ListByUser returns a user's orders, newest first, without item detail.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.Pool.Query(ctx, selectByUserSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]Order, 0)
	for rows.Next() {
		out, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, out)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Service) scanOrder(row rowScanner) (Order, error) {
	var out Order
	var email, gatewayOrderID, gatewayPaymentID *string
	var addressJSON []byte
	if err := row.Scan(&out.ID, &out.UserID, &email, &out.Status, &out.Currency, &out.TotalAmount,
		&out.PaymentMethod, &gatewayOrderID, &gatewayPaymentID, &addressJSON, &out.CreatedAt); err != nil {
		return Order{}, err
	}
	out.Email = deref(email)
	if gatewayOrderID != nil && gatewayPaymentID != nil {
		out.PaymentInfo = &PaymentInfo{OrderID: *gatewayOrderID, PaymentID: *gatewayPaymentID}
	}
	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &out.Address); err != nil {
			return Order{}, fmt.Errorf("decode address: %w", err)
		}
	}
	return out, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
