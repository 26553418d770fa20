package notify_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/snapcart/storefront-api/internal/events"
	"github.com/snapcart/storefront-api/internal/mail"
	"github.com/snapcart/storefront-api/internal/notify"
)

func orderCreatedEvent(t *testing.T, payload map[string]any) events.Event {
	t.Helper()
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Event{ID: uuid.New(), Topic: events.TopicOrderCreated, AggregateID: uuid.New(), Payload: encoded}
}

func TestEmailNotifierSendsConfirmation(t *testing.T) {
	outbox := &mail.Memory{}
	n := notify.EmailNotifier{Mail: outbox, Enabled: true, StoreName: "SnapCart", Log: zerolog.Nop()}

	ev := orderCreatedEvent(t, map[string]any{
		"email":         "shopper@example.com",
		"orderId":       "7b1e...",
		"total":         int64(24500),
		"paymentMethod": "cod",
	})
	require.NoError(t, n.Notify(context.Background(), ev))
	require.Len(t, outbox.Outbox, 1)

	msg := outbox.Outbox[0]
	require.Equal(t, "shopper@example.com", msg.To)
	require.Equal(t, "SnapCart: order confirmed", msg.Subject)
	require.Contains(t, msg.HTML, "Thank you for your order")
	require.Contains(t, msg.HTML, "7b1e...")
	require.Contains(t, msg.HTML, "cod")
}

func TestEmailNotifierSkipsWithoutRecipient(t *testing.T) {
	outbox := &mail.Memory{}
	n := notify.EmailNotifier{Mail: outbox, Enabled: true, StoreName: "SnapCart", Log: zerolog.Nop()}

	ev := orderCreatedEvent(t, map[string]any{"orderId": "abc"})
	require.NoError(t, n.Notify(context.Background(), ev))
	require.Empty(t, outbox.Outbox)
}

func TestEmailNotifierDisabled(t *testing.T) {
	outbox := &mail.Memory{}
	n := notify.EmailNotifier{Mail: outbox, Enabled: false, StoreName: "SnapCart", Log: zerolog.Nop()}

	ev := orderCreatedEvent(t, map[string]any{"email": "shopper@example.com"})
	require.NoError(t, n.Notify(context.Background(), ev))
	require.Empty(t, outbox.Outbox)
}

func TestEmailNotifierPropagatesSendFailure(t *testing.T) {
	outbox := &mail.Memory{Err: mail.ErrSendFailed}
	n := notify.EmailNotifier{Mail: outbox, Enabled: true, StoreName: "SnapCart", Log: zerolog.Nop()}

	ev := orderCreatedEvent(t, map[string]any{"email": "shopper@example.com"})
	require.ErrorIs(t, n.Notify(context.Background(), ev), mail.ErrSendFailed)
}
