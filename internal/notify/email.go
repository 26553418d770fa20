package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snapcart/storefront-api/internal/events"
	"github.com/snapcart/storefront-api/internal/mail"
)

// EmailNotifier sends transactional emails for selected topics. A missing
// recipient in the payload means there is nobody to notify; that is not an
// error.
type EmailNotifier struct {
	Mail      mail.Sender
	Enabled   bool
	StoreName string
	Log       zerolog.Logger
}

// Notify implements the events.Notifier interface.
func (n EmailNotifier) Notify(_ context.Context, event events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := recipient(payload)
	if to == "" {
		return nil
	}
	subject := n.subjectFor(event.Topic)
	body := n.bodyFor(event.Topic, payload)
	messageID, err := n.Mail.Send(to, subject, body)
	if err != nil {
		return fmt.Errorf("email notify: %w", err)
	}
	n.Log.Info().Str("topic", event.Topic).Str("message_id", messageID).Msg("notification email sent")
	return nil
}

func recipient(payload map[string]any) string {
	for _, key := range []string{"email", "recipient", "customerEmail"} {
		if val, ok := payload[key].(string); ok {
			trimmed := strings.TrimSpace(val)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (n EmailNotifier) subjectFor(topic string) string {
	switch topic {
	case events.TopicOrderCreated:
		return fmt.Sprintf("%s: order confirmed", n.StoreName)
	default:
		return fmt.Sprintf("%s: %s", n.StoreName, topic)
	}
}

func (n EmailNotifier) bodyFor(topic string, payload map[string]any) string {
	var b strings.Builder
	switch topic {
	case events.TopicOrderCreated:
		b.WriteString("<p>Thank you for your order!</p>")
	default:
		fmt.Fprintf(&b, "<p>Update from %s.</p>", n.StoreName)
	}
	if orderID, ok := payload["orderId"].(string); ok && orderID != "" {
		fmt.Fprintf(&b, "<p>Order ID: %s</p>", orderID)
	}
	if total, ok := payload["total"].(float64); ok && total > 0 {
		fmt.Fprintf(&b, "<p>Total: %.2f</p>", total/100)
	}
	if method, ok := payload["paymentMethod"].(string); ok && method != "" {
		fmt.Fprintf(&b, "<p>Payment method: %s</p>", method)
	}
	return b.String()
}
