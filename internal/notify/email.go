package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cartmax/backend-store/internal/common"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/events"
)

// EmailNotifier sends transactional emails for selected topics. It is a
// synchronous fallback next to the asynq confirmation job; most emails
// go through the worker, this covers topics with no dedicated task.
type EmailNotifier struct {
	Mail         common.EmailSender
	Enabled      bool
	From         string
	TopicToggles map[string]bool
}

// Notify implements the events.Notifier interface.
func (n EmailNotifier) Notify(_ context.Context, event db.DomainEvent) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := extractRecipient(payload)
	if to == "" {
		return nil
	}
	subject := subjectFor(event.Topic)
	body := bodyFor(event.Topic, payload, event.OccurredAt.Time)
	return n.Mail.Send(to, subject, body)
}

func extractRecipient(payload map[string]any) string {
	keys := []string{"email", "recipient", "userEmail", "customerEmail"}
	for _, key := range keys {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicOrderCreated:
		return "Order received"
	case events.TopicCouponApplied:
		return "Coupon applied to your cart"
	case events.TopicCouponRedeemed:
		return "Coupon redeemed"
	case events.TopicCouponRaceLost:
		return "Update about your coupon"
	default:
		return fmt.Sprintf("Notification: %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	summary := fmt.Sprintf("Event %s occurred at %s.", topic, occurred.Format(time.RFC3339))
	if orderID, ok := payload["orderId"].(string); ok && orderID != "" {
		summary += fmt.Sprintf("\nOrder ID: %s", orderID)
	}
	if code, ok := payload["code"].(string); ok && code != "" {
		summary += fmt.Sprintf("\nCoupon: %s", code)
	}
	if discount, ok := payload["discount"].(string); ok && discount != "" {
		summary += fmt.Sprintf("\nDiscount: %s", discount)
	}
	if note, ok := payload["note"].(string); ok && note != "" {
		summary += "\n" + note
	}
	return summary
}
