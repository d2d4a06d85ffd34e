package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/cartmax/backend-store/internal/common"
	"github.com/cartmax/backend-store/internal/inventory"
)

// Handlers processes background tasks on the worker. Both handlers are
// idempotent enough to survive asynq retries: a duplicate email is
// harmless and the inventory service records a movement reference per
// order for auditing.
type Handlers struct {
	Mail      common.EmailSender
	Inventory *inventory.Service
	Log       zerolog.Logger
}

// Mux returns the asynq mux with all task handlers registered.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrderConfirmation, h.HandleOrderConfirmation)
	mux.HandleFunc(TypeInventoryAdjust, h.HandleInventoryAdjust)
	return mux
}

// HandleOrderConfirmation sends the order confirmation email.
func (h *Handlers) HandleOrderConfirmation(_ context.Context, t *asynq.Task) error {
	var p OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode order confirmation: %v: %w", err, asynq.SkipRetry)
	}
	if p.Email == "" {
		h.Log.Debug().Str("order_id", p.OrderID).Msg("order confirmation skipped, no email")
		return nil
	}
	if h.Mail == nil {
		return errors.New("email sender not configured")
	}
	subject := "Your order is confirmed"
	body := fmt.Sprintf("Order %s confirmed. Total: %s %s.", p.OrderID, p.Total, p.Currency)
	if p.CouponCode != "" {
		body += fmt.Sprintf(" Coupon applied: %s.", p.CouponCode)
	}
	if p.CouponNote != "" {
		body += " " + p.CouponNote
	}
	if err := h.Mail.Send(p.Email, subject, body); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	h.Log.Info().Str("order_id", p.OrderID).Msg("order confirmation sent")
	return nil
}

// HandleInventoryAdjust decrements stock for each ordered line.
func (h *Handlers) HandleInventoryAdjust(ctx context.Context, t *asynq.Task) error {
	var p InventoryAdjustPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode inventory adjust: %v: %w", err, asynq.SkipRetry)
	}
	if h.Inventory == nil {
		return errors.New("inventory service not configured")
	}
	for _, line := range p.Lines {
		if err := h.Inventory.RecordSale(ctx, line.ProductID, line.Qty, p.OrderID); err != nil {
			return fmt.Errorf("adjust stock for %s: %w", line.ProductID, err)
		}
	}
	h.Log.Info().Str("order_id", p.OrderID).Int("lines", len(p.Lines)).Msg("inventory adjusted")
	return nil
}
