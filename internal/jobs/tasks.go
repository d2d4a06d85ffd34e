package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names routed through the asynq mux.
const (
	TypeOrderConfirmation = "email:order_confirmation"
	TypeInventoryAdjust   = "inventory:adjust"
)

// OrderConfirmationPayload carries everything the email worker needs so
// it never has to read the database.
type OrderConfirmationPayload struct {
	OrderID    string `json:"orderId"`
	Email      string `json:"email"`
	Total      string `json:"total"`
	Currency   string `json:"currency"`
	CouponCode string `json:"couponCode,omitempty"`
	CouponNote string `json:"couponNote,omitempty"`
}

// InventoryLine is one stock decrement from a completed order.
type InventoryLine struct {
	ProductID string `json:"productId"`
	Qty       int32  `json:"qty"`
}

// InventoryAdjustPayload decrements stock for each ordered line.
type InventoryAdjustPayload struct {
	OrderID string          `json:"orderId"`
	Lines   []InventoryLine `json:"lines"`
}

// NewOrderConfirmationTask builds the asynq task for a confirmation email.
func NewOrderConfirmationTask(p OrderConfirmationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode order confirmation: %w", err)
	}
	return asynq.NewTask(TypeOrderConfirmation, data), nil
}

// NewInventoryAdjustTask builds the asynq task for stock adjustment.
func NewInventoryAdjustTask(p InventoryAdjustPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode inventory adjust: %w", err)
	}
	return asynq.NewTask(TypeInventoryAdjust, data), nil
}
