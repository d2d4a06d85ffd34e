package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the producer-side surface used by the checkout service.
type Enqueuer interface {
	EnqueueOrderConfirmation(ctx context.Context, p OrderConfirmationPayload) error
	EnqueueInventoryAdjust(ctx context.Context, p InventoryAdjustPayload) error
}

// Client enqueues background tasks through asynq. Checkout treats both
// jobs as fire-and-forget: a lost job never fails an order.
type Client struct {
	A        *asynq.Client
	Queue    string
	MaxRetry int
}

func (c *Client) opts() []asynq.Option {
	queue := c.Queue
	if queue == "" {
		queue = "default"
	}
	retry := c.MaxRetry
	if retry <= 0 {
		retry = 5
	}
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(retry),
		asynq.Timeout(30 * time.Second),
	}
}

// EnqueueOrderConfirmation schedules the confirmation email.
func (c *Client) EnqueueOrderConfirmation(ctx context.Context, p OrderConfirmationPayload) error {
	if c == nil || c.A == nil {
		return errors.New("jobs: client not configured")
	}
	task, err := NewOrderConfirmationTask(p)
	if err != nil {
		return err
	}
	_, err = c.A.EnqueueContext(ctx, task, c.opts()...)
	return err
}

// EnqueueInventoryAdjust schedules the stock decrement for an order.
func (c *Client) EnqueueInventoryAdjust(ctx context.Context, p InventoryAdjustPayload) error {
	if c == nil || c.A == nil {
		return errors.New("jobs: client not configured")
	}
	task, err := NewInventoryAdjustTask(p)
	if err != nil {
		return err
	}
	_, err = c.A.EnqueueContext(ctx, task, c.opts()...)
	return err
}
