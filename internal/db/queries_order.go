package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, status, currency, original_subtotal, discount_amount,
tax_amount, shipping_amount, total, applied_coupon_code, shipping_address, created_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Currency, &o.OriginalSubtotal, &o.DiscountAmount,
		&o.TaxAmount, &o.ShippingAmount, &o.Total, &o.AppliedCouponCode, &o.ShippingAddress, &o.CreatedAt)
	return o, err
}

const createOrder = `
INSERT INTO orders (user_id, status, currency, original_subtotal, discount_amount,
  tax_amount, shipping_amount, total, applied_coupon_code, shipping_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns + `
`

// CreateOrderParams freezes the pricing snapshot onto a new order row.
type CreateOrderParams struct {
	UserID            pgtype.UUID
	Status            string
	Currency          string
	OriginalSubtotal  decimal.Decimal
	DiscountAmount    decimal.Decimal
	TaxAmount         decimal.Decimal
	ShippingAmount    decimal.Decimal
	Total             decimal.Decimal
	AppliedCouponCode pgtype.Text
	ShippingAddress   []byte
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.Status, arg.Currency, arg.OriginalSubtotal, arg.DiscountAmount,
		arg.TaxAmount, arg.ShippingAmount, arg.Total, arg.AppliedCouponCode, arg.ShippingAddress))
}

const getOrderByID = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

const listOrdersForUser = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

// ListOrdersForUserParams holds the input for ListOrdersForUser.
type ListOrdersForUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersForUser(ctx context.Context, arg ListOrdersForUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersForUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const countOrdersForUser = `
SELECT count(*) FROM orders WHERE user_id = $1
`

func (q *Queries) CountOrdersForUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersForUser, userID).Scan(&n)
	return n, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, title, slug, qty, unit_price_usd, unit_price_inr)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// CreateOrderItemParams copies one cart line, snapshots included, onto an order.
type CreateOrderItemParams struct {
	OrderID      pgtype.UUID
	ProductID    pgtype.UUID
	Title        string
	Slug         string
	Qty          int32
	UnitPriceUSD decimal.NullDecimal
	UnitPriceINR decimal.NullDecimal
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Title, arg.Slug, arg.Qty, arg.UnitPriceUSD, arg.UnitPriceINR)
	return err
}

const listOrderItems = `
SELECT id, order_id, product_id, title, slug, qty, unit_price_usd, unit_price_inr
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Slug, &it.Qty, &it.UnitPriceUSD, &it.UnitPriceINR); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const insertDomainEvent = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at
`

// InsertDomainEventParams holds the input for InsertDomainEvent.
type InsertDomainEventParams struct {
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
}

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	row := q.db.QueryRow(ctx, insertDomainEvent, arg.Topic, arg.AggregateID, arg.Payload)
	var ev DomainEvent
	err := row.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
