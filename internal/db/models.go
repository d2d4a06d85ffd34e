package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Product is the narrow slice of the catalog this core reads: dual-currency
// prices and a stock counter for the inventory ledger.
type Product struct {
	ID        pgtype.UUID
	Title     string
	Slug      string
	PriceUSD  decimal.Decimal
	PriceINR  decimal.Decimal
	Stock     int32
	IsActive  bool
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// Cart is owned by exactly one user or anonymous session.
type Cart struct {
	ID                pgtype.UUID
	UserID            pgtype.UUID
	AnonID            pgtype.Text
	Currency          string
	AppliedCouponCode pgtype.Text
	DiscountAmount    decimal.Decimal
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
	ExpiresAt         pgtype.Timestamptz
}

// CartItem carries one immutable price snapshot per supported currency,
// captured when the item enters the cart. A null snapshot means the price for
// that currency has not been looked up yet.
type CartItem struct {
	ID           pgtype.UUID
	CartID       pgtype.UUID
	ProductID    pgtype.UUID
	Title        string
	Slug         string
	Qty          int32
	UnitPriceUSD decimal.NullDecimal
	UnitPriceINR decimal.NullDecimal
	CreatedAt    pgtype.Timestamptz
}

// Coupon reproduces the persisted coupon surface verbatim.
type Coupon struct {
	ID                 pgtype.UUID
	Code               string
	Description        pgtype.Text
	DiscountType       string
	DiscountValue      decimal.Decimal
	MinimumOrderAmount decimal.NullDecimal
	MaximumOrderAmount decimal.NullDecimal
	AmountCurrency     string
	MaxUsageLimit      pgtype.Int4
	UsageCount         int32
	IsActive           bool
	ExpirationDate     pgtype.Timestamptz
	CreatedAt          pgtype.Timestamptz
	UpdatedAt          pgtype.Timestamptz
}

// CouponUsage records one redemption of a coupon by an owner. Only the global
// usage_count on Coupon gates redemption; these rows exist for auditing and
// the optional per-user limit.
type CouponUsage struct {
	ID       pgtype.UUID
	CouponID pgtype.UUID
	OrderID  pgtype.UUID
	UserID   pgtype.UUID
	Amount   decimal.Decimal
	UsedAt   pgtype.Timestamptz
}

// Order is an immutable-after-creation pricing snapshot.
type Order struct {
	ID                pgtype.UUID
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
	CreatedAt         pgtype.Timestamptz
}

// OrderItem is a frozen copy of a cart item, snapshots included.
type OrderItem struct {
	ID           pgtype.UUID
	OrderID      pgtype.UUID
	ProductID    pgtype.UUID
	Title        string
	Slug         string
	Qty          int32
	UnitPriceUSD decimal.NullDecimal
	UnitPriceINR decimal.NullDecimal
}

// DomainEvent is an append-only record of something that happened.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}

// StockMovement is one entry in the inventory ledger.
type StockMovement struct {
	ID           pgtype.UUID
	ProductID    pgtype.UUID
	Change       int32
	MovementType string
	Reference    pgtype.Text
	CreatedAt    pgtype.Timestamptz
}
