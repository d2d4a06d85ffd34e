package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const couponColumns = `id, code, description, discount_type, discount_value,
minimum_order_amount, maximum_order_amount, amount_currency,
max_usage_limit, usage_count, is_active, expiration_date, created_at, updated_at`

func scanCoupon(row interface{ Scan(...any) error }) (Coupon, error) {
	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue,
		&c.MinimumOrderAmount, &c.MaximumOrderAmount, &c.AmountCurrency,
		&c.MaxUsageLimit, &c.UsageCount, &c.IsActive, &c.ExpirationDate, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCouponByCode = `
SELECT ` + couponColumns + `
FROM coupons
WHERE code = $1
`

// GetCouponByCode looks up a coupon by its canonical (upper-case) code.
func (q *Queries) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, getCouponByCode, code))
}

const getCouponByCodeForUpdate = `
SELECT ` + couponColumns + `
FROM coupons
WHERE code = $1
FOR UPDATE
`

// GetCouponByCodeForUpdate acquires a row-level exclusive lock on the coupon.
// Must run inside a transaction; the lock is held until commit or rollback.
func (q *Queries) GetCouponByCodeForUpdate(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, getCouponByCodeForUpdate, code))
}

const incrementCouponUsage = `
UPDATE coupons SET usage_count = usage_count + 1, updated_at = now() WHERE id = $1
`

func (q *Queries) IncrementCouponUsage(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, incrementCouponUsage, id)
	return err
}

const createCoupon = `
INSERT INTO coupons (code, description, discount_type, discount_value,
  minimum_order_amount, maximum_order_amount, amount_currency,
  max_usage_limit, is_active, expiration_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + couponColumns + `
`

// CreateCouponParams holds the input for CreateCoupon.
type CreateCouponParams struct {
	Code               string
	Description        pgtype.Text
	DiscountType       string
	DiscountValue      decimal.Decimal
	MinimumOrderAmount decimal.NullDecimal
	MaximumOrderAmount decimal.NullDecimal
	AmountCurrency     string
	MaxUsageLimit      pgtype.Int4
	IsActive           bool
	ExpirationDate     pgtype.Timestamptz
}

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, createCoupon,
		arg.Code, arg.Description, arg.DiscountType, arg.DiscountValue,
		arg.MinimumOrderAmount, arg.MaximumOrderAmount, arg.AmountCurrency,
		arg.MaxUsageLimit, arg.IsActive, arg.ExpirationDate))
}

const updateCoupon = `
UPDATE coupons
SET description = $2, discount_type = $3, discount_value = $4,
    minimum_order_amount = $5, maximum_order_amount = $6, amount_currency = $7,
    max_usage_limit = $8, is_active = $9, expiration_date = $10, updated_at = now()
WHERE code = $1
RETURNING ` + couponColumns + `
`

// UpdateCouponParams holds the input for UpdateCoupon. usage_count is never
// writable through this path.
type UpdateCouponParams struct {
	Code               string
	Description        pgtype.Text
	DiscountType       string
	DiscountValue      decimal.Decimal
	MinimumOrderAmount decimal.NullDecimal
	MaximumOrderAmount decimal.NullDecimal
	AmountCurrency     string
	MaxUsageLimit      pgtype.Int4
	IsActive           bool
	ExpirationDate     pgtype.Timestamptz
}

func (q *Queries) UpdateCoupon(ctx context.Context, arg UpdateCouponParams) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, updateCoupon,
		arg.Code, arg.Description, arg.DiscountType, arg.DiscountValue,
		arg.MinimumOrderAmount, arg.MaximumOrderAmount, arg.AmountCurrency,
		arg.MaxUsageLimit, arg.IsActive, arg.ExpirationDate))
}

const insertCouponUsage = `
INSERT INTO coupon_usages (coupon_id, order_id, user_id, amount)
VALUES ($1, $2, $3, $4)
`

// InsertCouponUsageParams holds the input for InsertCouponUsage.
type InsertCouponUsageParams struct {
	CouponID pgtype.UUID
	OrderID  pgtype.UUID
	UserID   pgtype.UUID
	Amount   decimal.Decimal
}

func (q *Queries) InsertCouponUsage(ctx context.Context, arg InsertCouponUsageParams) error {
	_, err := q.db.Exec(ctx, insertCouponUsage, arg.CouponID, arg.OrderID, arg.UserID, arg.Amount)
	return err
}

const countCouponUsageByUser = `
SELECT count(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2
`

// CountCouponUsageByUserParams holds the input for CountCouponUsageByUser.
type CountCouponUsageByUserParams struct {
	CouponID pgtype.UUID
	UserID   pgtype.UUID
}

func (q *Queries) CountCouponUsageByUser(ctx context.Context, arg CountCouponUsageByUserParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countCouponUsageByUser, arg.CouponID, arg.UserID).Scan(&n)
	return n, err
}
