package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const cartColumns = `id, user_id, anon_id, currency, applied_coupon_code, discount_amount, created_at, updated_at, expires_at`

func scanCart(row interface{ Scan(...any) error }) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.AnonID, &c.Currency, &c.AppliedCouponCode, &c.DiscountAmount, &c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt)
	return c, err
}

const getActiveCartByUser = `
SELECT ` + cartColumns + `
FROM carts
WHERE user_id = $1 AND expires_at > now()
ORDER BY updated_at DESC
LIMIT 1
`

func (q *Queries) GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, getActiveCartByUser, userID))
}

const getActiveCartByAnon = `
SELECT ` + cartColumns + `
FROM carts
WHERE anon_id = $1 AND expires_at > now()
ORDER BY updated_at DESC
LIMIT 1
`

func (q *Queries) GetActiveCartByAnon(ctx context.Context, anonID pgtype.Text) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, getActiveCartByAnon, anonID))
}

const getCartByID = `
SELECT ` + cartColumns + `
FROM carts
WHERE id = $1
`

func (q *Queries) GetCartByID(ctx context.Context, id pgtype.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, getCartByID, id))
}

const createCart = `
INSERT INTO carts (user_id, anon_id, currency, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + cartColumns + `
`

// CreateCartParams holds the input for CreateCart.
type CreateCartParams struct {
	UserID    pgtype.UUID
	AnonID    pgtype.Text
	Currency  string
	ExpiresAt pgtype.Timestamptz
}

func (q *Queries) CreateCart(ctx context.Context, arg CreateCartParams) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, createCart, arg.UserID, arg.AnonID, arg.Currency, arg.ExpiresAt))
}

const touchCart = `
UPDATE carts SET updated_at = now(), expires_at = $2 WHERE id = $1
`

// TouchCartParams holds the input for TouchCart.
type TouchCartParams struct {
	ID        pgtype.UUID
	ExpiresAt pgtype.Timestamptz
}

func (q *Queries) TouchCart(ctx context.Context, arg TouchCartParams) error {
	_, err := q.db.Exec(ctx, touchCart, arg.ID, arg.ExpiresAt)
	return err
}

const updateCartCurrency = `
UPDATE carts SET currency = $2, updated_at = now() WHERE id = $1
`

func (q *Queries) UpdateCartCurrency(ctx context.Context, id pgtype.UUID, currency string) error {
	_, err := q.db.Exec(ctx, updateCartCurrency, id, currency)
	return err
}

const updateCartCoupon = `
UPDATE carts
SET applied_coupon_code = $2, discount_amount = $3, updated_at = now()
WHERE id = $1
`

// UpdateCartCouponParams holds the input for UpdateCartCoupon.
type UpdateCartCouponParams struct {
	ID                pgtype.UUID
	AppliedCouponCode pgtype.Text
	DiscountAmount    decimal.Decimal
}

func (q *Queries) UpdateCartCoupon(ctx context.Context, arg UpdateCartCouponParams) error {
	_, err := q.db.Exec(ctx, updateCartCoupon, arg.ID, arg.AppliedCouponCode, arg.DiscountAmount)
	return err
}

const deleteCart = `
DELETE FROM carts WHERE id = $1
`

func (q *Queries) DeleteCart(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCart, id)
	return err
}

const cartItemColumns = `id, cart_id, product_id, title, slug, qty, unit_price_usd, unit_price_inr, created_at`

func scanCartItem(row interface{ Scan(...any) error }) (CartItem, error) {
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Title, &it.Slug, &it.Qty, &it.UnitPriceUSD, &it.UnitPriceINR, &it.CreatedAt)
	return it, err
}

const listCartItems = `
SELECT ` + cartItemColumns + `
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at
`

func (q *Queries) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const findCartItemByProduct = `
SELECT ` + cartItemColumns + `
FROM cart_items
WHERE cart_id = $1 AND product_id = $2
`

// FindCartItemByProductParams holds the input for FindCartItemByProduct.
type FindCartItemByProductParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
}

func (q *Queries) FindCartItemByProduct(ctx context.Context, arg FindCartItemByProductParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, findCartItemByProduct, arg.CartID, arg.ProductID))
}

const getCartItemByID = `
SELECT ` + cartItemColumns + `
FROM cart_items
WHERE id = $1
`

func (q *Queries) GetCartItemByID(ctx context.Context, id pgtype.UUID) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, getCartItemByID, id))
}

const createCartItem = `
INSERT INTO cart_items (cart_id, product_id, title, slug, qty, unit_price_usd, unit_price_inr)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + cartItemColumns + `
`

// CreateCartItemParams holds the input for CreateCartItem.
type CreateCartItemParams struct {
	CartID       pgtype.UUID
	ProductID    pgtype.UUID
	Title        string
	Slug         string
	Qty          int32
	UnitPriceUSD decimal.NullDecimal
	UnitPriceINR decimal.NullDecimal
}

func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, createCartItem,
		arg.CartID, arg.ProductID, arg.Title, arg.Slug, arg.Qty, arg.UnitPriceUSD, arg.UnitPriceINR))
}

const updateCartItemQty = `
UPDATE cart_items SET qty = $2 WHERE id = $1
RETURNING ` + cartItemColumns + `
`

func (q *Queries) UpdateCartItemQty(ctx context.Context, id pgtype.UUID, qty int32) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, updateCartItemQty, id, qty))
}

const updateCartItemSnapshot = `
UPDATE cart_items
SET unit_price_usd = COALESCE(unit_price_usd, $2),
    unit_price_inr = COALESCE(unit_price_inr, $3)
WHERE id = $1
`

// UpdateCartItemSnapshotParams backfills a missing per-currency price snapshot.
// COALESCE keeps an existing snapshot immutable.
type UpdateCartItemSnapshotParams struct {
	ID           pgtype.UUID
	UnitPriceUSD decimal.NullDecimal
	UnitPriceINR decimal.NullDecimal
}

func (q *Queries) UpdateCartItemSnapshot(ctx context.Context, arg UpdateCartItemSnapshotParams) error {
	_, err := q.db.Exec(ctx, updateCartItemSnapshot, arg.ID, arg.UnitPriceUSD, arg.UnitPriceINR)
	return err
}

const deleteCartItem = `
DELETE FROM cart_items WHERE id = $1 AND cart_id = $2
`

// DeleteCartItemParams holds the input for DeleteCartItem.
type DeleteCartItemParams struct {
	ID     pgtype.UUID
	CartID pgtype.UUID
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) error {
	_, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.CartID)
	return err
}

const clearCartItems = `
DELETE FROM cart_items WHERE cart_id = $1
`

func (q *Queries) ClearCartItems(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearCartItems, cartID)
	return err
}
