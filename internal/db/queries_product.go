package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const getProductForCart = `
SELECT id, title, slug, price_usd, price_inr, stock, is_active, created_at, updated_at
FROM products
WHERE id = $1
`

// GetProductForCart loads the catalog slice needed to snapshot a line item.
func (q *Queries) GetProductForCart(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProductForCart, id)
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.PriceUSD, &p.PriceINR, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const createProduct = `
INSERT INTO products (title, slug, price_usd, price_inr, stock, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, title, slug, price_usd, price_inr, stock, is_active, created_at, updated_at
`

// CreateProductParams holds the input for CreateProduct.
type CreateProductParams struct {
	Title    string
	Slug     string
	PriceUSD decimal.Decimal
	PriceINR decimal.Decimal
	Stock    int32
	IsActive bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Title, arg.Slug, arg.PriceUSD, arg.PriceINR, arg.Stock, arg.IsActive)
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.PriceUSD, &p.PriceINR, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const getProductBySlug = `
SELECT id, title, slug, price_usd, price_inr, stock, is_active, created_at, updated_at
FROM products
WHERE slug = $1 AND is_active = TRUE
`

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(ctx, getProductBySlug, slug)
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.PriceUSD, &p.PriceINR, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const countProducts = `
SELECT count(*) FROM products WHERE is_active = TRUE
`

func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts).Scan(&n)
	return n, err
}

const listProducts = `
SELECT id, title, slug, price_usd, price_inr, stock, is_active, created_at, updated_at
FROM products
WHERE is_active = TRUE
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

// ListProductsParams holds the input for ListProducts.
type ListProductsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.PriceUSD, &p.PriceINR, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const adjustProductStock = `
UPDATE products
SET stock = stock + $2, updated_at = now()
WHERE id = $1
RETURNING stock
`

// AdjustProductStock applies a signed stock delta and returns the new level.
func (q *Queries) AdjustProductStock(ctx context.Context, id pgtype.UUID, change int32) (int32, error) {
	var stock int32
	err := q.db.QueryRow(ctx, adjustProductStock, id, change).Scan(&stock)
	return stock, err
}

const insertStockMovement = `
INSERT INTO stock_movements (product_id, change, movement_type, reference)
VALUES ($1, $2, $3, $4)
`

// InsertStockMovementParams holds the input for InsertStockMovement.
type InsertStockMovementParams struct {
	ProductID    pgtype.UUID
	Change       int32
	MovementType string
	Reference    pgtype.Text
}

func (q *Queries) InsertStockMovement(ctx context.Context, arg InsertStockMovementParams) error {
	_, err := q.db.Exec(ctx, insertStockMovement, arg.ProductID, arg.Change, arg.MovementType, arg.Reference)
	return err
}
