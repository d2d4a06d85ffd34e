package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cartmax/backend-store/internal/cart"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

// ErrNotFound is returned when a product slug resolves to nothing.
var ErrNotFound = errors.New("product not found")

// Querier captures the database methods the catalog reads through.
type Querier interface {
	ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	GetProductBySlug(ctx context.Context, slug string) (db.Product, error)
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
}

// Service renders the product catalog in the shopper's display currency.
// Prices shown here are informational; carts snapshot their own copy.
type Service struct {
	Q              Querier
	Cache          *Cache
	DefaultPerPage int
	MaxPerPage     int
}

// Item is one product entry priced in a single currency.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	InStock  bool   `json:"inStock"`
}

// Detail is the full product payload with both currency prices exposed.
type Detail struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	PriceUSD string `json:"priceUsd"`
	PriceINR string `json:"priceInr"`
	Stock    int32  `json:"stock"`
	InStock  bool   `json:"inStock"`
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items   []Item
	Total   int64
	Page    int
	PerPage int
}

func (s *Service) perPage(requested int) int {
	perPage := requested
	if perPage < 1 {
		perPage = s.DefaultPerPage
	}
	if perPage < 1 {
		perPage = 20
	}
	max := s.MaxPerPage
	if max < 1 {
		max = 100
	}
	if perPage > max {
		perPage = max
	}
	return perPage
}

// List returns active products priced in the requested currency.
func (s *Service) List(ctx context.Context, currency money.Currency, page, perPage int) (ListResult, error) {
	if s == nil || s.Q == nil {
		return ListResult{}, errors.New("catalog: service not configured")
	}
	if page < 1 {
		page = 1
	}
	perPage = s.perPage(perPage)

	key := listCacheKey(currency, page, perPage)
	var cached cachedList
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return ListResult{Items: cached.Items, Total: cached.Total, Page: page, PerPage: perPage}, nil
	}

	total, err := s.Q.CountProducts(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.Q.ListProducts(ctx, db.ListProductsParams{
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFor(row, currency))
	}
	_ = s.Cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	return ListResult{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// Get returns one active product by slug.
func (s *Service) Get(ctx context.Context, slug string) (Detail, error) {
	if s == nil || s.Q == nil {
		return Detail{}, errors.New("catalog: service not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Detail{}, fmt.Errorf("slug is required: %w", ErrNotFound)
	}
	key := detailCacheKey(slug)
	var cached Detail
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	row, err := s.Q.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, fmt.Errorf("get product: %w", err)
	}
	detail := Detail{
		ID:       cart.UUIDString(row.ID),
		Title:    row.Title,
		Slug:     row.Slug,
		PriceUSD: row.PriceUSD.StringFixed(2),
		PriceINR: row.PriceINR.StringFixed(2),
		Stock:    row.Stock,
		InStock:  row.Stock > 0,
	}
	_ = s.Cache.SetJSON(ctx, key, detail)
	return detail, nil
}

// Create inserts a product and drops any cached copies of its slug.
func (s *Service) Create(ctx context.Context, arg db.CreateProductParams) (db.Product, error) {
	if s == nil || s.Q == nil {
		return db.Product{}, errors.New("catalog: service not configured")
	}
	created, err := s.Q.CreateProduct(ctx, arg)
	if err != nil {
		return db.Product{}, err
	}
	_ = s.Cache.Invalidate(ctx, detailCacheKey(created.Slug))
	return created, nil
}

type cachedList struct {
	Items []Item `json:"items"`
	Total int64  `json:"total"`
}

func itemFor(row db.Product, currency money.Currency) Item {
	price := row.PriceUSD
	if currency == money.INR {
		price = row.PriceINR
	}
	return Item{
		ID:       cart.UUIDString(row.ID),
		Title:    row.Title,
		Slug:     row.Slug,
		Price:    price.StringFixed(2),
		Currency: string(currency),
		InStock:  row.Stock > 0,
	}
}

func listCacheKey(currency money.Currency, page, perPage int) string {
	return "catalog:products:" + string(currency) + ":p" + strconv.Itoa(page) + ":n" + strconv.Itoa(perPage)
}

func detailCacheKey(slug string) string {
	return "catalog:product:" + slug
}
