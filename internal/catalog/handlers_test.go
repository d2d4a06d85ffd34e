package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cartmax/backend-store/internal/catalog"
	"github.com/cartmax/backend-store/internal/db"
)

type fakeQueries struct {
	products []db.Product
	creates  int
}

func (f *fakeQueries) ListProducts(_ context.Context, arg db.ListProductsParams) ([]db.Product, error) {
	start := int(arg.Offset)
	if start > len(f.products) {
		start = len(f.products)
	}
	end := start + int(arg.Limit)
	if end > len(f.products) {
		end = len(f.products)
	}
	return append([]db.Product(nil), f.products[start:end]...), nil
}

func (f *fakeQueries) CountProducts(context.Context) (int64, error) {
	return int64(len(f.products)), nil
}

func (f *fakeQueries) GetProductBySlug(_ context.Context, slug string) (db.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return db.Product{}, pgx.ErrNoRows
}

func (f *fakeQueries) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	f.creates++
	p := db.Product{
		ID:       mustUUID("99999999-9999-9999-9999-999999999999"),
		Title:    arg.Title,
		Slug:     arg.Slug,
		PriceUSD: arg.PriceUSD,
		PriceINR: arg.PriceINR,
		Stock:    arg.Stock,
		IsActive: arg.IsActive,
	}
	f.products = append(f.products, p)
	return p, nil
}

func mustUUID(value string) pgtype.UUID {
	var id pgtype.UUID
	if err := id.Scan(value); err != nil {
		panic(err)
	}
	return id
}

func seedQueries() *fakeQueries {
	return &fakeQueries{products: []db.Product{
		{
			ID:       mustUUID("11111111-1111-1111-1111-111111111111"),
			Title:    "Mechanical Keyboard",
			Slug:     "mechanical-keyboard",
			PriceUSD: decimal.RequireFromString("100.00"),
			PriceINR: decimal.RequireFromString("8300.00"),
			Stock:    5,
			IsActive: true,
		},
		{
			ID:       mustUUID("22222222-2222-2222-2222-222222222222"),
			Title:    "Desk Mat",
			Slug:     "desk-mat",
			PriceUSD: decimal.RequireFromString("20.00"),
			PriceINR: decimal.RequireFromString("1660.00"),
			Stock:    0,
			IsActive: true,
		},
	}}
}

func TestProductsListInDisplayCurrency(t *testing.T) {
	h := &catalog.Handler{Svc: &catalog.Service{Q: seedQueries(), DefaultPerPage: 20, MaxPerPage: 100}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?currency=INR&limit=1", nil)
	rec := httptest.NewRecorder()
	h.Products(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	var resp struct {
		Data []catalog.Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "8300.00", resp.Data[0].Price)
	require.Equal(t, "INR", resp.Data[0].Currency)
	require.True(t, resp.Data[0].InStock)
}

func TestProductsListRejectsUnknownCurrency(t *testing.T) {
	h := &catalog.Handler{Svc: &catalog.Service{Q: seedQueries()}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?currency=EUR", nil)
	rec := httptest.NewRecorder()
	h.Products(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductDetailExposesBothPrices(t *testing.T) {
	h := &catalog.Handler{Svc: &catalog.Service{Q: seedQueries()}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/mechanical-keyboard", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("slug", "mechanical-keyboard")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	h.ProductDetail(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data catalog.Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "100.00", resp.Data.PriceUSD)
	require.Equal(t, "8300.00", resp.Data.PriceINR)
}

func TestProductDetailNotFound(t *testing.T) {
	h := &catalog.Handler{Svc: &catalog.Service{Q: seedQueries()}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("slug", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	h.ProductDetail(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProductValidatesPrices(t *testing.T) {
	h := &catalog.Handler{Svc: &catalog.Service{Q: seedQueries()}}

	body := `{"title":"Lamp","slug":"lamp","priceUsd":"-5","priceInr":"100.00","stock":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateProduct(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCachesRenderedPage(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	queries := seedQueries()
	svc := &catalog.Service{
		Q:              queries,
		Cache:          catalog.NewCache(client, time.Minute),
		DefaultPerPage: 20,
		MaxPerPage:     100,
	}

	ctx := context.Background()
	first, err := svc.List(ctx, "USD", 1, 20)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)

	// Mutate the backing store; the cached page should still be served.
	queries.products = queries.products[:1]
	second, err := svc.List(ctx, "USD", 1, 20)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.Equal(t, first.Total, second.Total)
}
