package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/cart"
	"github.com/cartmax/backend-store/internal/common"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

// Handler exposes public catalog endpoints plus the admin create route.
type Handler struct {
	Svc *Service
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	currency, err := displayCurrency(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported currency", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	result, err := h.Svc.List(r.Context(), currency, page, perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": result.Items,
		"pagination": common.Pagination{
			Page:       result.Page,
			PerPage:    result.PerPage,
			TotalItems: int(result.Total),
		},
	})
}

// ProductDetail handles GET /api/v1/products/{slug}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	detail, err := h.Svc.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

type createProductPayload struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	PriceUSD string `json:"priceUsd"`
	PriceINR string `json:"priceInr"`
	Stock    int32  `json:"stock"`
	IsActive *bool  `json:"isActive"`
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var payload createProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	params, err := buildCreateProductParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := h.Svc.Create(r.Context(), params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "product slug already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create product", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": Detail{
		ID:       cart.UUIDString(created.ID),
		Title:    created.Title,
		Slug:     created.Slug,
		PriceUSD: created.PriceUSD.StringFixed(2),
		PriceINR: created.PriceINR.StringFixed(2),
		Stock:    created.Stock,
		InStock:  created.Stock > 0,
	}})
}

func buildCreateProductParams(payload createProductPayload) (db.CreateProductParams, error) {
	title := strings.TrimSpace(payload.Title)
	slug := strings.TrimSpace(payload.Slug)
	if title == "" || slug == "" {
		return db.CreateProductParams{}, errors.New("title and slug are required")
	}
	priceUSD, err := decimal.NewFromString(strings.TrimSpace(payload.PriceUSD))
	if err != nil || !priceUSD.IsPositive() {
		return db.CreateProductParams{}, errors.New("priceUsd must be a positive amount")
	}
	priceINR, err := decimal.NewFromString(strings.TrimSpace(payload.PriceINR))
	if err != nil || !priceINR.IsPositive() {
		return db.CreateProductParams{}, errors.New("priceInr must be a positive amount")
	}
	if payload.Stock < 0 {
		return db.CreateProductParams{}, errors.New("stock cannot be negative")
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	return db.CreateProductParams{
		Title:    title,
		Slug:     slug,
		PriceUSD: priceUSD,
		PriceINR: priceINR,
		Stock:    payload.Stock,
		IsActive: active,
	}, nil
}

func displayCurrency(r *http.Request) (money.Currency, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("currency"))
	if raw == "" {
		return money.USD, nil
	}
	return money.ParseCurrency(raw)
}
