package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/common"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

// AdminQuerier captures the database methods required by the admin endpoints.
type AdminQuerier interface {
	CreateCoupon(ctx context.Context, arg db.CreateCouponParams) (db.Coupon, error)
	UpdateCoupon(ctx context.Context, arg db.UpdateCouponParams) (db.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (db.Coupon, error)
}

// Handler exposes coupon validation and administrative management.
type Handler struct {
	Q   AdminQuerier
	Svc *Service
}

type validateRequest struct {
	Code      string  `json:"code"`
	CartTotal string  `json:"cartTotal"`
	Currency  string  `json:"currency"`
	UserID    *string `json:"userId"`
}

// Validate returns the discount the code would grant for the given
// subtotal, without consuming quota.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported currency", nil)
		return
	}
	subtotal, err := money.FromString(req.CartTotal, currency)
	if err != nil || !subtotal.IsPositive() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartTotal must be a positive amount", nil)
		return
	}
	var userID pgtype.UUID
	if req.UserID != nil && strings.TrimSpace(*req.UserID) != "" {
		if err := userID.Scan(strings.TrimSpace(*req.UserID)); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
			return
		}
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, userID, subtotal)
	if err != nil {
		h.writeValidationError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"code":     result.Code,
			"valid":    true,
			"discount": result.Discount.Amount.StringFixed(2),
			"currency": string(result.Discount.Currency),
		},
	})
}

type couponPayload struct {
	Code               string     `json:"code"`
	Description        *string    `json:"description"`
	DiscountType       string     `json:"discountType"`
	DiscountValue      string     `json:"discountValue"`
	MinimumOrderAmount *string    `json:"minimumOrderAmount"`
	MaximumOrderAmount *string    `json:"maximumOrderAmount"`
	AmountCurrency     string     `json:"amountCurrency"`
	MaxUsageLimit      *int32     `json:"maxUsageLimit"`
	IsActive           *bool      `json:"isActive"`
	ExpirationDate     *time.Time `json:"expirationDate"`
}

// Create inserts a new coupon.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	params, err := buildCreateParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := h.Q.CreateCoupon(r.Context(), params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": couponBody(created)})
}

// Update mutates an existing coupon identified by code. The usage
// counter is not writable through this endpoint.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	code := CanonicalCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = code
	params, err := buildCreateParams(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	updated, err := h.Q.UpdateCoupon(r.Context(), db.UpdateCouponParams(params))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": couponBody(updated)})
}

// Get returns a single coupon by code.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon queries not configured", nil)
		return
	}
	code := CanonicalCode(chi.URLParam(r, "code"))
	row, err := h.Q.GetCouponByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": couponBody(row)})
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_CODE", err.Error(), nil)
	case errors.Is(err, ErrInactive):
		common.JSONError(w, http.StatusUnprocessableEntity, "INACTIVE", err.Error(), nil)
	case errors.Is(err, ErrExpired):
		common.JSONError(w, http.StatusUnprocessableEntity, "EXPIRED", err.Error(), nil)
	case errors.Is(err, ErrUsageLimitReached), errors.Is(err, ErrPerUserLimitReached):
		common.JSONError(w, http.StatusUnprocessableEntity, "USAGE_LIMIT_EXCEEDED", err.Error(), nil)
	case errors.Is(err, ErrMinimumNotMet):
		common.JSONError(w, http.StatusUnprocessableEntity, "BELOW_MINIMUM", err.Error(), nil)
	case errors.Is(err, ErrMaximumExceeded):
		common.JSONError(w, http.StatusUnprocessableEntity, "ABOVE_MAXIMUM", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func buildCreateParams(payload couponPayload) (db.CreateCouponParams, error) {
	code := CanonicalCode(payload.Code)
	if code == "" {
		return db.CreateCouponParams{}, errors.New("code is required")
	}
	switch payload.DiscountType {
	case TypePercentage, TypeFixedAmount:
	default:
		return db.CreateCouponParams{}, errors.New("discountType must be percentage or fixed_amount")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(payload.DiscountValue))
	if err != nil || !value.IsPositive() {
		return db.CreateCouponParams{}, errors.New("discountValue must be a positive amount")
	}
	if payload.DiscountType == TypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return db.CreateCouponParams{}, errors.New("percentage discount cannot exceed 100")
	}
	currency := payload.AmountCurrency
	if currency == "" {
		currency = string(money.USD)
	}
	parsedCurrency, err := money.ParseCurrency(currency)
	if err != nil {
		return db.CreateCouponParams{}, err
	}
	minAmount, err := nullableAmount(payload.MinimumOrderAmount)
	if err != nil {
		return db.CreateCouponParams{}, errors.New("minimumOrderAmount must be a valid amount")
	}
	maxAmount, err := nullableAmount(payload.MaximumOrderAmount)
	if err != nil {
		return db.CreateCouponParams{}, errors.New("maximumOrderAmount must be a valid amount")
	}
	if minAmount.Valid && maxAmount.Valid && minAmount.Decimal.GreaterThan(maxAmount.Decimal) {
		return db.CreateCouponParams{}, errors.New("minimumOrderAmount cannot exceed maximumOrderAmount")
	}
	maxUsage := pgtype.Int4{}
	if payload.MaxUsageLimit != nil {
		if *payload.MaxUsageLimit <= 0 {
			return db.CreateCouponParams{}, errors.New("maxUsageLimit must be positive")
		}
		maxUsage = pgtype.Int4{Int32: *payload.MaxUsageLimit, Valid: true}
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	expires := pgtype.Timestamptz{}
	if payload.ExpirationDate != nil {
		expires = pgtype.Timestamptz{Time: *payload.ExpirationDate, Valid: true}
	}
	description := pgtype.Text{}
	if payload.Description != nil && strings.TrimSpace(*payload.Description) != "" {
		description = pgtype.Text{String: strings.TrimSpace(*payload.Description), Valid: true}
	}
	return db.CreateCouponParams{
		Code:               code,
		Description:        description,
		DiscountType:       payload.DiscountType,
		DiscountValue:      value,
		MinimumOrderAmount: minAmount,
		MaximumOrderAmount: maxAmount,
		AmountCurrency:     string(parsedCurrency),
		MaxUsageLimit:      maxUsage,
		IsActive:           active,
		ExpirationDate:     expires,
	}, nil
}

func nullableAmount(v *string) (decimal.NullDecimal, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*v))
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func couponBody(c db.Coupon) map[string]any {
	body := map[string]any{
		"code":           c.Code,
		"discountType":   c.DiscountType,
		"discountValue":  c.DiscountValue.StringFixed(2),
		"amountCurrency": c.AmountCurrency,
		"usageCount":     c.UsageCount,
		"isActive":       c.IsActive,
	}
	if c.Description.Valid {
		body["description"] = c.Description.String
	}
	if c.MinimumOrderAmount.Valid {
		body["minimumOrderAmount"] = c.MinimumOrderAmount.Decimal.StringFixed(2)
	}
	if c.MaximumOrderAmount.Valid {
		body["maximumOrderAmount"] = c.MaximumOrderAmount.Decimal.StringFixed(2)
	}
	if c.MaxUsageLimit.Valid {
		body["maxUsageLimit"] = c.MaxUsageLimit.Int32
	}
	if c.ExpirationDate.Valid {
		body["expirationDate"] = c.ExpirationDate.Time
	}
	return body
}
