package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cartmax/backend-store/internal/common"
	"github.com/cartmax/backend-store/internal/coupon"
	"github.com/cartmax/backend-store/internal/money"
	"github.com/cartmax/backend-store/internal/pricing"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc *Service
}

// Create creates or returns a cart for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		AnonID   string `json:"anonId"`
		Currency string `json:"currency"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	currency := money.USD
	if strings.TrimSpace(payload.Currency) != "" {
		parsed, err := money.ParseCurrency(payload.Currency)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported currency", nil)
			return
		}
		currency = parsed
	}
	var userID *string
	if uID, ok := common.UserID(r.Context()); ok && strings.TrimSpace(uID) != "" {
		userID = &uID
	}
	anonID := strings.TrimSpace(payload.AnonID)
	if userID == nil && anonID == "" {
		anonID = uuid.NewString()
	}
	var anonPtr *string
	if anonID != "" {
		anonPtr = &anonID
	}
	cart, err := h.Svc.EnsureCart(r.Context(), userID, anonPtr, currency)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"cartId":   UUIDString(cart.ID),
			"anonId":   nullableText(cart.AnonID),
			"currency": cart.Currency,
			"coupon":   nullableText(cart.AppliedCouponCode),
		},
	})
}

// Get returns cart contents with recomputed totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	view, err := h.Svc.Totals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewBody(view)})
}

// AddItem adds or increments a cart line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload struct {
		ProductID string `json:"productId"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.ProductID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "productId is required", nil)
		return
	}
	if payload.Qty <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must be positive", nil)
		return
	}
	if err := h.Svc.AddItem(r.Context(), cartID, payload.ProductID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// UpdateItem updates the quantity for a cart line item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Qty <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must be positive", nil)
		return
	}
	if err := h.Svc.UpdateQty(r.Context(), chi.URLParam(r, "itemId"), payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// RemoveItem deletes a cart line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId")); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// ClearItems empties the cart.
func (h *Handler) ClearItems(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	if err := h.Svc.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// SetCurrency switches the cart display currency.
func (h *Handler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	currency, err := money.ParseCurrency(payload.Currency)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported currency", nil)
		return
	}
	if _, err := h.Svc.SetCurrency(r.Context(), chi.URLParam(r, "id"), currency); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// ApplyCoupon validates and attaches a coupon to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	preview, err := h.Svc.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"code":     preview.Code,
			"discount": preview.Discount.Amount.StringFixed(2),
			"currency": string(preview.Discount.Currency),
		},
	})
}

// RemoveCoupon clears the applied coupon from the cart.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	if err := h.Svc.RemoveCoupon(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"coupon": nil}})
}

func viewBody(view View) map[string]any {
	items := make([]map[string]any, 0, len(view.Items))
	currency, _ := money.ParseCurrency(view.Cart.Currency)
	for _, it := range view.Items {
		line := map[string]any{
			"id":        UUIDString(it.ID),
			"productId": UUIDString(it.ProductID),
			"title":     it.Title,
			"slug":      it.Slug,
			"qty":       it.Qty,
		}
		if price, err := unitPrice(it, currency); err == nil {
			line["unitPrice"] = price.Amount.StringFixed(2)
			line["subtotal"] = price.MulInt(int64(it.Qty)).Round().Amount.StringFixed(2)
		}
		items = append(items, line)
	}
	body := map[string]any{
		"id":       UUIDString(view.Cart.ID),
		"anonId":   nullableText(view.Cart.AnonID),
		"currency": view.Cart.Currency,
		"coupon":   nullableText(view.Cart.AppliedCouponCode),
		"items":    items,
		"pricing":  summaryBody(view.Summary),
	}
	if view.CouponNote != "" {
		body["couponNote"] = view.CouponNote
	}
	return body
}

func summaryBody(s pricing.Summary) map[string]any {
	return map[string]any{
		"subtotal": s.Subtotal.Amount.StringFixed(2),
		"discount": s.Discount.Amount.StringFixed(2),
		"tax":      s.Tax.Amount.StringFixed(2),
		"shipping": s.Shipping.Amount.StringFixed(2),
		"total":    s.Total.Amount.StringFixed(2),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_CODE", err.Error(), nil)
	case errors.Is(err, coupon.ErrInactive):
		common.JSONError(w, http.StatusUnprocessableEntity, "INACTIVE", err.Error(), nil)
	case errors.Is(err, coupon.ErrExpired):
		common.JSONError(w, http.StatusUnprocessableEntity, "EXPIRED", err.Error(), nil)
	case errors.Is(err, coupon.ErrUsageLimitReached), errors.Is(err, coupon.ErrPerUserLimitReached):
		common.JSONError(w, http.StatusUnprocessableEntity, "USAGE_LIMIT_EXCEEDED", err.Error(), nil)
	case errors.Is(err, coupon.ErrMinimumNotMet):
		common.JSONError(w, http.StatusUnprocessableEntity, "BELOW_MINIMUM", err.Error(), nil)
	case errors.Is(err, coupon.ErrMaximumExceeded):
		common.JSONError(w, http.StatusUnprocessableEntity, "ABOVE_MAXIMUM", err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, money.ErrUnknownCurrency):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, money.ErrCurrencyMismatch):
		common.JSONError(w, http.StatusInternalServerError, "CURRENCY_MISMATCH", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func nullableText(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
