package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cartmax/backend-store/internal/cart"
	"github.com/cartmax/backend-store/internal/common"
)

// Handler wires the checkout service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type checkoutRequest struct {
	CartID  string `json:"cartId" validate:"required,uuid4"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address Addr   `json:"address"`
}

// Checkout places an order from the caller's cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	out, err := h.Svc.Create(r.Context(), userID, Input{
		CartID:  payload.CartID,
		Email:   payload.Email,
		Address: payload.Address,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	body := map[string]any{
		"orderId": out.OrderID,
		"status":  out.Status,
		"pricing": map[string]any{
			"subtotal": out.Summary.Subtotal.Amount.StringFixed(2),
			"discount": out.Summary.Discount.Amount.StringFixed(2),
			"tax":      out.Summary.Tax.Amount.StringFixed(2),
			"shipping": out.Summary.Shipping.Amount.StringFixed(2),
			"total":    out.Summary.Total.Amount.StringFixed(2),
			"currency": string(out.Summary.Total.Currency),
		},
	}
	if out.CouponCode != "" {
		body["coupon"] = out.CouponCode
	}
	if out.CouponNote != "" {
		body["couponNote"] = out.CouponNote
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": body})
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
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrCartNotOwned):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, cart.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
