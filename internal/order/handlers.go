package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/cartmax/backend-store/internal/cart"
	"github.com/cartmax/backend-store/internal/common"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

// Handler exposes read access to committed orders.
type Handler struct {
	Q *db.Queries
}

// List returns the caller's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	offset := int32((page - 1) * perPage)
	uID, err := cart.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	total, err := h.Q.CountOrdersForUser(r.Context(), uID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Q.ListOrdersForUser(r.Context(), db.ListOrdersForUserParams{UserID: uID, Limit: int32(perPage), Offset: offset})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, ord := range orders {
		response = append(response, orderSummary(ord))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns one order with its frozen line items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order queries not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	oID, err := cart.ToUUID(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	uID, err := cart.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	ord, err := h.Q.GetOrderByID(r.Context(), oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if !ord.UserID.Valid || ord.UserID.Bytes != uID.Bytes {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	items, err := h.Q.ListOrderItems(r.Context(), ord.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	currency, _ := money.ParseCurrency(ord.Currency)
	responseItems := make([]map[string]any, 0, len(items))
	for _, it := range items {
		line := map[string]any{
			"id":        cart.UUIDString(it.ID),
			"productId": cart.UUIDString(it.ProductID),
			"title":     it.Title,
			"slug":      it.Slug,
			"qty":       it.Qty,
		}
		snap := it.UnitPriceUSD
		if currency == money.INR {
			snap = it.UnitPriceINR
		}
		if snap.Valid {
			line["unitPrice"] = snap.Decimal.StringFixed(2)
		}
		responseItems = append(responseItems, line)
	}
	body := orderSummary(ord)
	body["items"] = responseItems
	body["shippingAddress"] = jsonValue(ord.ShippingAddress)
	common.JSON(w, http.StatusOK, map[string]any{"data": body})
}

func orderSummary(ord db.Order) map[string]any {
	body := map[string]any{
		"id":        cart.UUIDString(ord.ID),
		"status":    ord.Status,
		"subtotal":  ord.OriginalSubtotal.StringFixed(2),
		"discount":  ord.DiscountAmount.StringFixed(2),
		"tax":       ord.TaxAmount.StringFixed(2),
		"shipping":  ord.ShippingAmount.StringFixed(2),
		"total":     ord.Total.StringFixed(2),
		"currency":  ord.Currency,
		"createdAt": ord.CreatedAt,
	}
	if ord.AppliedCouponCode.Valid {
		body["coupon"] = ord.AppliedCouponCode.String
	}
	return body
}

func jsonValue(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return json.RawMessage(clone)
}
