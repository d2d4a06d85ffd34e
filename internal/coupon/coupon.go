package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

// Discount kinds stored in the coupons table.
const (
	TypePercentage  = "percentage"
	TypeFixedAmount = "fixed_amount"
)

var (
	// ErrNotFound is returned when no coupon exists for the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been disabled.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned when the coupon expiration date has passed.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached indicates the coupon has exhausted its global usage quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached indicates the caller has exceeded the per-user allowance.
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
	// ErrMinimumNotMet indicates the cart subtotal is below the coupon threshold.
	ErrMinimumNotMet = errors.New("coupon minimum order amount not met")
	// ErrMaximumExceeded indicates the cart subtotal is above the coupon ceiling.
	ErrMaximumExceeded = errors.New("coupon maximum order amount exceeded")
	// ErrInvalidType is returned for discount types the engine does not recognise.
	ErrInvalidType = errors.New("unknown coupon discount type")
)

// CanonicalCode normalises user-supplied coupon codes before lookup.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Coupon is the evaluated form of a coupons row. Thresholds carry the
// currency they were authored in; the validator converts them to the
// cart currency at evaluation time.
type Coupon struct {
	ID             pgtype.UUID
	Code           string
	Type           string
	Value          decimal.Decimal
	MinOrderAmount *money.Money
	MaxOrderAmount *money.Money
	AmountCurrency money.Currency
	MaxUsageLimit  *int32
	UsageCount     int32
	IsActive       bool
	ExpiresAt      *time.Time
}

// FromModel converts a coupons row into an evaluable Coupon.
func FromModel(row db.Coupon) (Coupon, error) {
	cur, err := money.ParseCurrency(row.AmountCurrency)
	if err != nil {
		return Coupon{}, fmt.Errorf("coupon %s: %w", row.Code, err)
	}
	c := Coupon{
		ID:             row.ID,
		Code:           row.Code,
		Type:           row.DiscountType,
		Value:          row.DiscountValue,
		AmountCurrency: cur,
		UsageCount:     row.UsageCount,
		IsActive:       row.IsActive,
	}
	if row.MinimumOrderAmount.Valid {
		m := money.New(row.MinimumOrderAmount.Decimal, cur)
		c.MinOrderAmount = &m
	}
	if row.MaximumOrderAmount.Valid {
		m := money.New(row.MaximumOrderAmount.Decimal, cur)
		c.MaxOrderAmount = &m
	}
	if row.MaxUsageLimit.Valid {
		limit := row.MaxUsageLimit.Int32
		c.MaxUsageLimit = &limit
	}
	if row.ExpirationDate.Valid {
		t := row.ExpirationDate.Time
		c.ExpiresAt = &t
	}
	return c, nil
}

// Expired reports whether the coupon expiration date is in the past.
func (c Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// UsageExhausted reports whether the global usage quota has been consumed.
func (c Coupon) UsageExhausted() bool {
	return c.MaxUsageLimit != nil && c.UsageCount >= *c.MaxUsageLimit
}
