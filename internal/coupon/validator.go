package coupon

import (
	"fmt"
	"time"

	"github.com/cartmax/backend-store/internal/money"
)

// Validator checks coupon eligibility against a cart subtotal. It is
// pure: callers load the coupon row and usage counters first.
//
// Checks short-circuit in a fixed order so a coupon that is both
// inactive and expired always reports inactive first: active flag,
// expiration, global usage quota, per-user quota, minimum threshold,
// maximum threshold.
type Validator struct {
	Converter           *money.Converter
	PerUserLimitEnabled bool
	DefaultPerUserLimit int
}

// Validate reports the first failed eligibility check, or nil when the
// coupon can be applied to the subtotal. Threshold errors carry the
// limit converted into the cart currency.
func (v Validator) Validate(c Coupon, subtotal money.Money, now time.Time, perUserUsed int64) error {
	if !c.IsActive {
		return fmt.Errorf("coupon %s: %w", c.Code, ErrInactive)
	}
	if c.Expired(now) {
		return fmt.Errorf("coupon %s: %w", c.Code, ErrExpired)
	}
	if c.UsageExhausted() {
		return fmt.Errorf("coupon %s: %w", c.Code, ErrUsageLimitReached)
	}
	if limit := v.perUserLimit(c); limit > 0 && perUserUsed >= int64(limit) {
		return fmt.Errorf("coupon %s: %w", c.Code, ErrPerUserLimitReached)
	}
	if c.MinOrderAmount != nil {
		floor, err := v.convert(*c.MinOrderAmount, subtotal.Currency)
		if err != nil {
			return err
		}
		cmp, err := subtotal.Cmp(floor)
		if err != nil {
			return err
		}
		if cmp < 0 {
			return fmt.Errorf("order total must be at least %s: %w", floor.Display(), ErrMinimumNotMet)
		}
	}
	if c.MaxOrderAmount != nil {
		ceiling, err := v.convert(*c.MaxOrderAmount, subtotal.Currency)
		if err != nil {
			return err
		}
		cmp, err := subtotal.Cmp(ceiling)
		if err != nil {
			return err
		}
		if cmp > 0 {
			return fmt.Errorf("order total must not exceed %s: %w", ceiling.Display(), ErrMaximumExceeded)
		}
	}
	return nil
}

func (v Validator) perUserLimit(c Coupon) int32 {
	if !v.PerUserLimitEnabled {
		return 0
	}
	if v.DefaultPerUserLimit > 0 {
		return int32(v.DefaultPerUserLimit)
	}
	return 0
}

func (v Validator) convert(m money.Money, to money.Currency) (money.Money, error) {
	if v.Converter == nil {
		if m.Currency != to {
			return money.Money{}, money.ErrCurrencyMismatch
		}
		return m, nil
	}
	return v.Converter.Convert(m, to)
}
