package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
	"github.com/cartmax/backend-store/internal/obs"
)

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (db.Coupon, error)
	CountCouponUsageByUser(ctx context.Context, arg db.CountCouponUsageByUserParams) (int64, error)
}

// PreviewResult describes the outcome of evaluating a coupon without
// mutating state. Discount is denominated in the cart currency.
type PreviewResult struct {
	Code     string
	Discount money.Money
	Coupon   Coupon
}

// Service evaluates coupons against cart subtotals. Preview never
// consumes quota; settlement happens through a Ledger inside the
// checkout transaction.
type Service struct {
	Q          Querier
	Validator  Validator
	Calculator Calculator
	Now        func() time.Time
}

// Preview performs a dry-run evaluation of the code for the given
// subtotal. The returned discount already reflects clamping and
// rounding, so callers can display it verbatim.
func (s *Service) Preview(ctx context.Context, code string, userID pgtype.UUID, subtotal money.Money) (PreviewResult, error) {
	if s == nil || s.Q == nil {
		return PreviewResult{}, errors.New("coupon service not configured")
	}
	canonical := CanonicalCode(code)
	if canonical == "" {
		return PreviewResult{}, fmt.Errorf("code is required: %w", ErrNotFound)
	}
	row, err := s.Q.GetCouponByCode(ctx, canonical)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PreviewResult{}, fmt.Errorf("coupon %s: %w", canonical, ErrNotFound)
		}
		return PreviewResult{}, fmt.Errorf("load coupon %s: %w", canonical, err)
	}
	c, err := FromModel(row)
	if err != nil {
		return PreviewResult{}, err
	}

	var perUserUsed int64
	if s.Validator.PerUserLimitEnabled && userID.Valid {
		perUserUsed, err = s.Q.CountCouponUsageByUser(ctx, db.CountCouponUsageByUserParams{CouponID: c.ID, UserID: userID})
		if err != nil {
			return PreviewResult{}, fmt.Errorf("count coupon usage: %w", err)
		}
	}

	if err := s.Validator.Validate(c, subtotal, s.now(), perUserUsed); err != nil {
		countValidation("rejected")
		return PreviewResult{}, err
	}
	discount, err := s.Calculator.Compute(c, subtotal)
	if err != nil {
		return PreviewResult{}, err
	}
	countValidation("ok")
	return PreviewResult{Code: c.Code, Discount: discount, Coupon: c}, nil
}

// countValidation is a no-op until the domain collectors are registered.
func countValidation(result string) {
	if obs.CouponValidationTotal != nil {
		obs.CouponValidationTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
