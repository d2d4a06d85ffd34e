package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

type stubQuerier struct {
	coupons   map[string]db.Coupon
	userUsage int64
}

func (s *stubQuerier) GetCouponByCode(_ context.Context, code string) (db.Coupon, error) {
	c, ok := s.coupons[code]
	if !ok {
		return db.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (s *stubQuerier) CountCouponUsageByUser(_ context.Context, _ db.CountCouponUsageByUserParams) (int64, error) {
	return s.userUsage, nil
}

func newService(q Querier) *Service {
	conv := money.NewConverter(money.DefaultUSDToINR)
	return &Service{
		Q:          q,
		Validator:  Validator{Converter: &conv},
		Calculator: Calculator{Converter: &conv},
		Now:        func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestPreviewPercentage(t *testing.T) {
	q := &stubQuerier{coupons: map[string]db.Coupon{
		"SAVE10": {
			Code:           "SAVE10",
			DiscountType:   TypePercentage,
			DiscountValue:  decimal.NewFromInt(10),
			AmountCurrency: string(money.USD),
			IsActive:       true,
		},
	}}
	got, err := newService(q).Preview(context.Background(), "  save10 ", pgtype.UUID{}, usd(t, "100"))
	require.NoError(t, err)
	require.Equal(t, "SAVE10", got.Code)
	require.Equal(t, "10.00 USD", got.Discount.String())
}

func TestPreviewUnknownCode(t *testing.T) {
	q := &stubQuerier{coupons: map[string]db.Coupon{}}
	_, err := newService(q).Preview(context.Background(), "NOPE", pgtype.UUID{}, usd(t, "100"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPreviewEmptyCode(t *testing.T) {
	q := &stubQuerier{coupons: map[string]db.Coupon{}}
	_, err := newService(q).Preview(context.Background(), "   ", pgtype.UUID{}, usd(t, "100"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPreviewExpired(t *testing.T) {
	past := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	q := &stubQuerier{coupons: map[string]db.Coupon{
		"OLD": {
			Code:           "OLD",
			DiscountType:   TypePercentage,
			DiscountValue:  decimal.NewFromInt(10),
			AmountCurrency: string(money.USD),
			IsActive:       true,
			ExpirationDate: pgtype.Timestamptz{Time: past, Valid: true},
		},
	}}
	_, err := newService(q).Preview(context.Background(), "OLD", pgtype.UUID{}, usd(t, "100"))
	require.ErrorIs(t, err, ErrExpired)
}

func TestPreviewDoesNotCountUsageWhenLimitDisabled(t *testing.T) {
	q := &stubQuerier{
		coupons: map[string]db.Coupon{
			"SAVE10": {
				Code:           "SAVE10",
				DiscountType:   TypePercentage,
				DiscountValue:  decimal.NewFromInt(10),
				AmountCurrency: string(money.USD),
				IsActive:       true,
			},
		},
		userUsage: 99,
	}
	userID := pgtype.UUID{Bytes: [16]byte{1}, Valid: true}
	got, err := newService(q).Preview(context.Background(), "SAVE10", userID, usd(t, "100"))
	require.NoError(t, err)
	require.Equal(t, "10.00 USD", got.Discount.String())
}
