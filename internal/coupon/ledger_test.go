package coupon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

type stubLedgerQuerier struct {
	coupon     db.Coupon
	getErr     error
	increments int
	usages     []db.InsertCouponUsageParams
}

func (s *stubLedgerQuerier) GetCouponByCodeForUpdate(_ context.Context, _ string) (db.Coupon, error) {
	if s.getErr != nil {
		return db.Coupon{}, s.getErr
	}
	return s.coupon, nil
}

func (s *stubLedgerQuerier) IncrementCouponUsage(_ context.Context, _ pgtype.UUID) error {
	s.increments++
	return nil
}

func (s *stubLedgerQuerier) InsertCouponUsage(_ context.Context, arg db.InsertCouponUsageParams) error {
	s.usages = append(s.usages, arg)
	return nil
}

func TestPgLedgerRedeem(t *testing.T) {
	q := &stubLedgerQuerier{coupon: db.Coupon{
		Code:           "SAVE10",
		DiscountType:   TypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		AmountCurrency: string(money.USD),
		MaxUsageLimit:  pgtype.Int4{Int32: 3, Valid: true},
		UsageCount:     2,
		IsActive:       true,
	}}
	got, err := PgLedger{Q: q}.Redeem(context.Background(), Redemption{
		Code:   "SAVE10",
		Amount: decimal.NewFromInt(10),
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, int32(3), got.UsageCount)
	require.Equal(t, 1, q.increments)
	require.Len(t, q.usages, 1)
}

func TestPgLedgerRedeemExhausted(t *testing.T) {
	q := &stubLedgerQuerier{coupon: db.Coupon{
		Code:           "SAVE10",
		DiscountType:   TypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		AmountCurrency: string(money.USD),
		MaxUsageLimit:  pgtype.Int4{Int32: 3, Valid: true},
		UsageCount:     3,
		IsActive:       true,
	}}
	_, err := PgLedger{Q: q}.Redeem(context.Background(), Redemption{Code: "SAVE10"}, time.Now())
	require.ErrorIs(t, err, ErrUsageLimitReached)
	require.Zero(t, q.increments)
}

func TestPgLedgerRedeemUnknownCode(t *testing.T) {
	q := &stubLedgerQuerier{getErr: pgx.ErrNoRows}
	_, err := PgLedger{Q: q}.Redeem(context.Background(), Redemption{Code: "NOPE"}, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLedgerExactlyQuotaWinners(t *testing.T) {
	const quota, contenders = 3, 20
	limit := int32(quota)
	ledger := NewMemoryLedger(Coupon{
		Code:           "LIMITED",
		Type:           TypeFixedAmount,
		Value:          decimal.NewFromInt(5),
		AmountCurrency: money.USD,
		MaxUsageLimit:  &limit,
		IsActive:       true,
	})

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Redeem(context.Background(), Redemption{
				Code:   "LIMITED",
				Amount: decimal.NewFromInt(5),
			}, time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrUsageLimitReached):
			lost++
		default:
			t.Fatalf("unexpected redeem error: %v", err)
		}
	}
	require.Equal(t, quota, won)
	require.Equal(t, contenders-quota, lost)
	require.Len(t, ledger.Usages(), quota)
}
