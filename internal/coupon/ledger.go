package coupon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/db"
)

// LedgerQuerier captures the database methods the postgres ledger needs.
type LedgerQuerier interface {
	GetCouponByCodeForUpdate(ctx context.Context, code string) (db.Coupon, error)
	IncrementCouponUsage(ctx context.Context, id pgtype.UUID) error
	InsertCouponUsage(ctx context.Context, arg db.InsertCouponUsageParams) error
}

// Redemption records one committed coupon use.
type Redemption struct {
	Code    string
	OrderID pgtype.UUID
	UserID  pgtype.UUID
	Amount  decimal.Decimal
}

// Ledger atomically consumes one unit of a coupon's usage quota.
//
// Redeem re-reads the coupon under the caller's concurrency regime,
// re-checks the quota against the fresh counter, and increments it.
// A caller that loses the race gets ErrUsageLimitReached and must fall
// back to a couponless order rather than fail the checkout.
type Ledger interface {
	Redeem(ctx context.Context, r Redemption, now time.Time) (Coupon, error)
}

// PgLedger redeems against postgres. It must run on a Queries bound to
// an open transaction: the FOR UPDATE lock serialises concurrent
// redemptions of the same code, so exactly max_usage_limit of them can
// ever pass the quota re-check.
type PgLedger struct {
	Q LedgerQuerier
}

// Redeem locks the coupon row, re-checks the quota, and increments the
// counter. The increment becomes visible when the enclosing transaction
// commits.
func (l PgLedger) Redeem(ctx context.Context, r Redemption, now time.Time) (Coupon, error) {
	if l.Q == nil {
		return Coupon{}, errors.New("coupon ledger not configured")
	}
	row, err := l.Q.GetCouponByCodeForUpdate(ctx, r.Code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, fmt.Errorf("coupon %s: %w", r.Code, ErrNotFound)
		}
		return Coupon{}, fmt.Errorf("lock coupon %s: %w", r.Code, err)
	}
	c, err := FromModel(row)
	if err != nil {
		return Coupon{}, err
	}
	if !c.IsActive {
		return Coupon{}, fmt.Errorf("coupon %s: %w", c.Code, ErrInactive)
	}
	if c.Expired(now) {
		return Coupon{}, fmt.Errorf("coupon %s: %w", c.Code, ErrExpired)
	}
	if c.UsageExhausted() {
		return Coupon{}, fmt.Errorf("coupon %s: %w", c.Code, ErrUsageLimitReached)
	}
	if err := l.Q.IncrementCouponUsage(ctx, c.ID); err != nil {
		return Coupon{}, fmt.Errorf("increment coupon usage: %w", err)
	}
	if err := l.Q.InsertCouponUsage(ctx, db.InsertCouponUsageParams{
		CouponID: c.ID,
		OrderID:  r.OrderID,
		UserID:   r.UserID,
		Amount:   r.Amount,
	}); err != nil {
		return Coupon{}, fmt.Errorf("record coupon usage: %w", err)
	}
	c.UsageCount++
	return c, nil
}

// MemoryLedger is an in-process Ledger for tests and local runs. A
// mutex stands in for the row lock.
type MemoryLedger struct {
	mu      sync.Mutex
	coupons map[string]*Coupon
	uses    []Redemption
}

// NewMemoryLedger seeds an in-memory ledger with the given coupons.
func NewMemoryLedger(coupons ...Coupon) *MemoryLedger {
	m := &MemoryLedger{coupons: make(map[string]*Coupon, len(coupons))}
	for i := range coupons {
		c := coupons[i]
		m.coupons[c.Code] = &c
	}
	return m
}

// Redeem consumes one usage unit under the ledger mutex.
func (m *MemoryLedger) Redeem(_ context.Context, r Redemption, now time.Time) (Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[r.Code]
	if !ok {
		return Coupon{}, fmt.Errorf("coupon %s: %w", r.Code, ErrNotFound)
	}
	if !c.IsActive {
		return Coupon{}, fmt.Errorf("coupon %s: %w", c.Code, ErrInactive)
	}
	if c.Expired(now) {
		return Coupon{}, fmt.Errorf("coupon %s: %w", c.Code, ErrExpired)
	}
	if c.UsageExhausted() {
		return Coupon{}, fmt.Errorf("coupon %s: %w", c.Code, ErrUsageLimitReached)
	}
	c.UsageCount++
	m.uses = append(m.uses, r)
	return *c, nil
}

// Usages returns a copy of the recorded redemptions.
func (m *MemoryLedger) Usages() []Redemption {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Redemption, len(m.uses))
	copy(out, m.uses)
	return out
}
