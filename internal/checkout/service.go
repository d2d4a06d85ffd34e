package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/cart"
	"github.com/cartmax/backend-store/internal/coupon"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/events"
	"github.com/cartmax/backend-store/internal/jobs"
	"github.com/cartmax/backend-store/internal/lock"
	"github.com/cartmax/backend-store/internal/money"
	"github.com/cartmax/backend-store/internal/obs"
	"github.com/cartmax/backend-store/internal/pricing"
)

// ErrEmptyCart is returned when checking out a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrCartNotOwned is returned when the cart belongs to a different user.
var ErrCartNotOwned = errors.New("cart does not belong to user")

// Addr is the shipping address frozen onto the order.
type Addr struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	Country      string `json:"country"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
}

// Input is the checkout request.
type Input struct {
	CartID  string `json:"cartId"`
	Email   string `json:"email"`
	Address Addr   `json:"address"`
}

// Output is the committed order snapshot returned to the caller.
type Output struct {
	OrderID    string
	Status     string
	Summary    pricing.Summary
	CouponCode string
	CouponNote string
}

// Service turns a cart into an order inside a single transaction:
// revalidate the applied coupon under a row lock, consume its quota,
// freeze the pricing snapshot, and clear the cart. A coupon that lost
// the usage race degrades the checkout to a couponless order with a
// note instead of failing it.
type Service struct {
	Q            *db.Queries
	Pool         *pgxpool.Pool
	Coupons      *coupon.Service
	Locker       lock.Locker
	Events       *events.Bus
	Jobs         jobs.Enqueuer
	Log          zerolog.Logger
	TaxBps       int64
	ShippingFlat decimal.Decimal
	LockTTL      time.Duration
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create places the order. userID is required; carts owned by another
// user are rejected.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Q == nil || s.Pool == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if userID == "" {
		return Output{}, errors.New("user is required for checkout")
	}
	if in.CartID == "" {
		return Output{}, fmt.Errorf("cartId is required: %w", cart.ErrInvalidInput)
	}
	cID, err := cart.ToUUID(in.CartID)
	if err != nil {
		return Output{}, fmt.Errorf("invalid cart id: %w", cart.ErrInvalidInput)
	}
	uID, err := cart.ToUUID(userID)
	if err != nil {
		return Output{}, fmt.Errorf("invalid user id: %w", cart.ErrInvalidInput)
	}

	// Peek at the applied code so concurrent checkouts of the same
	// coupon queue on one redis lock instead of piling up on the row
	// lock inside their transactions.
	peek, err := s.Q.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Output{}, cart.ErrNotFound
		}
		return Output{}, err
	}

	started := s.now()
	var out Output
	var orderedItems []db.CartItem
	run := func(ctx context.Context) error {
		var runErr error
		out, orderedItems, runErr = s.createTx(ctx, uID, cID, in)
		return runErr
	}
	if peek.AppliedCouponCode.Valid && peek.AppliedCouponCode.String != "" && s.Locker.R != nil {
		key := "lock:coupon:" + coupon.CanonicalCode(peek.AppliedCouponCode.String)
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = 10 * time.Second
		}
		err = s.Locker.WithLock(ctx, key, ttl, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		recordCheckout("error", out, started, s.now())
		return Output{}, err
	}
	recordCheckout("ok", out, started, s.now())
	s.afterCommit(ctx, uID, in, out, orderedItems)
	return out, nil
}

// recordCheckout feeds the domain counters. All collectors are nil until
// obs.MustRegisterDomainMetrics runs, which tests skip.
func recordCheckout(result string, out Output, started, finished time.Time) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
	if obs.CheckoutLatency != nil {
		obs.CheckoutLatency.Observe(float64(finished.Sub(started).Milliseconds()))
	}
	if result != "ok" {
		return
	}
	if out.CouponNote != "" && obs.CouponRaceLostTotal != nil {
		obs.CouponRaceLostTotal.Inc()
	}
}

func (s *Service) createTx(ctx context.Context, uID, cID pgtype.UUID, in Input) (Output, []db.CartItem, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)

	cartRow, err := qtx.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Output{}, nil, cart.ErrNotFound
		}
		return Output{}, nil, err
	}
	if cartRow.UserID.Valid && cartRow.UserID.Bytes != uID.Bytes {
		return Output{}, nil, ErrCartNotOwned
	}
	currency, err := money.ParseCurrency(cartRow.Currency)
	if err != nil {
		return Output{}, nil, err
	}
	items, err := qtx.ListCartItems(ctx, cID)
	if err != nil {
		return Output{}, nil, err
	}
	if len(items) == 0 {
		return Output{}, nil, ErrEmptyCart
	}
	lines, subtotal, err := priceLines(items, currency)
	if err != nil {
		return Output{}, nil, err
	}

	// Revalidate the coupon with its row locked. The lock holds until
	// commit, so the quota check cannot be invalidated by a concurrent
	// checkout. Any validation failure degrades to a couponless order.
	discount := money.Zero(currency)
	var applied coupon.Coupon
	var couponNote string
	haveCoupon := false
	if cartRow.AppliedCouponCode.Valid && cartRow.AppliedCouponCode.String != "" {
		code := coupon.CanonicalCode(cartRow.AppliedCouponCode.String)
		c, d, reason, err := s.reserveCoupon(ctx, qtx, code, cartRow.UserID, subtotal)
		if err != nil {
			return Output{}, nil, err
		}
		if reason != "" {
			couponNote = fmt.Sprintf("coupon %s was not applied: %s", code, reason)
		} else {
			applied, discount, haveCoupon = c, d, true
		}
	}

	summary, err := pricing.Compute(currency, lines, discount, s.TaxBps, money.New(s.ShippingFlat, currency))
	if err != nil {
		return Output{}, nil, err
	}

	appliedCode := pgtype.Text{}
	if haveCoupon {
		appliedCode = pgtype.Text{String: applied.Code, Valid: true}
	}
	order, err := qtx.CreateOrder(ctx, db.CreateOrderParams{
		UserID:            uID,
		Status:            "confirmed",
		Currency:          string(currency),
		OriginalSubtotal:  summary.Subtotal.Amount,
		DiscountAmount:    summary.Discount.Amount,
		TaxAmount:         summary.Tax.Amount,
		ShippingAmount:    summary.Shipping.Amount,
		Total:             summary.Total.Amount,
		AppliedCouponCode: appliedCode,
		ShippingAddress:   toJSON(in.Address),
	})
	if err != nil {
		return Output{}, nil, err
	}

	if haveCoupon {
		ledger := coupon.PgLedger{Q: qtx}
		if _, err := ledger.Redeem(ctx, coupon.Redemption{
			Code:    applied.Code,
			OrderID: order.ID,
			UserID:  cartRow.UserID,
			Amount:  summary.Discount.Amount,
		}, s.now()); err != nil {
			return Output{}, nil, fmt.Errorf("redeem coupon: %w", err)
		}
		if obs.CouponRedemptionTotal != nil {
			obs.CouponRedemptionTotal.WithLabelValues(applied.Type).Inc()
		}
	}

	for _, it := range items {
		if err := qtx.CreateOrderItem(ctx, db.CreateOrderItemParams{
			OrderID:      order.ID,
			ProductID:    it.ProductID,
			Title:        it.Title,
			Slug:         it.Slug,
			Qty:          it.Qty,
			UnitPriceUSD: it.UnitPriceUSD,
			UnitPriceINR: it.UnitPriceINR,
		}); err != nil {
			return Output{}, nil, err
		}
	}

	if err := qtx.ClearCartItems(ctx, cID); err != nil {
		return Output{}, nil, err
	}
	if err := qtx.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: cID, AppliedCouponCode: pgtype.Text{}, DiscountAmount: decimal.Zero}); err != nil {
		return Output{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Output{}, nil, err
	}

	out := Output{
		OrderID:    cart.UUIDString(order.ID),
		Status:     order.Status,
		Summary:    summary,
		CouponNote: couponNote,
	}
	if haveCoupon {
		out.CouponCode = applied.Code
	}
	return out, items, nil
}

// couponTx is the slice of the transaction-bound query surface the
// coupon reservation needs.
type couponTx interface {
	GetCouponByCodeForUpdate(ctx context.Context, code string) (db.Coupon, error)
	CountCouponUsageByUser(ctx context.Context, arg db.CountCouponUsageByUserParams) (int64, error)
}

// reserveCoupon locks the coupon row and revalidates it against the
// checkout subtotal. A validation failure is not an error: it returns
// the human-readable reason so the checkout proceeds without the coupon.
func (s *Service) reserveCoupon(ctx context.Context, qtx couponTx, code string, userID pgtype.UUID, subtotal money.Money) (coupon.Coupon, money.Money, string, error) {
	row, err := qtx.GetCouponByCodeForUpdate(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Coupon{}, money.Money{}, "coupon no longer exists", nil
		}
		return coupon.Coupon{}, money.Money{}, "", err
	}
	c, err := coupon.FromModel(row)
	if err != nil {
		return coupon.Coupon{}, money.Money{}, "", err
	}
	validator := coupon.Validator{}
	calculator := coupon.Calculator{}
	if s.Coupons != nil {
		validator = s.Coupons.Validator
		calculator = s.Coupons.Calculator
	}
	var perUserUsed int64
	if validator.PerUserLimitEnabled && userID.Valid {
		perUserUsed, err = qtx.CountCouponUsageByUser(ctx, db.CountCouponUsageByUserParams{CouponID: c.ID, UserID: userID})
		if err != nil {
			return coupon.Coupon{}, money.Money{}, "", err
		}
	}
	if verr := validator.Validate(c, subtotal, s.now(), perUserUsed); verr != nil {
		return coupon.Coupon{}, money.Money{}, verr.Error(), nil
	}
	discount, err := calculator.Compute(c, subtotal)
	if err != nil {
		return coupon.Coupon{}, money.Money{}, "", err
	}
	return c, discount, "", nil
}

func (s *Service) afterCommit(ctx context.Context, uID pgtype.UUID, in Input, out Output, items []db.CartItem) {
	oID, err := cart.ToUUID(out.OrderID)
	if err != nil {
		return
	}
	if s.Events != nil {
		payload := map[string]any{
			"orderId":  out.OrderID,
			"userId":   cart.UUIDString(uID),
			"total":    out.Summary.Total.Amount.StringFixed(2),
			"currency": string(out.Summary.Total.Currency),
		}
		if in.Email != "" {
			payload["email"] = in.Email
		}
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, oID, payload); err != nil {
			s.Log.Warn().Err(err).Str("order_id", out.OrderID).Msg("emit order.created")
		}
		if out.CouponCode != "" {
			_, _ = s.Events.Emit(ctx, events.TopicCouponRedeemed, oID, map[string]any{
				"orderId":  out.OrderID,
				"code":     out.CouponCode,
				"discount": out.Summary.Discount.Amount.StringFixed(2),
			})
		}
		if out.CouponNote != "" {
			_, _ = s.Events.Emit(ctx, events.TopicCouponRaceLost, oID, map[string]any{
				"orderId": out.OrderID,
				"note":    out.CouponNote,
			})
		}
	}
	if s.Jobs != nil {
		if err := s.Jobs.EnqueueOrderConfirmation(ctx, jobs.OrderConfirmationPayload{
			OrderID:    out.OrderID,
			Email:      in.Email,
			Total:      out.Summary.Total.Amount.StringFixed(2),
			Currency:   string(out.Summary.Total.Currency),
			CouponCode: out.CouponCode,
			CouponNote: out.CouponNote,
		}); err != nil {
			s.Log.Warn().Err(err).Str("order_id", out.OrderID).Msg("enqueue order confirmation")
		}
		lines := make([]jobs.InventoryLine, 0, len(items))
		for _, it := range items {
			lines = append(lines, jobs.InventoryLine{ProductID: cart.UUIDString(it.ProductID), Qty: it.Qty})
		}
		if len(lines) > 0 {
			if err := s.Jobs.EnqueueInventoryAdjust(ctx, jobs.InventoryAdjustPayload{OrderID: out.OrderID, Lines: lines}); err != nil {
				s.Log.Warn().Err(err).Str("order_id", out.OrderID).Msg("enqueue inventory adjust")
			}
		}
	}
}

func priceLines(items []db.CartItem, currency money.Currency) ([]pricing.Item, money.Money, error) {
	lines := make([]pricing.Item, 0, len(items))
	subtotal := money.Zero(currency)
	for _, it := range items {
		snap := it.UnitPriceUSD
		if currency == money.INR {
			snap = it.UnitPriceINR
		}
		if !snap.Valid {
			return nil, money.Money{}, fmt.Errorf("item %s has no %s price snapshot: %w", cart.UUIDString(it.ID), currency, cart.ErrInvalidInput)
		}
		price := money.New(snap.Decimal, currency)
		lines = append(lines, pricing.Item{Qty: int64(it.Qty), UnitPrice: price})
		var err error
		subtotal, err = subtotal.Add(price.MulInt(int64(it.Qty)))
		if err != nil {
			return nil, money.Money{}, err
		}
	}
	return lines, subtotal.Round(), nil
}

func toJSON(v any) []byte {
	if v == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return b
}
