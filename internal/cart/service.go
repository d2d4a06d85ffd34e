package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/coupon"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
	"github.com/cartmax/backend-store/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrEmptyCart is returned for operations that require at least one item.
var ErrEmptyCart = errors.New("cart is empty")

// Querier captures the database methods required by the cart service.
type Querier interface {
	GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	GetActiveCartByAnon(ctx context.Context, anonID pgtype.Text) (db.Cart, error)
	GetCartByID(ctx context.Context, id pgtype.UUID) (db.Cart, error)
	CreateCart(ctx context.Context, arg db.CreateCartParams) (db.Cart, error)
	TouchCart(ctx context.Context, arg db.TouchCartParams) error
	UpdateCartCurrency(ctx context.Context, id pgtype.UUID, currency string) error
	UpdateCartCoupon(ctx context.Context, arg db.UpdateCartCouponParams) error
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]db.CartItem, error)
	FindCartItemByProduct(ctx context.Context, arg db.FindCartItemByProductParams) (db.CartItem, error)
	GetCartItemByID(ctx context.Context, id pgtype.UUID) (db.CartItem, error)
	CreateCartItem(ctx context.Context, arg db.CreateCartItemParams) (db.CartItem, error)
	UpdateCartItemQty(ctx context.Context, id pgtype.UUID, qty int32) (db.CartItem, error)
	UpdateCartItemSnapshot(ctx context.Context, arg db.UpdateCartItemSnapshotParams) error
	DeleteCartItem(ctx context.Context, arg db.DeleteCartItemParams) error
	ClearCartItems(ctx context.Context, cartID pgtype.UUID) error
	GetProductForCart(ctx context.Context, id pgtype.UUID) (db.Product, error)
}

// Service encapsulates cart domain operations: snapshot capture at add
// time, currency switching, and coupon preview against the live cart.
type Service struct {
	Q        Querier
	Coupons  *coupon.Service
	TTL      time.Duration
	TaxBps   int64
	Shipping decimal.Decimal
	Now      func() time.Time
}

// View is a cart plus its lines and the recomputed totals.
type View struct {
	Cart       db.Cart
	Items      []db.CartItem
	Summary    pricing.Summary
	CouponNote string
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads or creates a cart for the provided identifiers.
func (s *Service) EnsureCart(ctx context.Context, userID *string, anonID *string, currency money.Currency) (db.Cart, error) {
	if s == nil || s.Q == nil {
		return db.Cart{}, errors.New("cart service not configured")
	}
	if !currency.Valid() {
		currency = money.USD
	}
	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}

	if userID != nil && *userID != "" {
		uid, err := toUUID(*userID)
		if err != nil {
			return db.Cart{}, fmt.Errorf("parse user id: %w", err)
		}
		cart, err := s.Q.GetActiveCartByUser(ctx, uid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Q.CreateCart(ctx, db.CreateCartParams{UserID: uid, Currency: string(currency), ExpiresAt: expires})
			}
			return db.Cart{}, err
		}
		_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cart.ID, ExpiresAt: expires})
		return cart, nil
	}

	if anonID != nil && *anonID != "" {
		anon := pgtype.Text{String: *anonID, Valid: true}
		cart, err := s.Q.GetActiveCartByAnon(ctx, anon)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.Q.CreateCart(ctx, db.CreateCartParams{AnonID: anon, Currency: string(currency), ExpiresAt: expires})
			}
			return db.Cart{}, err
		}
		_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cart.ID, ExpiresAt: expires})
		return cart, nil
	}

	return db.Cart{}, ErrInvalidInput
}

// AddItem inserts or increments a cart line. Both per-currency price
// snapshots are captured on insert so a later currency switch replays
// the stored price instead of the live catalog one.
func (s *Service) AddItem(ctx context.Context, cartID string, productID string, qty int) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	pID, err := toUUID(productID)
	if err != nil {
		return fmt.Errorf("parse product id: %w", err)
	}
	if _, err := s.Q.GetCartByID(ctx, cID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}
	item, err := s.Q.FindCartItemByProduct(ctx, db.FindCartItemByProductParams{CartID: cID, ProductID: pID})
	if err == nil {
		if _, err := s.Q.UpdateCartItemQty(ctx, item.ID, item.Qty+int32(qty)); err != nil {
			return err
		}
		_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: expires})
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	product, err := s.Q.GetProductForCart(ctx, pID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product not found: %w", ErrInvalidInput)
		}
		return err
	}
	if !product.IsActive {
		return fmt.Errorf("product not available: %w", ErrInvalidInput)
	}
	if _, err := s.Q.CreateCartItem(ctx, db.CreateCartItemParams{
		CartID:       cID,
		ProductID:    pID,
		Title:        product.Title,
		Slug:         product.Slug,
		Qty:          int32(qty),
		UnitPriceUSD: decimal.NullDecimal{Decimal: product.PriceUSD, Valid: true},
		UnitPriceINR: decimal.NullDecimal{Decimal: product.PriceINR, Valid: true},
	}); err != nil {
		return err
	}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: expires})
	return nil
}

// UpdateQty updates the quantity for a cart item. The price snapshot is
// untouched.
func (s *Service) UpdateQty(ctx context.Context, itemID string, qty int) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	id, err := toUUID(itemID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}
	item, err := s.Q.GetCartItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := s.Q.UpdateCartItemQty(ctx, item.ID, int32(qty)); err != nil {
		return err
	}
	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: item.CartID, ExpiresAt: expires})
	return nil
}

// RemoveItem deletes a cart item.
func (s *Service) RemoveItem(ctx context.Context, cartID string, itemID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	iID, err := toUUID(itemID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}
	if err := s.Q.DeleteCartItem(ctx, db.DeleteCartItemParams{ID: iID, CartID: cID}); err != nil {
		return err
	}
	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: expires})
	return nil
}

// Clear removes every item and drops any applied coupon, since its
// discount was computed against lines that no longer exist.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	if err := s.Q.ClearCartItems(ctx, cID); err != nil {
		return err
	}
	if err := s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: cID, AppliedCouponCode: pgtype.Text{}, DiscountAmount: decimal.Zero}); err != nil {
		return err
	}
	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: expires})
	return nil
}

// SetCurrency switches the cart display currency. Lines keep their
// original snapshots; any line missing a snapshot for the target
// currency is backfilled from the catalog exactly once.
func (s *Service) SetCurrency(ctx context.Context, cartID string, currency money.Currency) (db.Cart, error) {
	if s == nil || s.Q == nil {
		return db.Cart{}, errors.New("cart service not configured")
	}
	if !currency.Valid() {
		return db.Cart{}, fmt.Errorf("%w: %q", money.ErrUnknownCurrency, currency)
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return db.Cart{}, fmt.Errorf("parse cart id: %w", err)
	}
	cart, err := s.Q.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Cart{}, ErrNotFound
		}
		return db.Cart{}, err
	}
	if cart.Currency == string(currency) {
		return cart, nil
	}
	items, err := s.Q.ListCartItems(ctx, cID)
	if err != nil {
		return db.Cart{}, err
	}
	for _, it := range items {
		if snapshotFor(it, currency).Valid {
			continue
		}
		product, err := s.Q.GetProductForCart(ctx, it.ProductID)
		if err != nil {
			return db.Cart{}, err
		}
		if err := s.Q.UpdateCartItemSnapshot(ctx, db.UpdateCartItemSnapshotParams{
			ID:           it.ID,
			UnitPriceUSD: decimal.NullDecimal{Decimal: product.PriceUSD, Valid: true},
			UnitPriceINR: decimal.NullDecimal{Decimal: product.PriceINR, Valid: true},
		}); err != nil {
			return db.Cart{}, err
		}
	}
	if err := s.Q.UpdateCartCurrency(ctx, cID, string(currency)); err != nil {
		return db.Cart{}, err
	}
	cart.Currency = string(currency)
	return cart, nil
}

// ApplyCoupon validates the code against the live cart and stores it.
// Usage quota is only consumed at checkout; applying is a preview that
// survives on the cart row.
func (s *Service) ApplyCoupon(ctx context.Context, cartID string, code string) (coupon.PreviewResult, error) {
	if s == nil || s.Q == nil || s.Coupons == nil {
		return coupon.PreviewResult{}, errors.New("cart service not configured")
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return coupon.PreviewResult{}, fmt.Errorf("parse cart id: %w", err)
	}
	cart, err := s.Q.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.PreviewResult{}, ErrNotFound
		}
		return coupon.PreviewResult{}, err
	}
	_, subtotal, err := s.loadItems(ctx, cart)
	if err != nil {
		return coupon.PreviewResult{}, err
	}
	preview, err := s.Coupons.Preview(ctx, code, cart.UserID, subtotal)
	if err != nil {
		return coupon.PreviewResult{}, err
	}
	if err := s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{
		ID:                cart.ID,
		AppliedCouponCode: pgtype.Text{String: preview.Code, Valid: true},
		DiscountAmount:    preview.Discount.Amount,
	}); err != nil {
		return coupon.PreviewResult{}, err
	}
	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cart.ID, ExpiresAt: expires})
	return preview, nil
}

// RemoveCoupon clears an applied coupon. Removing when nothing is
// applied is a no-op, not an error.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return fmt.Errorf("parse cart id: %w", err)
	}
	if err := s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: cID, AppliedCouponCode: pgtype.Text{}, DiscountAmount: decimal.Zero}); err != nil {
		return err
	}
	expires := pgtype.Timestamptz{Time: s.now().Add(s.ttl()), Valid: true}
	_ = s.Q.TouchCart(ctx, db.TouchCartParams{ID: cID, ExpiresAt: expires})
	return nil
}

// Totals recomputes the cart summary from the stored snapshots. An
// applied coupon is revalidated against the current subtotal; if it no
// longer qualifies it is dropped from the cart and the view carries an
// explanatory note.
func (s *Service) Totals(ctx context.Context, cartID string) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cID, err := toUUID(cartID)
	if err != nil {
		return View{}, fmt.Errorf("parse cart id: %w", err)
	}
	cart, err := s.Q.GetCartByID(ctx, cID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrNotFound
		}
		return View{}, err
	}
	if cart.ExpiresAt.Valid && cart.ExpiresAt.Time.Before(s.now()) {
		return View{}, ErrNotFound
	}
	return s.view(ctx, cart)
}

func (s *Service) view(ctx context.Context, cart db.Cart) (View, error) {
	currency, err := money.ParseCurrency(cart.Currency)
	if err != nil {
		return View{}, err
	}
	items, err := s.Q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return View{}, err
	}
	lines, err := pricingItems(items, currency)
	if err != nil {
		return View{}, err
	}

	discount := money.Zero(currency)
	var note string
	if cart.AppliedCouponCode.Valid && cart.AppliedCouponCode.String != "" && s.Coupons != nil {
		subtotal := money.Zero(currency)
		for _, l := range lines {
			subtotal, err = subtotal.Add(l.UnitPrice.MulInt(l.Qty))
			if err != nil {
				return View{}, err
			}
		}
		preview, perr := s.Coupons.Preview(ctx, cart.AppliedCouponCode.String, cart.UserID, subtotal.Round())
		if perr != nil {
			note = fmt.Sprintf("coupon %s no longer applies: %v", cart.AppliedCouponCode.String, perr)
			_ = s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{ID: cart.ID, AppliedCouponCode: pgtype.Text{}, DiscountAmount: decimal.Zero})
			cart.AppliedCouponCode = pgtype.Text{}
			cart.DiscountAmount = decimal.Zero
		} else {
			discount = preview.Discount
			if !preview.Discount.Amount.Equal(cart.DiscountAmount) {
				_ = s.Q.UpdateCartCoupon(ctx, db.UpdateCartCouponParams{
					ID:                cart.ID,
					AppliedCouponCode: cart.AppliedCouponCode,
					DiscountAmount:    preview.Discount.Amount,
				})
				cart.DiscountAmount = preview.Discount.Amount
			}
		}
	}

	summary, err := pricing.Compute(currency, lines, discount, s.TaxBps, money.New(s.Shipping, currency))
	if err != nil {
		return View{}, err
	}
	return View{Cart: cart, Items: items, Summary: summary, CouponNote: note}, nil
}

func (s *Service) loadItems(ctx context.Context, cart db.Cart) ([]db.CartItem, money.Money, error) {
	currency, err := money.ParseCurrency(cart.Currency)
	if err != nil {
		return nil, money.Money{}, err
	}
	items, err := s.Q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, money.Money{}, err
	}
	if len(items) == 0 {
		return nil, money.Money{}, ErrEmptyCart
	}
	subtotal := money.Zero(currency)
	for _, it := range items {
		price, err := unitPrice(it, currency)
		if err != nil {
			return nil, money.Money{}, err
		}
		subtotal, err = subtotal.Add(price.MulInt(int64(it.Qty)))
		if err != nil {
			return nil, money.Money{}, err
		}
	}
	return items, subtotal.Round(), nil
}

func snapshotFor(it db.CartItem, currency money.Currency) decimal.NullDecimal {
	if currency == money.INR {
		return it.UnitPriceINR
	}
	return it.UnitPriceUSD
}

func unitPrice(it db.CartItem, currency money.Currency) (money.Money, error) {
	snap := snapshotFor(it, currency)
	if !snap.Valid {
		return money.Money{}, fmt.Errorf("item %s has no %s price snapshot: %w", uuidString(it.ID), currency, ErrInvalidInput)
	}
	return money.New(snap.Decimal, currency), nil
}

func pricingItems(items []db.CartItem, currency money.Currency) ([]pricing.Item, error) {
	lines := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		price, err := unitPrice(it, currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, pricing.Item{Qty: int64(it.Qty), UnitPrice: price})
	}
	return lines, nil
}

func toUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

// ToUUID converts a string representation of a UUID into pgtype.UUID.
func ToUUID(value string) (pgtype.UUID, error) {
	return toUUID(value)
}

// UUIDString converts a pgtype.UUID into a canonical string.
func UUIDString(id pgtype.UUID) string {
	return uuidString(id)
}
