package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cartmax/backend-store/internal/coupon"
	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/money"
)

type stubStore struct {
	carts    map[[16]byte]*db.Cart
	items    map[[16]byte]*db.CartItem
	products map[[16]byte]db.Product
	coupons  map[string]db.Coupon
}

func newStubStore() *stubStore {
	return &stubStore{
		carts:    map[[16]byte]*db.Cart{},
		items:    map[[16]byte]*db.CartItem{},
		products: map[[16]byte]db.Product{},
		coupons:  map[string]db.Coupon{},
	}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func (s *stubStore) GetActiveCartByUser(_ context.Context, userID pgtype.UUID) (db.Cart, error) {
	for _, c := range s.carts {
		if c.UserID.Valid && c.UserID.Bytes == userID.Bytes {
			return *c, nil
		}
	}
	return db.Cart{}, pgx.ErrNoRows
}

func (s *stubStore) GetActiveCartByAnon(_ context.Context, anonID pgtype.Text) (db.Cart, error) {
	for _, c := range s.carts {
		if c.AnonID.Valid && c.AnonID.String == anonID.String {
			return *c, nil
		}
	}
	return db.Cart{}, pgx.ErrNoRows
}

func (s *stubStore) GetCartByID(_ context.Context, id pgtype.UUID) (db.Cart, error) {
	if c, ok := s.carts[id.Bytes]; ok {
		return *c, nil
	}
	return db.Cart{}, pgx.ErrNoRows
}

func (s *stubStore) CreateCart(_ context.Context, arg db.CreateCartParams) (db.Cart, error) {
	c := db.Cart{ID: newID(), UserID: arg.UserID, AnonID: arg.AnonID, Currency: arg.Currency, ExpiresAt: arg.ExpiresAt}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	s.carts[c.ID.Bytes] = &c
	return c, nil
}

func (s *stubStore) TouchCart(_ context.Context, arg db.TouchCartParams) error {
	if c, ok := s.carts[arg.ID.Bytes]; ok {
		c.ExpiresAt = arg.ExpiresAt
	}
	return nil
}

func (s *stubStore) UpdateCartCurrency(_ context.Context, id pgtype.UUID, currency string) error {
	if c, ok := s.carts[id.Bytes]; ok {
		c.Currency = currency
	}
	return nil
}

func (s *stubStore) UpdateCartCoupon(_ context.Context, arg db.UpdateCartCouponParams) error {
	if c, ok := s.carts[arg.ID.Bytes]; ok {
		c.AppliedCouponCode = arg.AppliedCouponCode
		c.DiscountAmount = arg.DiscountAmount
	}
	return nil
}

func (s *stubStore) ListCartItems(_ context.Context, cartID pgtype.UUID) ([]db.CartItem, error) {
	var out []db.CartItem
	for _, it := range s.items {
		if it.CartID.Bytes == cartID.Bytes {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *stubStore) FindCartItemByProduct(_ context.Context, arg db.FindCartItemByProductParams) (db.CartItem, error) {
	for _, it := range s.items {
		if it.CartID.Bytes == arg.CartID.Bytes && it.ProductID.Bytes == arg.ProductID.Bytes {
			return *it, nil
		}
	}
	return db.CartItem{}, pgx.ErrNoRows
}

func (s *stubStore) GetCartItemByID(_ context.Context, id pgtype.UUID) (db.CartItem, error) {
	if it, ok := s.items[id.Bytes]; ok {
		return *it, nil
	}
	return db.CartItem{}, pgx.ErrNoRows
}

func (s *stubStore) CreateCartItem(_ context.Context, arg db.CreateCartItemParams) (db.CartItem, error) {
	it := db.CartItem{
		ID:           newID(),
		CartID:       arg.CartID,
		ProductID:    arg.ProductID,
		Title:        arg.Title,
		Slug:         arg.Slug,
		Qty:          arg.Qty,
		UnitPriceUSD: arg.UnitPriceUSD,
		UnitPriceINR: arg.UnitPriceINR,
	}
	s.items[it.ID.Bytes] = &it
	return it, nil
}

func (s *stubStore) UpdateCartItemQty(_ context.Context, id pgtype.UUID, qty int32) (db.CartItem, error) {
	it, ok := s.items[id.Bytes]
	if !ok {
		return db.CartItem{}, pgx.ErrNoRows
	}
	it.Qty = qty
	return *it, nil
}

func (s *stubStore) UpdateCartItemSnapshot(_ context.Context, arg db.UpdateCartItemSnapshotParams) error {
	it, ok := s.items[arg.ID.Bytes]
	if !ok {
		return pgx.ErrNoRows
	}
	if !it.UnitPriceUSD.Valid {
		it.UnitPriceUSD = arg.UnitPriceUSD
	}
	if !it.UnitPriceINR.Valid {
		it.UnitPriceINR = arg.UnitPriceINR
	}
	return nil
}

func (s *stubStore) DeleteCartItem(_ context.Context, arg db.DeleteCartItemParams) error {
	delete(s.items, arg.ID.Bytes)
	return nil
}

func (s *stubStore) ClearCartItems(_ context.Context, cartID pgtype.UUID) error {
	for k, it := range s.items {
		if it.CartID.Bytes == cartID.Bytes {
			delete(s.items, k)
		}
	}
	return nil
}

func (s *stubStore) GetProductForCart(_ context.Context, id pgtype.UUID) (db.Product, error) {
	if p, ok := s.products[id.Bytes]; ok {
		return p, nil
	}
	return db.Product{}, pgx.ErrNoRows
}

func (s *stubStore) GetCouponByCode(_ context.Context, code string) (db.Coupon, error) {
	if c, ok := s.coupons[code]; ok {
		return c, nil
	}
	return db.Coupon{}, pgx.ErrNoRows
}

func (s *stubStore) CountCouponUsageByUser(_ context.Context, _ db.CountCouponUsageByUserParams) (int64, error) {
	return 0, nil
}

func newCartService(store *stubStore) *Service {
	conv := money.NewConverter(money.DefaultUSDToINR)
	return &Service{
		Q: store,
		Coupons: &coupon.Service{
			Q:          store,
			Validator:  coupon.Validator{Converter: &conv},
			Calculator: coupon.Calculator{Converter: &conv},
		},
		TaxBps: 800,
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func seedProduct(store *stubStore, priceUSD, priceINR string) db.Product {
	p := db.Product{
		ID:       newID(),
		Title:    "Mechanical Keyboard",
		Slug:     "mechanical-keyboard",
		PriceUSD: decimal.RequireFromString(priceUSD),
		PriceINR: decimal.RequireFromString(priceINR),
		Stock:    10,
		IsActive: true,
	}
	store.products[p.ID.Bytes] = p
	return p
}

func TestToUUIDRoundTrip(t *testing.T) {
	id, err := ToUUID("3f2c9a44-9c1b-4a2e-8c5d-1f2e3a4b5c6d")
	require.NoError(t, err)
	require.True(t, id.Valid)
	require.Equal(t, "3f2c9a44-9c1b-4a2e-8c5d-1f2e3a4b5c6d", UUIDString(id))

	_, err = ToUUID("not-a-uuid")
	require.Error(t, err)
}

func TestAddItemCapturesSnapshot(t *testing.T) {
	store := newStubStore()
	svc := newCartService(store)
	product := seedProduct(store, "100", "8300")

	anon := "guest-1"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon, money.USD)
	require.NoError(t, err)
	require.NoError(t, svc.AddItem(context.Background(), UUIDString(cart.ID), UUIDString(product.ID), 1))

	// A later catalog price change must not move the cart total.
	repriced := store.products[product.ID.Bytes]
	repriced.PriceUSD = decimal.RequireFromString("150")
	store.products[product.ID.Bytes] = repriced

	view, err := svc.Totals(context.Background(), UUIDString(cart.ID))
	require.NoError(t, err)
	require.Equal(t, "100.00 USD", view.Summary.Subtotal.String())
}

func TestCurrencySwitchUsesStoredSnapshot(t *testing.T) {
	store := newStubStore()
	svc := newCartService(store)
	product := seedProduct(store, "100", "8300")

	anon := "guest-2"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon, money.USD)
	require.NoError(t, err)
	require.NoError(t, svc.AddItem(context.Background(), UUIDString(cart.ID), UUIDString(product.ID), 2))

	_, err = svc.SetCurrency(context.Background(), UUIDString(cart.ID), money.INR)
	require.NoError(t, err)

	view, err := svc.Totals(context.Background(), UUIDString(cart.ID))
	require.NoError(t, err)
	require.Equal(t, "16600.00 INR", view.Summary.Subtotal.String())
}

func TestApplyCouponPersistsPreview(t *testing.T) {
	store := newStubStore()
	svc := newCartService(store)
	product := seedProduct(store, "100", "8300")
	store.coupons["SAVE10"] = db.Coupon{
		ID:             newID(),
		Code:           "SAVE10",
		DiscountType:   coupon.TypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		AmountCurrency: "USD",
		IsActive:       true,
	}

	anon := "guest-3"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon, money.USD)
	require.NoError(t, err)
	require.NoError(t, svc.AddItem(context.Background(), UUIDString(cart.ID), UUIDString(product.ID), 1))

	preview, err := svc.ApplyCoupon(context.Background(), UUIDString(cart.ID), "save10")
	require.NoError(t, err)
	require.Equal(t, "10.00 USD", preview.Discount.String())

	view, err := svc.Totals(context.Background(), UUIDString(cart.ID))
	require.NoError(t, err)
	require.Equal(t, "10.00 USD", view.Summary.Discount.String())
	require.Equal(t, "8.00 USD", view.Summary.Tax.String())
	require.Equal(t, "98.00 USD", view.Summary.Total.String())
}

func TestApplyCouponEmptyCart(t *testing.T) {
	store := newStubStore()
	svc := newCartService(store)
	store.coupons["SAVE10"] = db.Coupon{
		ID: newID(), Code: "SAVE10", DiscountType: coupon.TypePercentage,
		DiscountValue: decimal.NewFromInt(10), AmountCurrency: "USD", IsActive: true,
	}
	anon := "guest-4"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon, money.USD)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), UUIDString(cart.ID), "SAVE10")
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestRemoveCouponIdempotent(t *testing.T) {
	store := newStubStore()
	svc := newCartService(store)
	anon := "guest-5"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon, money.USD)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveCoupon(context.Background(), UUIDString(cart.ID)))
	require.NoError(t, svc.RemoveCoupon(context.Background(), UUIDString(cart.ID)))
}

func TestClearEmptiesCartAndDropsCoupon(t *testing.T) {
	store := newStubStore()
	svc := newCartService(store)
	product := seedProduct(store, "100", "8300")
	store.coupons["SAVE10"] = db.Coupon{
		ID: newID(), Code: "SAVE10", DiscountType: coupon.TypePercentage,
		DiscountValue: decimal.NewFromInt(10), AmountCurrency: "USD", IsActive: true,
	}

	anon := "guest-7"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon, money.USD)
	require.NoError(t, err)
	require.NoError(t, svc.AddItem(context.Background(), UUIDString(cart.ID), UUIDString(product.ID), 1))
	_, err = svc.ApplyCoupon(context.Background(), UUIDString(cart.ID), "SAVE10")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), UUIDString(cart.ID)))

	items, err := store.ListCartItems(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Empty(t, items)
	require.False(t, store.carts[cart.ID.Bytes].AppliedCouponCode.Valid)
}

func TestTotalsDropsStaleCoupon(t *testing.T) {
	store := newStubStore()
	svc := newCartService(store)
	product := seedProduct(store, "100", "8300")
	minOrder := decimal.NewFromInt(50)
	store.coupons["BIG50"] = db.Coupon{
		ID:                 newID(),
		Code:               "BIG50",
		DiscountType:       coupon.TypeFixedAmount,
		DiscountValue:      decimal.NewFromInt(20),
		MinimumOrderAmount: decimal.NullDecimal{Decimal: minOrder, Valid: true},
		AmountCurrency:     "USD",
		IsActive:           true,
	}

	anon := "guest-6"
	cart, err := svc.EnsureCart(context.Background(), nil, &anon, money.USD)
	require.NoError(t, err)
	require.NoError(t, svc.AddItem(context.Background(), UUIDString(cart.ID), UUIDString(product.ID), 1))
	_, err = svc.ApplyCoupon(context.Background(), UUIDString(cart.ID), "BIG50")
	require.NoError(t, err)

	// Shrink the cart below the minimum; the stale coupon must fall off.
	items, err := store.ListCartItems(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, svc.RemoveItem(context.Background(), UUIDString(cart.ID), UUIDString(items[0].ID)))

	cheap := seedProduct(store, "10", "830")
	require.NoError(t, svc.AddItem(context.Background(), UUIDString(cart.ID), UUIDString(cheap.ID), 1))

	view, err := svc.Totals(context.Background(), UUIDString(cart.ID))
	require.NoError(t, err)
	require.True(t, view.Summary.Discount.IsZero())
	require.NotEmpty(t, view.CouponNote)
	require.False(t, view.Cart.AppliedCouponCode.Valid)
}
