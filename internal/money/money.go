package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownCurrency is returned when a currency code outside the supported set is parsed.
var ErrUnknownCurrency = errors.New("money: unknown currency")

// ErrCurrencyMismatch indicates arithmetic or comparison across two different
// currencies without an explicit conversion. This is a programming error, not a
// condition to surface to end users.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Currency is one of the two supported settlement currencies.
type Currency string

const (
	USD Currency = "USD"
	INR Currency = "INR"
)

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(value string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(value))) {
	case USD:
		return USD, nil
	case INR:
		return INR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, value)
	}
}

// Valid reports whether the currency is one of the supported variants.
func (c Currency) Valid() bool {
	return c == USD || c == INR
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	if c == INR {
		return "₹"
	}
	return "$"
}

// Money pairs a decimal amount with the currency it is denominated in. All
// arithmetic is currency-checked; mixing variants returns ErrCurrencyMismatch.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// New constructs a Money value.
func New(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns the zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// FromString parses a decimal string into Money.
func FromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse amount: %w", err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

// Round returns the amount rounded to cents, half away from zero. Amounts in
// this core are non-negative, so this is round-half-up.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// Add returns m + o. The operands must share a currency.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns m - o. The operands must share a currency.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// MulInt scales the amount by an integer factor, e.g. a line item quantity.
func (m Money) MulInt(n int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(n)), Currency: m.Currency}
}

// Mul scales the amount by a decimal factor, e.g. a tax or percentage rate.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Cmp compares two amounts of the same currency: -1 if m < o, 0 if equal, 1 if m > o.
func (m Money) Cmp(o Money) (int, error) {
	if m.Currency != o.Currency {
		return 0, fmt.Errorf("%w: compare %s with %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return m.Amount.Cmp(o.Amount), nil
}

// Min returns the smaller of two amounts of the same currency.
func Min(a, b Money) (Money, error) {
	cmp, err := a.Cmp(b)
	if err != nil {
		return Money{}, err
	}
	if cmp <= 0 {
		return a, nil
	}
	return b, nil
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// String renders the rounded amount with its ISO code, e.g. "99.00 USD".
func (m Money) String() string {
	return m.Amount.Round(2).StringFixed(2) + " " + string(m.Currency)
}

// Display renders the rounded amount with the currency symbol, e.g. "₹300.00".
func (m Money) Display() string {
	return m.Currency.Symbol() + m.Amount.Round(2).StringFixed(2)
}
