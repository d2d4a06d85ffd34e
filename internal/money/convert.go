package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultUSDToINR is the fallback exchange rate used when configuration does
// not supply one. Rates are pre-resolved inputs; this core never fetches them.
var DefaultUSDToINR = decimal.NewFromInt(83)

type pair struct {
	from Currency
	to   Currency
}

// Converter converts amounts between the supported currencies using an
// injected rate table keyed by ordered currency pairs.
type Converter struct {
	rates map[pair]decimal.Decimal
}

// NewConverter builds a converter from a single USD→INR rate. The inverse
// direction is derived so the table stays consistent.
func NewConverter(usdToINR decimal.Decimal) Converter {
	if !usdToINR.IsPositive() {
		usdToINR = DefaultUSDToINR
	}
	return Converter{rates: map[pair]decimal.Decimal{
		{USD, INR}: usdToINR,
		{INR, USD}: decimal.NewFromInt(1).DivRound(usdToINR, 8),
	}}
}

// Convert returns a new Money denominated in the target currency, rounded to
// cents. Converting into the same currency is the identity.
func (c Converter) Convert(m Money, target Currency) (Money, error) {
	if !target.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, target)
	}
	if m.Currency == target {
		return m, nil
	}
	rate, ok := c.rates[pair{m.Currency, target}]
	if !ok {
		return Money{}, fmt.Errorf("money: no rate for %s→%s", m.Currency, target)
	}
	return Money{Amount: m.Amount.Mul(rate).Round(2), Currency: target}, nil
}

// Rate exposes the configured rate for an ordered currency pair.
func (c Converter) Rate(from, to Currency) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	rate, ok := c.rates[pair{from, to}]
	return rate, ok
}
