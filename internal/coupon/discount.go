package coupon

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/money"
)

var oneHundred = decimal.NewFromInt(100)

// Calculator computes the discount a validated coupon grants against a
// cart subtotal.
type Calculator struct {
	Converter *money.Converter
}

// Compute returns the discount in the subtotal currency. The raw amount
// is clamped to the subtotal so the payable total never goes negative,
// then rounded to cents exactly once.
//
// Fixed-amount values are read in the cart currency as-is: a coupon
// authored as 500 grants $500.00 off a USD cart and ₹500.00 off an INR
// cart. The authored amount_currency is kept on the row for audit but
// does not trigger a conversion here.
func (dc Calculator) Compute(c Coupon, subtotal money.Money) (money.Money, error) {
	if !subtotal.IsPositive() {
		return money.Zero(subtotal.Currency), nil
	}
	var raw money.Money
	switch c.Type {
	case TypePercentage:
		raw = subtotal.Mul(c.Value.Div(oneHundred))
	case TypeFixedAmount:
		raw = money.New(c.Value, subtotal.Currency)
	default:
		return money.Money{}, fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	clamped, err := money.Min(raw, subtotal)
	if err != nil {
		return money.Money{}, err
	}
	if !clamped.IsPositive() {
		return money.Zero(subtotal.Currency), nil
	}
	return clamped.Round(), nil
}
