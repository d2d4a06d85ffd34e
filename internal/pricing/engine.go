package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/cartmax/backend-store/internal/money"
)

var bpsDivisor = decimal.NewFromInt(10000)

// Item describes a line used for totals calculation. UnitPrice is the
// snapshot captured when the line entered the cart.
type Item struct {
	Qty       int64
	UnitPrice money.Money
}

// Summary aggregates the computed pricing components. Every field is
// rounded to cents and denominated in the cart currency.
type Summary struct {
	Subtotal money.Money
	Discount money.Money
	Tax      money.Money
	Shipping money.Money
	Total    money.Money
}

// Compute calculates cart totals. Tax applies to the full original
// subtotal: a discount reduces what the customer pays but not the
// taxable base. Each component is rounded to cents independently, then
// summed, so the displayed lines always add up to the total.
func Compute(currency money.Currency, items []Item, discount money.Money, taxBps int64, shipping money.Money) (Summary, error) {
	subtotal := money.Zero(currency)
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		line := it.UnitPrice.MulInt(it.Qty)
		var err error
		subtotal, err = subtotal.Add(line)
		if err != nil {
			return Summary{}, err
		}
	}
	subtotal = subtotal.Round()

	if discount.Currency == "" {
		discount = money.Zero(currency)
	}
	discount, err := money.Min(discount, subtotal)
	if err != nil {
		return Summary{}, err
	}
	if !discount.IsPositive() {
		discount = money.Zero(currency)
	}
	discount = discount.Round()

	tax := subtotal.Mul(decimal.NewFromInt(taxBps).Div(bpsDivisor)).Round()
	shipping = shipping.Round()

	total, err := subtotal.Sub(discount)
	if err != nil {
		return Summary{}, err
	}
	total, err = total.Add(tax)
	if err != nil {
		return Summary{}, err
	}
	total, err = total.Add(shipping)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    total.Round(),
	}, nil
}
