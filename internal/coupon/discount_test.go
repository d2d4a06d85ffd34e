package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cartmax/backend-store/internal/money"
)

func TestComputePercentage(t *testing.T) {
	c := Coupon{Code: "SAVE10", Type: TypePercentage, Value: decimal.NewFromInt(10), AmountCurrency: money.USD}
	got, err := Calculator{}.Compute(c, usd(t, "100"))
	require.NoError(t, err)
	require.Equal(t, "10.00 USD", got.String())
}

func TestComputePercentageRoundsHalfUpOnce(t *testing.T) {
	// 15% of 33.33 is 4.9995, which must round to 5.00, not truncate.
	c := Coupon{Code: "SAVE15", Type: TypePercentage, Value: decimal.NewFromInt(15), AmountCurrency: money.USD}
	got, err := Calculator{}.Compute(c, usd(t, "33.33"))
	require.NoError(t, err)
	require.Equal(t, "5.00 USD", got.String())
}

func TestComputeFixedAmountClampedToSubtotal(t *testing.T) {
	c := Coupon{Code: "FLAT500", Type: TypeFixedAmount, Value: decimal.NewFromInt(500), AmountCurrency: money.INR}
	got, err := Calculator{}.Compute(c, inr(t, "300"))
	require.NoError(t, err)
	require.Equal(t, "300.00 INR", got.String())
}

func TestComputeFixedAmountReadInCartCurrency(t *testing.T) {
	// The value 500 is face value in whatever currency the cart uses.
	c := Coupon{Code: "FLAT500", Type: TypeFixedAmount, Value: decimal.NewFromInt(500), AmountCurrency: money.INR}

	got, err := Calculator{}.Compute(c, usd(t, "2000"))
	require.NoError(t, err)
	require.Equal(t, "500.00 USD", got.String())

	got, err = Calculator{}.Compute(c, inr(t, "2000"))
	require.NoError(t, err)
	require.Equal(t, "500.00 INR", got.String())
}

func TestComputeZeroSubtotal(t *testing.T) {
	c := Coupon{Code: "SAVE10", Type: TypePercentage, Value: decimal.NewFromInt(10), AmountCurrency: money.USD}
	got, err := Calculator{}.Compute(c, money.Zero(money.USD))
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestComputeRejectsUnknownType(t *testing.T) {
	c := Coupon{Code: "ODD", Type: "bogo", Value: decimal.NewFromInt(1), AmountCurrency: money.USD}
	_, err := Calculator{}.Compute(c, usd(t, "100"))
	require.ErrorIs(t, err, ErrInvalidType)
}
