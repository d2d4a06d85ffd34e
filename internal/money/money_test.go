package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	require.Equal(t, USD, c)

	c, err = ParseCurrency("INR")
	require.NoError(t, err)
	require.Equal(t, INR, c)

	_, err = ParseCurrency("EUR")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestRoundHalfUp(t *testing.T) {
	m, err := FromString("10.005", USD)
	require.NoError(t, err)
	require.Equal(t, "10.01 USD", m.Round().String())

	m, err = FromString("10.004", USD)
	require.NoError(t, err)
	require.Equal(t, "10.00 USD", m.Round().String())
}

func TestArithmeticRejectsMixedCurrencies(t *testing.T) {
	usd := New(decimal.NewFromInt(10), USD)
	inr := New(decimal.NewFromInt(10), INR)

	_, err := usd.Add(inr)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = usd.Sub(inr)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = usd.Cmp(inr)
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := usd.Add(New(decimal.NewFromInt(5), USD))
	require.NoError(t, err)
	require.Equal(t, "15.00 USD", sum.String())
}

func TestConvertUSDToINR(t *testing.T) {
	conv := NewConverter(decimal.NewFromInt(83))
	fifty := New(decimal.NewFromInt(50), USD)

	got, err := conv.Convert(fifty, INR)
	require.NoError(t, err)
	require.Equal(t, INR, got.Currency)
	require.Equal(t, "4150.00 INR", got.String())
}

func TestConvertRoundTrip(t *testing.T) {
	conv := NewConverter(decimal.NewFromInt(83))
	amount := New(decimal.NewFromInt(83), INR)

	got, err := conv.Convert(amount, USD)
	require.NoError(t, err)
	require.Equal(t, "1.00 USD", got.String())
}

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	conv := NewConverter(decimal.Zero) // falls back to the default rate
	m := New(decimal.RequireFromString("12.34"), USD)

	got, err := conv.Convert(m, USD)
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(m.Amount))
}

func TestMinClampsToSmaller(t *testing.T) {
	a := New(decimal.NewFromInt(500), INR)
	b := New(decimal.NewFromInt(300), INR)

	got, err := Min(a, b)
	require.NoError(t, err)
	require.Equal(t, "300.00 INR", got.String())

	if _, err := Min(a, New(decimal.NewFromInt(1), USD)); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
}
