package config_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cartmax/backend-store/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                  "postgres://localhost:5432/store",
		"REDIS_URL":                     "redis://localhost:6379/0",
		"JWT_SECRET":                    "test-secret",
		"TAX_RATE_BPS":                  "",
		"USD_INR_RATE":                  "",
		"SHIPPING_FLAT":                 "",
		"COUPON_PER_USER_LIMIT_ENABLED": "",
		"COUPON_PER_USER_LIMIT":         "",
		"COUPON_LOCK_TTL":               "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, int64(800), cfg.TaxRateBps)
	require.True(t, cfg.USDToINRRate.Equal(decimal.NewFromInt(83)))
	require.True(t, cfg.ShippingFlat.IsZero())
	require.False(t, cfg.CouponPerUserLimitEnabled)
	require.Equal(t, 1, cfg.CouponPerUserLimit)
	require.Equal(t, "10s", cfg.CouponLockTTL.String())
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["TAX_RATE_BPS"] = "500"
	env["USD_INR_RATE"] = "85.50"
	env["SHIPPING_FLAT"] = "4.99"
	env["COUPON_PER_USER_LIMIT_ENABLED"] = "true"
	env["COUPON_PER_USER_LIMIT"] = "2"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, int64(500), cfg.TaxRateBps)
	require.True(t, cfg.USDToINRRate.Equal(decimal.RequireFromString("85.50")))
	require.True(t, cfg.ShippingFlat.Equal(decimal.RequireFromString("4.99")))
	require.True(t, cfg.CouponPerUserLimitEnabled)
	require.Equal(t, 2, cfg.CouponPerUserLimit)
}

func TestLoadRejectsBadRate(t *testing.T) {
	env := baseEnv()
	env["USD_INR_RATE"] = "-1"

	_, err := config.LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""

	_, err := config.LoadForTests(env)
	require.Error(t, err)
}
