package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaely/pos-customer/config"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	// GIVEN: No config file at the path
	// WHEN: Loading
	// THEN: Working defaults, no error

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "24h", cfg.Server.SweepInterval)
	assert.Equal(t, "MXN", cfg.Loyalty.Currency)
	assert.Equal(t, 365, cfg.Loyalty.ExpirationDays)
	assert.Equal(t, int64(1000), cfg.Loyalty.MaxPointsPerTransaction)
	assert.Equal(t, "general", cfg.Customers.DefaultGroup)
	assert.Equal(t, 5, cfg.Customers.MaxAddressesPerCustomer)
}

func TestLoad_FileOverridesAndBackfills(t *testing.T) {
	// GIVEN: A file setting only a few fields
	// WHEN: Loading
	// THEN: Set fields win, unset fields keep defaults

	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 3000
loyalty:
  currency: USD
  enabled: false
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "USD", cfg.Loyalty.Currency)
	assert.Equal(t, "./pos.db", cfg.Server.DBPath)
	assert.Equal(t, 365, cfg.Loyalty.ExpirationDays)

	lc := cfg.Loyalty.ToLoyaltyConfig()
	assert.False(t, lc.Enabled)
	assert.True(t, lc.AutoAwardOnSale, "absent auto_award_on_sale defaults on")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestToLoyaltyConfig_Decimals(t *testing.T) {
	// GIVEN: File floats for rate and minimum
	// WHEN: Converting to the engine config
	// THEN: Decimal fields carry the same values

	l := config.Loyalty{
		PointsPerCurrency:       1.5,
		Currency:                "MXN",
		MinPurchaseForPoints:    1,
		ExpirationDays:          365,
		MaxPointsPerTransaction: 1000,
	}

	lc := l.ToLoyaltyConfig()
	assert.True(t, lc.PointsPerCurrency.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, lc.MinPurchaseForPoints.Equal(decimal.NewFromInt(1)))
	assert.True(t, lc.Enabled)
}

func TestToSettings(t *testing.T) {
	c := config.Customers{
		DefaultGroup:            "vip",
		DefaultCountry:          "MX",
		DefaultCreditLimit:      500,
		MaxAddressesPerCustomer: 3,
	}

	s := c.ToSettings()
	assert.Equal(t, "vip", s.DefaultGroup)
	assert.True(t, s.DefaultActive)
	assert.True(t, s.DefaultCreditLimit.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 3, s.MaxAddressesPerCustomer)
}
