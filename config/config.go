/*
Package config loads server configuration from a YAML file.

PURPOSE:
  Central place for everything tunable at deploy time: HTTP bind
  address, database path, loyalty program rules, and address policy.
  Command-line flags in cmd/server override the file's server section.

DEFAULTS:
  Every field has a working default, so a missing config file is not an
  error - the server runs out of the box with an on-disk SQLite store
  and the standard loyalty rules (1 point per currency unit, MXN,
  365-day expiration).

USAGE:
  cfg, err := config.Load("./pos.yaml")
  if err != nil { ... }

  engine := loyalty.NewEngine(store, cfg.Loyalty.ToLoyaltyConfig(), sink)
  directory := customer.NewService(store, cfg.Customers.ToSettings(), sink)
*/
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kaely/pos-customer/customer"
	"github.com/kaely/pos-customer/loyalty"
)

// Server holds HTTP and storage settings.
type Server struct {
	Port          int    `yaml:"port"`
	DBPath        string `yaml:"db_path"`
	SweepInterval string `yaml:"sweep_interval"`
}

// Loyalty holds the points program rules.
type Loyalty struct {
	Enabled                 *bool   `yaml:"enabled"`
	PointsPerCurrency       float64 `yaml:"points_per_currency"`
	Currency                string  `yaml:"currency"`
	MinPurchaseForPoints    float64 `yaml:"min_purchase_for_points"`
	ExpirationDays          int     `yaml:"expiration_days"`
	MaxPointsPerTransaction int64   `yaml:"max_points_per_transaction"`
	AutoAwardOnSale         *bool   `yaml:"auto_award_on_sale"`
}

// Customers holds directory and address policy.
type Customers struct {
	DefaultGroup            string  `yaml:"default_group"`
	DefaultCountry          string  `yaml:"default_country"`
	DefaultCreditLimit      float64 `yaml:"default_credit_limit"`
	MaxAddressesPerCustomer int     `yaml:"max_addresses_per_customer"`
}

// Config is the parsed configuration file.
type Config struct {
	Server    Server    `yaml:"server"`
	Loyalty   Loyalty   `yaml:"loyalty"`
	Customers Customers `yaml:"customers"`
}

// Load reads and parses a YAML config file. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Re-apply defaults for fields the file left zero.
	d := defaults()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = d.Server.DBPath
	}
	if cfg.Server.SweepInterval == "" {
		cfg.Server.SweepInterval = d.Server.SweepInterval
	}
	if cfg.Loyalty.Currency == "" {
		cfg.Loyalty.Currency = d.Loyalty.Currency
	}
	if cfg.Loyalty.PointsPerCurrency == 0 {
		cfg.Loyalty.PointsPerCurrency = d.Loyalty.PointsPerCurrency
	}
	if cfg.Loyalty.ExpirationDays == 0 {
		cfg.Loyalty.ExpirationDays = d.Loyalty.ExpirationDays
	}
	if cfg.Loyalty.MaxPointsPerTransaction == 0 {
		cfg.Loyalty.MaxPointsPerTransaction = d.Loyalty.MaxPointsPerTransaction
	}
	if cfg.Customers.DefaultGroup == "" {
		cfg.Customers.DefaultGroup = d.Customers.DefaultGroup
	}
	if cfg.Customers.DefaultCountry == "" {
		cfg.Customers.DefaultCountry = d.Customers.DefaultCountry
	}
	if cfg.Customers.MaxAddressesPerCustomer == 0 {
		cfg.Customers.MaxAddressesPerCustomer = d.Customers.MaxAddressesPerCustomer
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: Server{
			Port:          8080,
			DBPath:        "./pos.db",
			SweepInterval: "24h",
		},
		Loyalty: Loyalty{
			PointsPerCurrency:       1,
			Currency:                "MXN",
			MinPurchaseForPoints:    1,
			ExpirationDays:          365,
			MaxPointsPerTransaction: 1000,
		},
		Customers: Customers{
			DefaultGroup:            "general",
			DefaultCountry:          "MX",
			MaxAddressesPerCustomer: 5,
		},
	}
}

// ToLoyaltyConfig converts the file section to the engine's config.
// Absent booleans default to true: the program and auto-award are on
// unless explicitly disabled.
func (l Loyalty) ToLoyaltyConfig() loyalty.Config {
	cfg := loyalty.Config{
		Enabled:                 true,
		PointsPerCurrency:       decimal.NewFromFloat(l.PointsPerCurrency),
		Currency:                l.Currency,
		MinPurchaseForPoints:    decimal.NewFromFloat(l.MinPurchaseForPoints),
		ExpirationDays:          l.ExpirationDays,
		MaxPointsPerTransaction: l.MaxPointsPerTransaction,
		AutoAwardOnSale:         true,
	}
	if l.Enabled != nil {
		cfg.Enabled = *l.Enabled
	}
	if l.AutoAwardOnSale != nil {
		cfg.AutoAwardOnSale = *l.AutoAwardOnSale
	}
	return cfg
}

// ToSettings converts the file section to the directory's settings.
func (c Customers) ToSettings() customer.Settings {
	return customer.Settings{
		DefaultGroup:            c.DefaultGroup,
		DefaultCountry:          c.DefaultCountry,
		DefaultActive:           true,
		DefaultCreditLimit:      decimal.NewFromFloat(c.DefaultCreditLimit),
		MaxAddressesPerCustomer: c.MaxAddressesPerCustomer,
	}
}
