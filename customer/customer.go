/*
Package customer implements the customer directory of the POS module:
customer profiles, billing/shipping addresses, and the search surface.

PURPOSE:
  The directory owns customer identity and profile data. It exposes a
  narrow interface to the loyalty engine (read balance, read active
  flag); balance mutation itself happens only through the loyalty
  ledger's transactional protocol, never here.

KEY CONCEPTS IN THIS FILE (customer.go):
  - Customer: Profile, gating flags, and the denormalized points balance
  - Filter: Search parameters with whitelisted ordering
  - Stats: Directory-wide aggregates for the statistics endpoint

SOFT DELETE:
  Customers are soft-deleted (deleted_at timestamp) and restorable. The
  points ledger is never touched by deletion: the audit trail must
  survive the customer record's lifecycle.

SEE ALSO:
  - address.go: Billing/shipping addresses and the default-flag rules
  - service.go: Orchestration, validation, events
*/
package customer

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CUSTOMER
// =============================================================================

// Customer is one customer record. PointsBalance is a denormalized
// cache of the loyalty ledger sum; only the loyalty engine writes it.
type Customer struct {
	ID string

	// Profile identity.
	Name  string
	Email string
	Phone string

	// Fiscal identifiers.
	RFC   string
	TaxID string

	Group       string
	CreditLimit decimal.Decimal

	PointsBalance int64
	IsActive      bool

	// Purchase aggregates, maintained by RecordPurchase.
	LastPurchaseAt *time.Time
	TotalPurchases decimal.Decimal
	TotalOrders    int64

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// HasAvailableCredit reports whether the customer has any credit line.
func (c *Customer) HasAvailableCredit() bool {
	return c.CreditLimit.IsPositive()
}

// HasPoints reports whether the customer holds a positive balance.
func (c *Customer) HasPoints() bool {
	return c.PointsBalance > 0
}

// =============================================================================
// SEARCH FILTER
// =============================================================================

// Filter narrows a directory search. Zero-valued fields are ignored.
type Filter struct {
	RFC    string
	Email  string
	Group  string
	Active *bool

	// Search matches name, email, RFC, or tax id, case-insensitive.
	Search string

	MinCreditLimit *decimal.Decimal
	MaxCreditLimit *decimal.Decimal
	MinPoints      *int64
	MaxPoints      *int64
	MinPurchases   *decimal.Decimal
	MaxPurchases   *decimal.Decimal

	PurchasedAfter  *time.Time
	PurchasedBefore *time.Time

	// IncludeDeleted also returns soft-deleted customers.
	IncludeDeleted bool

	OrderBy        string
	OrderDesc      bool
	Limit          int
	Offset         int
}

// orderableFields whitelists the columns a caller may sort by.
var orderableFields = map[string]bool{
	"id":               true,
	"name":             true,
	"rfc":              true,
	"customer_group":   true,
	"credit_limit":     true,
	"points_balance":   true,
	"total_purchases":  true,
	"total_orders":     true,
	"last_purchase_at": true,
	"created_at":       true,
	"updated_at":       true,
}

// OrderColumn returns the validated order column, falling back to
// created_at for anything outside the whitelist.
func (f Filter) OrderColumn() string {
	if orderableFields[f.OrderBy] {
		return f.OrderBy
	}
	return "created_at"
}

// =============================================================================
// STATS
// =============================================================================

// Stats is the directory-wide summary for the statistics endpoint.
type Stats struct {
	Total          int64           `json:"total"`
	Active         int64           `json:"active"`
	Inactive       int64           `json:"inactive"`
	WithCredit     int64           `json:"with_credit"`
	WithPoints     int64           `json:"with_points"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
	TotalOrders    int64           `json:"total_orders"`
}
