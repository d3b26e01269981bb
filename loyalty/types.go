/*
Package loyalty implements the customer loyalty points ledger.

PURPOSE:
  This package contains the core accounting subsystem of the POS
  customer module: an append-only ledger of signed point transactions,
  a denormalized running balance on the customer record, and the
  business rules for earning, redeeming, adjusting, and expiring points.

KEY CONCEPTS IN THIS FILE (types.go):
  - LedgerEntry: An immutable record of one point-affecting transaction
  - EntryType: earned | redeemed | adjusted | expired
  - Reference: A loose {kind, id} pointer to the originating business
    event (a sale, a support case), deliberately not a foreign key
  - Config: The immutable configuration value injected into the Engine

SIGN CONVENTION:
  earned            points > 0
  redeemed          points < 0
  expired           points < 0
  adjusted          points of either sign (manual correction)

LEDGER ENTRY LIFECYCLE:
  Created once, inside the same database transaction as the balance
  update. Never modified afterwards, with exactly one exception: the
  expiration sweep flips is_expired from false to true on earned
  entries. Never deleted - the ledger is the audit trail and the source
  of truth for the balance.

SEE ALSO:
  - engine.go: Business rules and the transactional protocol
  - errors.go: Error taxonomy
  - store.go: Persistence interfaces
*/
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY TYPE - Tagged variant of a ledger entry
// =============================================================================

type EntryType string

const (
	EntryEarned   EntryType = "earned"   // Points granted for a purchase
	EntryRedeemed EntryType = "redeemed" // Points spent by the customer
	EntryAdjusted EntryType = "adjusted" // Manual admin correction, either sign
	EntryExpired  EntryType = "expired"  // Points removed by the expiration sweep
)

// Valid reports whether t is one of the four known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryEarned, EntryRedeemed, EntryAdjusted, EntryExpired:
		return true
	}
	return false
}

// =============================================================================
// REFERENCE - Loose pointer to the originating business event
// =============================================================================

// Reference identifies the business event that produced a ledger entry,
// e.g. {Kind: "sale", ID: "t-1042"}. It is provenance only: the referenced
// entity's lifecycle is intentionally decoupled, so no referential
// integrity is enforced. The zero value means "no reference".
type Reference struct {
	Kind string
	ID   string
}

// IsZero reports whether the reference is unset.
func (r Reference) IsZero() bool { return r.Kind == "" && r.ID == "" }

// =============================================================================
// LEDGER ENTRY - Immutable signed-points transaction record
// =============================================================================

// LedgerEntry is one immutable point transaction. Points is the signed
// delta applied to the customer's balance; the sum of all entries for a
// customer always equals the denormalized points_balance.
type LedgerEntry struct {
	ID         string
	CustomerID string
	Type       EntryType
	Points     int64

	// Amount is the purchase amount that generated the entry.
	// Present only for earned entries.
	Amount   *decimal.Decimal
	Currency string

	// Description is always populated; the engine fills in a templated
	// default when the caller omits it.
	Description string

	Reference Reference

	// ExpiresAt is set automatically for earned entries using the
	// configured horizon. Nil for redeemed/adjusted/expired entries.
	ExpiresAt *time.Time

	// IsExpired is the only field ever mutated after creation, and only
	// from false to true, and only on earned entries.
	IsExpired bool

	CreatedAt time.Time
}

// =============================================================================
// CONFIG - Immutable engine configuration
// =============================================================================

// Config collects every loyalty setting into one immutable value passed
// to the Engine at construction. Business logic never reads global state,
// which keeps point computation deterministic and testable.
type Config struct {
	// Enabled gates every mutating operation. When false, reads still
	// work but award/redeem/adjust/expire fail fast with ErrDisabled.
	Enabled bool

	// PointsPerCurrency is the earn rate: points granted per unit of
	// the home currency spent, before flooring.
	PointsPerCurrency decimal.Decimal

	// Currency is the ISO-like 3-letter home currency code stamped on
	// every ledger entry.
	Currency string

	// MinPurchaseForPoints is the purchase amount below which no points
	// are earned.
	MinPurchaseForPoints decimal.Decimal

	// ExpirationDays is the horizon after which earned points expire.
	ExpirationDays int

	// MaxPointsPerTransaction caps the points computed for a single
	// purchase.
	MaxPointsPerTransaction int64

	// AutoAwardOnSale enables the completed-sale integration: when true,
	// ProcessPurchase awards points automatically.
	AutoAwardOnSale bool
}

// DefaultConfig returns the stock configuration: enabled, 1 point per
// currency unit of MXN, 1.00 minimum purchase, 365-day horizon, 1000
// points per transaction cap.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		PointsPerCurrency:       decimal.NewFromInt(1),
		Currency:                "MXN",
		MinPurchaseForPoints:    decimal.RequireFromString("1.00"),
		ExpirationDays:          365,
		MaxPointsPerTransaction: 1000,
		AutoAwardOnSale:         true,
	}
}

// =============================================================================
// ENTRY OPTIONS - Optional fields for mutating operations
// =============================================================================

// EntryOptions carries the optional fields of award/redeem/adjust calls.
type EntryOptions struct {
	Description string
	Reference   Reference

	// ExpiresAt overrides the configured horizon on earned entries.
	// Ignored for other entry types.
	ExpiresAt *time.Time
}

// =============================================================================
// HISTORY FILTER - Read-side query parameters
// =============================================================================

// HistoryFilter narrows a ledger history query. Zero-valued fields are
// ignored.
type HistoryFilter struct {
	Type      EntryType
	From      *time.Time
	To        *time.Time
	Reference Reference
	Limit     int
}

// =============================================================================
// AGGREGATES
// =============================================================================

// Totals are the raw ledger-wide sums used to build Statistics.
// Redeemed and Expired are absolute values.
type Totals struct {
	Awarded             int64
	Redeemed            int64
	Expired             int64
	Adjusted            int64
	CurrentBalance      int64
	CustomersWithPoints int64
	ExpiringSoon        int64
}

// Statistics is the program-wide loyalty summary exposed by the API.
type Statistics struct {
	TotalPointsAwarded  int64   `json:"total_points_awarded"`
	TotalPointsRedeemed int64   `json:"total_points_redeemed"`
	TotalPointsExpired  int64   `json:"total_points_expired"`
	TotalPointsAdjusted int64   `json:"total_points_adjusted"`
	CurrentBalance      int64   `json:"current_balance"`
	CustomersWithPoints int64   `json:"customers_with_points"`
	PointsExpiringSoon  int64   `json:"points_expiring_soon"`
	RedemptionRate      float64 `json:"redemption_rate"`
	ExpirationRate      float64 `json:"expiration_rate"`
}

// ConsistencyReport compares the denormalized balance against the
// ledger sum for one customer. Drift other than zero means a write path
// bypassed the transactional protocol.
type ConsistencyReport struct {
	CustomerID string `json:"customer_id"`
	Balance    int64  `json:"balance"`
	LedgerSum  int64  `json:"ledger_sum"`
	Drift      int64  `json:"drift"`
	Consistent bool   `json:"consistent"`
}
