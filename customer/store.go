/*
store.go - Persistence interfaces for the customer directory

PURPOSE:
  The storage surface the directory Service requires. Implemented by
  store/sqlite alongside the loyalty ledger storage - one database, one
  Store struct, two interface views.

ADDRESS TRANSACTIONS:
  Default-flag management needs two writes (unset siblings, save the
  address) that must land together, so address creation and update go
  through WithAddressTx. Everything else is a single-statement write.

SEE ALSO:
  - service.go: The consumer of these interfaces
  - store/sqlite/sqlite.go: SQLite implementation
*/
package customer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface of the directory.
type Store interface {
	InsertCustomer(ctx context.Context, c *Customer) error
	UpdateCustomer(ctx context.Context, c *Customer) error

	// GetCustomer returns the customer, or ErrNotFound. Soft-deleted
	// customers are only visible with includeDeleted.
	GetCustomer(ctx context.Context, id string, includeDeleted bool) (*Customer, error)

	FindCustomers(ctx context.Context, f Filter) ([]Customer, error)

	SoftDeleteCustomer(ctx context.Context, id string, at time.Time) error
	RestoreCustomer(ctx context.Context, id string) error
	SetCustomerActive(ctx context.Context, id string, active bool) error

	// RecordPurchase bumps last_purchase_at, total_purchases, and
	// total_orders for a completed sale.
	RecordPurchase(ctx context.Context, id string, amount decimal.Decimal, at time.Time) error

	CustomerStats(ctx context.Context) (Stats, error)

	// Addresses returns a customer's addresses; typ == "" returns all.
	Addresses(ctx context.Context, customerID string, typ AddressType) ([]Address, error)
	GetAddress(ctx context.Context, customerID, addressID string) (*Address, error)
	DeleteAddress(ctx context.Context, customerID, addressID string) error

	// DefaultAddress returns the default address of a type, or
	// (nil, nil) when none is flagged.
	DefaultAddress(ctx context.Context, customerID string, typ AddressType) (*Address, error)

	// WithAddressTx runs fn inside one database transaction so the
	// default-flag unset and the address save commit together.
	WithAddressTx(ctx context.Context, fn func(tx AddressTx) error) error
}

// AddressTx is the transactional write surface for addresses.
type AddressTx interface {
	CountAddresses(ctx context.Context, customerID string) (int, error)
	CountAddressesOfType(ctx context.Context, customerID string, typ AddressType) (int, error)

	// ClearDefault unsets is_default on every address of the type except
	// the given one.
	ClearDefault(ctx context.Context, customerID string, typ AddressType, exceptID string) error

	InsertAddress(ctx context.Context, a *Address) error
	UpdateAddress(ctx context.Context, a *Address) error
}
