/*
store.go - Persistence interfaces for the loyalty ledger

PURPOSE:
  Defines the narrow storage surface the Engine requires. The concrete
  implementation lives in store/sqlite; the Engine never sees SQL.

THE TWO-WRITE TRANSACTIONAL PROTOCOL:
  The denormalized points_balance on the customer row is a cache; the
  ledger is the source of truth. Every code path that creates or flags a
  ledger entry MUST apply the equal-and-opposite delta to the balance in
  the same transaction. WithTx is the only way to obtain the write
  operations, which makes it impossible to insert an entry or touch the
  balance outside a transaction boundary.

APPEND-ONLY ENFORCEMENT:
  Tx exposes no update or delete for ledger rows. The single permitted
  mutation is MarkEntryExpired, which flips is_expired false -> true on
  an earned entry and fails for anything else.

SEE ALSO:
  - engine.go: The sole consumer of these interfaces
  - store/sqlite/sqlite.go: SQLite implementation
*/
package loyalty

import (
	"context"
	"time"
)

// Store is the read side plus the transaction factory. Reads outside a
// transaction observe only committed state, so the balance invariant
// holds at every call.
type Store interface {
	// WithTx runs fn inside one database transaction. If fn returns an
	// error the transaction rolls back and nothing is visible; otherwise
	// both writes commit together.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// CustomerBalance returns the denormalized balance, or
	// ErrCustomerNotFound.
	CustomerBalance(ctx context.Context, customerID string) (int64, error)

	// CustomerActive reports the customer's active flag, or
	// ErrCustomerNotFound.
	CustomerActive(ctx context.Context, customerID string) (bool, error)

	// Entries returns ledger entries for a customer, newest first,
	// narrowed by the filter.
	Entries(ctx context.Context, customerID string, f HistoryFilter) ([]LedgerEntry, error)

	// SumEntries returns the signed sum of every ledger entry for the
	// customer, expired ones included. Used by the consistency check.
	SumEntries(ctx context.Context, customerID string) (int64, error)

	// ValidPoints sums earned entries that are not flagged expired and
	// whose expiry is unset or after asOf.
	ValidPoints(ctx context.Context, customerID string, asOf time.Time) (int64, error)

	// ExpiredPoints sums earned entries flagged expired.
	ExpiredPoints(ctx context.Context, customerID string) (int64, error)

	// ExpiringSoonPoints sums earned, unexpired entries whose expiry
	// falls in (asOf, cutoff].
	ExpiringSoonPoints(ctx context.Context, customerID string, asOf, cutoff time.Time) (int64, error)

	// ExpirableEntries returns every earned entry with is_expired=false
	// and expires_at <= asOf, across all customers, oldest expiry first.
	// The stable order keeps sweep debits deterministic and auditable.
	ExpirableEntries(ctx context.Context, asOf time.Time) ([]LedgerEntry, error)

	// LedgerTotals computes the program-wide sums for Statistics.
	LedgerTotals(ctx context.Context, asOf time.Time, soonWindow time.Duration) (Totals, error)
}

// Tx is the write surface, available only inside WithTx.
type Tx interface {
	// InsertEntry appends one immutable ledger entry.
	InsertEntry(ctx context.Context, e *LedgerEntry) error

	// AdjustBalance applies a signed delta to the customer's
	// points_balance. Returns ErrCustomerNotFound when the customer does
	// not exist, which rolls the whole transaction back.
	AdjustBalance(ctx context.Context, customerID string, delta int64) error

	// MarkEntryExpired flips is_expired on an earned entry. One-way:
	// fails with ErrEntryNotExpirable if the entry is missing, not
	// earned, or already flagged.
	MarkEntryExpired(ctx context.Context, entryID string) error
}
