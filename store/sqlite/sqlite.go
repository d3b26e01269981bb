/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements customer.Store (directory + addresses) and loyalty.Store
  (points ledger + balance accumulator) on one database. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  customers:           Profiles plus the denormalized points_balance
  customer_addresses:  Billing/shipping addresses with default flags
  points_ledger:       Append-only ledger of signed point transactions

APPEND-ONLY ENFORCEMENT:
  points_ledger rows are inserted and never updated or deleted, with one
  exception: MarkEntryExpired flips is_expired false -> true on earned
  entries. The UPDATE's WHERE clause encodes the one-way rule, so a
  second flip (or a flip on any other entry type) affects zero rows and
  surfaces as ErrEntryNotExpirable.

THE TWO-WRITE PROTOCOL:
  WithTx hands the loyalty engine a transactional view whose
  AdjustBalance issues a relative UPDATE
  (points_balance = points_balance + ?). Entry insert and balance delta
  commit or roll back together; the balance cannot drift from the
  ledger through this package.

CONCURRENCY:
  SQLite in WAL mode supports one writer at a time; a mutex serializes
  write transactions. Reads take the shared lock. Per-customer
  serialization of the read-check-write sequence is the loyalty
  engine's job, not the store's.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/pos.db")   // or ":memory:"
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := loyalty.NewEngine(store, cfg, sink)
  directory := customer.NewService(store, settings, sink)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - loyalty/store.go: Ledger interface definitions
  - customer/store.go: Directory interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/kaely/pos-customer/customer"
	"github.com/kaely/pos-customer/loyalty"
)

// Store implements customer.Store and loyalty.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Customers (directory + denormalized points balance)
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		rfc TEXT,
		tax_id TEXT,
		customer_group TEXT NOT NULL DEFAULT 'general',
		credit_limit TEXT NOT NULL DEFAULT '0',
		points_balance INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_purchase_at TEXT,
		total_purchases TEXT NOT NULL DEFAULT '0',
		total_orders INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_customers_rfc ON customers(rfc);
	CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email);
	CREATE INDEX IF NOT EXISTS idx_customers_group ON customers(customer_group);
	CREATE INDEX IF NOT EXISTS idx_customers_points ON customers(points_balance);

	-- Addresses
	CREATE TABLE IF NOT EXISTS customer_addresses (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		type TEXT NOT NULL,
		street TEXT NOT NULL,
		street_number TEXT,
		interior TEXT,
		neighborhood TEXT,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT 'MX',
		phone TEXT,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_addresses_customer ON customer_addresses(customer_id);
	CREATE INDEX IF NOT EXISTS idx_addresses_customer_type ON customer_addresses(customer_id, type);

	-- Points ledger (append-only)
	CREATE TABLE IF NOT EXISTS points_ledger (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers(id),
		entry_type TEXT NOT NULL,
		points INTEGER NOT NULL,
		amount TEXT,
		currency TEXT NOT NULL,
		description TEXT NOT NULL,
		reference_kind TEXT,
		reference_id TEXT,
		expires_at TEXT,
		is_expired BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_customer
		ON points_ledger(customer_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_ledger_customer_type
		ON points_ledger(customer_id, entry_type);

	-- Sweep hot path: earned, unexpired, overdue
	CREATE INDEX IF NOT EXISTS idx_ledger_expirable
		ON points_ledger(entry_type, is_expired, expires_at);

	CREATE INDEX IF NOT EXISTS idx_ledger_reference
		ON points_ledger(reference_kind, reference_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POINTS LEDGER (loyalty.Store interface)
// =============================================================================

// WithTx executes fn within a database transaction exposing the ledger
// write operations.
func (s *Store) WithTx(ctx context.Context, fn func(tx loyalty.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &loyalty.StorageError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&ledgerTx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &loyalty.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

type ledgerTx struct {
	tx *sql.Tx
}

func (lt *ledgerTx) InsertEntry(ctx context.Context, e *loyalty.LedgerEntry) error {
	query := `
		INSERT INTO points_ledger
		(id, customer_id, entry_type, points, amount, currency, description,
		 reference_kind, reference_id, expires_at, is_expired, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var amount sql.NullString
	if e.Amount != nil {
		amount = sql.NullString{String: e.Amount.String(), Valid: true}
	}
	var expiresAt sql.NullString
	if e.ExpiresAt != nil {
		expiresAt = sql.NullString{String: e.ExpiresAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := lt.tx.ExecContext(ctx, query,
		e.ID,
		e.CustomerID,
		e.Type,
		e.Points,
		amount,
		e.Currency,
		e.Description,
		nullString(e.Reference.Kind),
		nullString(e.Reference.ID),
		expiresAt,
		e.IsExpired,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &loyalty.StorageError{Op: "insert ledger entry", Err: err}
	}
	return nil
}

func (lt *ledgerTx) AdjustBalance(ctx context.Context, customerID string, delta int64) error {
	res, err := lt.tx.ExecContext(ctx, `
		UPDATE customers
		SET points_balance = points_balance + ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, delta, time.Now().UTC().Format(time.RFC3339), customerID)
	if err != nil {
		return &loyalty.StorageError{Op: "adjust balance", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &loyalty.StorageError{Op: "adjust balance", Err: err}
	}
	if n == 0 {
		return loyalty.ErrCustomerNotFound
	}
	return nil
}

func (lt *ledgerTx) MarkEntryExpired(ctx context.Context, entryID string) error {
	// Only unexpired earned entries can be flagged; the WHERE clause
	// makes the flip one-way.
	res, err := lt.tx.ExecContext(ctx, `
		UPDATE points_ledger
		SET is_expired = TRUE
		WHERE id = ? AND entry_type = 'earned' AND is_expired = FALSE
	`, entryID)
	if err != nil {
		return &loyalty.StorageError{Op: "mark entry expired", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &loyalty.StorageError{Op: "mark entry expired", Err: err}
	}
	if n == 0 {
		return loyalty.ErrEntryNotExpirable
	}
	return nil
}

// CustomerBalance returns the denormalized balance.
func (s *Store) CustomerBalance(ctx context.Context, customerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	err := s.db.QueryRowContext(ctx,
		"SELECT points_balance FROM customers WHERE id = ? AND deleted_at IS NULL",
		customerID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, loyalty.ErrCustomerNotFound
	}
	if err != nil {
		return 0, &loyalty.StorageError{Op: "read balance", Err: err}
	}
	return balance, nil
}

// CustomerActive reports the customer's active flag.
func (s *Store) CustomerActive(ctx context.Context, customerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active bool
	err := s.db.QueryRowContext(ctx,
		"SELECT is_active FROM customers WHERE id = ? AND deleted_at IS NULL",
		customerID,
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, loyalty.ErrCustomerNotFound
	}
	if err != nil {
		return false, &loyalty.StorageError{Op: "read active flag", Err: err}
	}
	return active, nil
}

// Entries returns ledger entries for a customer, newest first.
func (s *Store) Entries(ctx context.Context, customerID string, f loyalty.HistoryFilter) ([]loyalty.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, customer_id, entry_type, points, amount, currency, description,
		       reference_kind, reference_id, expires_at, is_expired, created_at
		FROM points_ledger
		WHERE customer_id = ?
	`
	args := []any{customerID}

	if f.Type != "" {
		query += " AND entry_type = ?"
		args = append(args, f.Type)
	}
	if f.From != nil {
		query += " AND created_at >= ?"
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += " AND created_at <= ?"
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	if f.Reference.Kind != "" {
		query += " AND reference_kind = ?"
		args = append(args, f.Reference.Kind)
	}
	if f.Reference.ID != "" {
		query += " AND reference_id = ?"
		args = append(args, f.Reference.ID)
	}

	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return s.queryEntries(ctx, query, args...)
}

// SumEntries returns the signed sum of every entry for the customer.
// Used for consistency checks against the denormalized balance.
func (s *Store) SumEntries(ctx context.Context, customerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(points), 0) FROM points_ledger WHERE customer_id = ?",
		customerID,
	).Scan(&sum)
	if err != nil {
		return 0, &loyalty.StorageError{Op: "sum ledger entries", Err: err}
	}
	return sum, nil
}

// ValidPoints sums earned entries that are not flagged expired and not
// past their expiry date.
func (s *Store) ValidPoints(ctx context.Context, customerID string, asOf time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM points_ledger
		WHERE customer_id = ? AND entry_type = 'earned' AND is_expired = FALSE
		  AND (expires_at IS NULL OR expires_at > ?)
	`, customerID, asOf.UTC().Format(time.RFC3339)).Scan(&sum)
	if err != nil {
		return 0, &loyalty.StorageError{Op: "sum valid points", Err: err}
	}
	return sum, nil
}

// ExpiredPoints sums earned entries flagged expired.
func (s *Store) ExpiredPoints(ctx context.Context, customerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM points_ledger
		WHERE customer_id = ? AND entry_type = 'earned' AND is_expired = TRUE
	`, customerID).Scan(&sum)
	if err != nil {
		return 0, &loyalty.StorageError{Op: "sum expired points", Err: err}
	}
	return sum, nil
}

// ExpiringSoonPoints sums earned, unexpired entries expiring in
// (asOf, cutoff].
func (s *Store) ExpiringSoonPoints(ctx context.Context, customerID string, asOf, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM points_ledger
		WHERE customer_id = ? AND entry_type = 'earned' AND is_expired = FALSE
		  AND expires_at > ? AND expires_at <= ?
	`, customerID, asOf.UTC().Format(time.RFC3339), cutoff.UTC().Format(time.RFC3339)).Scan(&sum)
	if err != nil {
		return 0, &loyalty.StorageError{Op: "sum expiring points", Err: err}
	}
	return sum, nil
}

// ExpirableEntries returns every overdue earned entry, oldest expiry
// first, for the expiration sweep.
func (s *Store) ExpirableEntries(ctx context.Context, asOf time.Time) ([]loyalty.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, customer_id, entry_type, points, amount, currency, description,
		       reference_kind, reference_id, expires_at, is_expired, created_at
		FROM points_ledger
		WHERE entry_type = 'earned' AND is_expired = FALSE AND expires_at <= ?
		ORDER BY expires_at ASC, created_at ASC
	`
	return s.queryEntries(ctx, query, asOf.UTC().Format(time.RFC3339))
}

// LedgerTotals computes the program-wide sums for statistics.
func (s *Store) LedgerTotals(ctx context.Context, asOf time.Time, soonWindow time.Duration) (loyalty.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t loyalty.Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'earned' THEN points ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'redeemed' THEN -points ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'expired' THEN -points ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'adjusted' THEN points ELSE 0 END), 0)
		FROM points_ledger
	`).Scan(&t.Awarded, &t.Redeemed, &t.Expired, &t.Adjusted)
	if err != nil {
		return t, &loyalty.StorageError{Op: "sum ledger totals", Err: err}
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points_balance), 0),
		       COALESCE(SUM(CASE WHEN points_balance > 0 THEN 1 ELSE 0 END), 0)
		FROM customers WHERE deleted_at IS NULL
	`).Scan(&t.CurrentBalance, &t.CustomersWithPoints)
	if err != nil {
		return t, &loyalty.StorageError{Op: "sum customer balances", Err: err}
	}

	cutoff := asOf.Add(soonWindow)
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM points_ledger
		WHERE entry_type = 'earned' AND is_expired = FALSE
		  AND expires_at > ? AND expires_at <= ?
	`, asOf.UTC().Format(time.RFC3339), cutoff.UTC().Format(time.RFC3339)).Scan(&t.ExpiringSoon)
	if err != nil {
		return t, &loyalty.StorageError{Op: "sum expiring soon", Err: err}
	}

	return t, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]loyalty.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &loyalty.StorageError{Op: "query ledger entries", Err: err}
	}
	defer rows.Close()

	var entries []loyalty.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (loyalty.LedgerEntry, error) {
	var (
		e             loyalty.LedgerEntry
		amount        sql.NullString
		referenceKind sql.NullString
		referenceID   sql.NullString
		expiresAt     sql.NullString
		createdAt     string
	)

	err := rows.Scan(
		&e.ID, &e.CustomerID, &e.Type, &e.Points, &amount, &e.Currency,
		&e.Description, &referenceKind, &referenceID, &expiresAt, &e.IsExpired, &createdAt,
	)
	if err != nil {
		return e, &loyalty.StorageError{Op: "scan ledger entry", Err: err}
	}

	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return e, &loyalty.StorageError{Op: "parse entry amount", Err: err}
		}
		e.Amount = &d
	}
	e.Reference = loyalty.Reference{Kind: referenceKind.String, ID: referenceID.String}
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		e.ExpiresAt = &t
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return e, nil
}

// =============================================================================
// CUSTOMER DIRECTORY (customer.Store interface)
// =============================================================================

const customerColumns = `id, name, email, phone, rfc, tax_id, customer_group,
	credit_limit, points_balance, is_active, last_purchase_at,
	total_purchases, total_orders, created_at, updated_at, deleted_at`

// InsertCustomer stores a new customer.
func (s *Store) InsertCustomer(ctx context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO customers
		(id, name, email, phone, rfc, tax_id, customer_group, credit_limit,
		 points_balance, is_active, last_purchase_at, total_purchases, total_orders,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Email, nullString(c.Phone), nullString(c.RFC), nullString(c.TaxID),
		c.Group, c.CreditLimit.String(), c.PointsBalance, c.IsActive,
		nullTime(c.LastPurchaseAt), c.TotalPurchases.String(), c.TotalOrders,
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// UpdateCustomer replaces a customer's mutable profile fields. The
// points balance is deliberately excluded: only the ledger transaction
// writes it.
func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE customers SET
			name = ?, email = ?, phone = ?, rfc = ?, tax_id = ?,
			customer_group = ?, credit_limit = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query,
		c.Name, c.Email, nullString(c.Phone), nullString(c.RFC), nullString(c.TaxID),
		c.Group, c.CreditLimit.String(), c.IsActive,
		c.UpdatedAt.UTC().Format(time.RFC3339), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return requireRow(res, customer.ErrNotFound)
}

// GetCustomer retrieves a customer by id.
func (s *Store) GetCustomer(ctx context.Context, id string, includeDeleted bool) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + customerColumns + " FROM customers WHERE id = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	row := s.db.QueryRowContext(ctx, query, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindCustomers returns customers matching the filter.
func (s *Store) FindCustomers(ctx context.Context, f customer.Filter) ([]customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + customerColumns + " FROM customers WHERE 1=1"
	var args []any

	if !f.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if f.RFC != "" {
		query += " AND rfc = ?"
		args = append(args, strings.ToUpper(f.RFC))
	}
	if f.Email != "" {
		query += " AND email = ?"
		args = append(args, strings.ToLower(f.Email))
	}
	if f.Group != "" {
		query += " AND customer_group = ?"
		args = append(args, f.Group)
	}
	if f.Active != nil {
		query += " AND is_active = ?"
		args = append(args, *f.Active)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query += ` AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ?
			OR LOWER(COALESCE(rfc, '')) LIKE ? OR LOWER(COALESCE(tax_id, '')) LIKE ?)`
		args = append(args, like, like, like, like)
	}
	if f.MinCreditLimit != nil {
		query += " AND CAST(credit_limit AS REAL) >= ?"
		args = append(args, toFloat(*f.MinCreditLimit))
	}
	if f.MaxCreditLimit != nil {
		query += " AND CAST(credit_limit AS REAL) <= ?"
		args = append(args, toFloat(*f.MaxCreditLimit))
	}
	if f.MinPoints != nil {
		query += " AND points_balance >= ?"
		args = append(args, *f.MinPoints)
	}
	if f.MaxPoints != nil {
		query += " AND points_balance <= ?"
		args = append(args, *f.MaxPoints)
	}
	if f.MinPurchases != nil {
		query += " AND CAST(total_purchases AS REAL) >= ?"
		args = append(args, toFloat(*f.MinPurchases))
	}
	if f.MaxPurchases != nil {
		query += " AND CAST(total_purchases AS REAL) <= ?"
		args = append(args, toFloat(*f.MaxPurchases))
	}
	if f.PurchasedAfter != nil {
		query += " AND last_purchase_at >= ?"
		args = append(args, f.PurchasedAfter.UTC().Format(time.RFC3339))
	}
	if f.PurchasedBefore != nil {
		query += " AND last_purchase_at <= ?"
		args = append(args, f.PurchasedBefore.UTC().Format(time.RFC3339))
	}

	// OrderColumn returns a whitelisted column name, never user input.
	query += " ORDER BY " + f.OrderColumn()
	if f.OrderDesc {
		query += " DESC"
	} else {
		query += " ASC"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// SoftDeleteCustomer stamps deleted_at. The points ledger is untouched.
func (s *Store) SoftDeleteCustomer(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return requireRow(res, customer.ErrNotFound)
}

// RestoreCustomer clears deleted_at.
func (s *Store) RestoreCustomer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to restore customer: %w", err)
	}
	return requireRow(res, customer.ErrNotFound)
}

// SetCustomerActive flips the active flag.
func (s *Store) SetCustomerActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, active, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	return requireRow(res, customer.ErrNotFound)
}

// RecordPurchase bumps the purchase aggregates for a completed sale.
func (s *Store) RecordPurchase(ctx context.Context, id string, amount decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// total_purchases is decimal text; read-modify-write under the
	// store mutex keeps the sum exact.
	var current string
	err := s.db.QueryRowContext(ctx,
		"SELECT total_purchases FROM customers WHERE id = ? AND deleted_at IS NULL", id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return customer.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read purchase totals: %w", err)
	}

	total, err := decimal.NewFromString(current)
	if err != nil {
		return fmt.Errorf("failed to parse purchase totals: %w", err)
	}
	total = total.Add(amount)

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET
			total_purchases = ?, total_orders = total_orders + 1,
			last_purchase_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, total.String(), at.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}
	return requireRow(res, customer.ErrNotFound)
}

// CustomerStats computes the directory-wide summary.
func (s *Store) CustomerStats(ctx context.Context) (customer.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		stats          customer.Stats
		totalPurchases float64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_active THEN 0 ELSE 1 END), 0),
		       COALESCE(SUM(CASE WHEN CAST(credit_limit AS REAL) > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN points_balance > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CAST(total_purchases AS REAL)), 0),
		       COALESCE(SUM(total_orders), 0)
		FROM customers WHERE deleted_at IS NULL
	`).Scan(&stats.Total, &stats.Active, &stats.Inactive,
		&stats.WithCredit, &stats.WithPoints, &totalPurchases, &stats.TotalOrders)
	if err != nil {
		return stats, fmt.Errorf("failed to compute customer stats: %w", err)
	}

	stats.TotalPurchases = decimal.NewFromFloat(totalPurchases).Round(2)
	return stats, nil
}

// =============================================================================
// ADDRESSES
// =============================================================================

const addressColumns = `id, customer_id, type, street, street_number, interior,
	neighborhood, city, state, postal_code, country, phone, is_default,
	created_at, updated_at`

// WithAddressTx executes fn within a database transaction exposing the
// address write operations. Default-flag maintenance (count limits,
// clearing siblings) happens atomically inside.
func (s *Store) WithAddressTx(ctx context.Context, fn func(tx customer.AddressTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&addressTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type addressTx struct {
	tx *sql.Tx
}

func (at *addressTx) CountAddresses(ctx context.Context, customerID string) (int, error) {
	var n int
	err := at.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customer_addresses WHERE customer_id = ?", customerID,
	).Scan(&n)
	return n, err
}

func (at *addressTx) CountAddressesOfType(ctx context.Context, customerID string, typ customer.AddressType) (int, error) {
	var n int
	err := at.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customer_addresses WHERE customer_id = ? AND type = ?",
		customerID, typ,
	).Scan(&n)
	return n, err
}

func (at *addressTx) ClearDefault(ctx context.Context, customerID string, typ customer.AddressType, exceptID string) error {
	_, err := at.tx.ExecContext(ctx, `
		UPDATE customer_addresses SET is_default = FALSE
		WHERE customer_id = ? AND type = ? AND id != ?
	`, customerID, typ, exceptID)
	return err
}

func (at *addressTx) InsertAddress(ctx context.Context, a *customer.Address) error {
	query := `
		INSERT INTO customer_addresses
		(id, customer_id, type, street, street_number, interior, neighborhood,
		 city, state, postal_code, country, phone, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := at.tx.ExecContext(ctx, query,
		a.ID, a.CustomerID, a.Type, a.Street, nullString(a.StreetNumber),
		nullString(a.Interior), nullString(a.Neighborhood), a.City, a.State,
		a.PostalCode, a.Country, nullString(a.Phone), a.IsDefault,
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (at *addressTx) UpdateAddress(ctx context.Context, a *customer.Address) error {
	query := `
		UPDATE customer_addresses SET
			type = ?, street = ?, street_number = ?, interior = ?, neighborhood = ?,
			city = ?, state = ?, postal_code = ?, country = ?, phone = ?,
			is_default = ?, updated_at = ?
		WHERE id = ? AND customer_id = ?
	`
	res, err := at.tx.ExecContext(ctx, query,
		a.Type, a.Street, nullString(a.StreetNumber), nullString(a.Interior),
		nullString(a.Neighborhood), a.City, a.State, a.PostalCode, a.Country,
		nullString(a.Phone), a.IsDefault, a.UpdatedAt.UTC().Format(time.RFC3339),
		a.ID, a.CustomerID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, customer.ErrNotFound)
}

// Addresses returns a customer's addresses; typ == "" returns all
// types. Defaults sort first.
func (s *Store) Addresses(ctx context.Context, customerID string, typ customer.AddressType) ([]customer.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + addressColumns + " FROM customer_addresses WHERE customer_id = ?"
	args := []any{customerID}
	if typ != "" {
		query += " AND type = ?"
		args = append(args, typ)
	}
	query += " ORDER BY is_default DESC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []customer.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

// GetAddress retrieves one address scoped to its customer.
func (s *Store) GetAddress(ctx context.Context, customerID, addressID string) (*customer.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+addressColumns+" FROM customer_addresses WHERE id = ? AND customer_id = ?",
		addressID, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query address: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, customer.ErrNotFound
	}
	a, err := scanAddress(rows)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAddress removes an address.
func (s *Store) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM customer_addresses WHERE id = ? AND customer_id = ?",
		addressID, customerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return requireRow(res, customer.ErrNotFound)
}

// DefaultAddress returns the flagged default of a type, or (nil, nil)
// when the customer has none.
func (s *Store) DefaultAddress(ctx context.Context, customerID string, typ customer.AddressType) (*customer.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+addressColumns+` FROM customer_addresses
		 WHERE customer_id = ? AND type = ? AND is_default = TRUE LIMIT 1`,
		customerID, typ,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query default address: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	a, err := scanAddress(rows)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

// rowScanner lets scanCustomer work for both QueryRow and Query.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*customer.Customer, error) {
	var (
		c              customer.Customer
		phone          sql.NullString
		rfc            sql.NullString
		taxID          sql.NullString
		creditLimit    string
		lastPurchaseAt sql.NullString
		totalPurchases string
		createdAt      string
		updatedAt      string
		deletedAt      sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &phone, &rfc, &taxID, &c.Group,
		&creditLimit, &c.PointsBalance, &c.IsActive, &lastPurchaseAt,
		&totalPurchases, &c.TotalOrders, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Phone = phone.String
	c.RFC = rfc.String
	c.TaxID = taxID.String
	c.CreditLimit, err = decimal.NewFromString(creditLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credit limit: %w", err)
	}
	c.TotalPurchases, err = decimal.NewFromString(totalPurchases)
	if err != nil {
		return nil, fmt.Errorf("failed to parse purchase totals: %w", err)
	}
	if lastPurchaseAt.Valid {
		t, _ := time.Parse(time.RFC3339, lastPurchaseAt.String)
		c.LastPurchaseAt = &t
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339, deletedAt.String)
		c.DeletedAt = &t
	}

	return &c, nil
}

func scanAddress(rows *sql.Rows) (customer.Address, error) {
	var (
		a            customer.Address
		streetNumber sql.NullString
		interior     sql.NullString
		neighborhood sql.NullString
		phone        sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := rows.Scan(
		&a.ID, &a.CustomerID, &a.Type, &a.Street, &streetNumber, &interior,
		&neighborhood, &a.City, &a.State, &a.PostalCode, &a.Country, &phone,
		&a.IsDefault, &createdAt, &updatedAt,
	)
	if err != nil {
		return a, fmt.Errorf("failed to scan address: %w", err)
	}

	a.StreetNumber = streetNumber.String
	a.Interior = interior.String
	a.Neighborhood = neighborhood.String
	a.Phone = phone.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return a, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
