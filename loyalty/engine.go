/*
engine.go - The loyalty engine: business rules and transactional protocol

PURPOSE:
  The Engine is the sole writer of ledger entries and the sole mutator
  of the customer points balance. Every mutating operation runs inside
  one database transaction spanning the entry insert and the balance
  update; on any failure both roll back, so the balance and the ledger
  never diverge.

OPERATIONS:
  CalculatePoints  Pure point computation from a purchase amount
  AwardPoints      earned entry, balance += points, PointsEarned event
  RedeemPoints     redeemed entry (negative), balance check enforced
  AdjustPoints     adjusted entry, either sign, NO balance floor
  ExpirePoints     expired entry (negative), balance check enforced
  ProcessExpiring  The sweep: expire overdue earned entries
  ProcessPurchase  Completed-sale integration: calculate then award

CONCURRENCY:
  Balance mutations for the same customer are serialized with a
  per-customer mutex held across the read-check-write sequence.
  Operations on different customers do not block each other. The ledger
  itself is append-mostly, so concurrent inserts need no cross-customer
  coordination.

THE ADJUSTMENT ASYMMETRY:
  RedeemPoints and ExpirePoints refuse to drive the balance negative.
  AdjustPoints does not: it is the administrative override path and a
  negative correction may legitimately push the balance below zero.

SEE ALSO:
  - store.go: The persistence surface the engine writes through
  - errors.go: The error taxonomy raised here
  - api/sweeper.go: Periodic trigger for ProcessExpiring
*/
package loyalty

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaely/pos-customer/event"
)

// SaleReferenceKind is the reference kind stamped on entries produced by
// the completed-sale integration.
const SaleReferenceKind = "sale"

// Engine owns the loyalty business rules. Construct with NewEngine;
// the zero value is not usable.
type Engine struct {
	store Store
	cfg   Config
	sink  event.Sink

	// locks serializes balance mutations per customer.
	locks sync.Map // customer id -> *sync.Mutex
}

// NewEngine creates an engine with the given store, configuration, and
// event sink. A nil sink falls back to event.LogSink.
func NewEngine(store Store, cfg Config, sink event.Sink) *Engine {
	if sink == nil {
		sink = event.LogSink{}
	}
	return &Engine{store: store, cfg: cfg, sink: sink}
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config { return e.cfg }

// lockCustomer acquires the per-customer mutex and returns the unlock.
func (e *Engine) lockCustomer(customerID string) func() {
	v, _ := e.locks.LoadOrStore(customerID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// =============================================================================
// POINT COMPUTATION
// =============================================================================

// CalculatePoints computes the points earned for a purchase amount.
// Pure function: same (amount, config) always yields the same result.
// Returns 0 when the subsystem is disabled or the amount is below the
// configured minimum; otherwise floor(amount * rate) clamped to the
// per-transaction ceiling.
func (e *Engine) CalculatePoints(amount decimal.Decimal) int64 {
	if !e.cfg.Enabled {
		return 0
	}
	if amount.LessThan(e.cfg.MinPurchaseForPoints) {
		return 0
	}

	points := amount.Mul(e.cfg.PointsPerCurrency).IntPart()
	if points > e.cfg.MaxPointsPerTransaction {
		points = e.cfg.MaxPointsPerTransaction
	}
	if points < 0 {
		points = 0
	}
	return points
}

// PointsValue converts a customer's valid points back to their monetary
// value at the configured earn rate.
func (e *Engine) PointsValue(ctx context.Context, customerID string) (decimal.Decimal, error) {
	valid, err := e.ValidPoints(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if e.cfg.PointsPerCurrency.IsZero() {
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(valid).Div(e.cfg.PointsPerCurrency), nil
}

// =============================================================================
// MUTATING OPERATIONS
// =============================================================================

// AwardPoints grants points for a purchase. Inserts an earned entry with
// the configured expiration horizon (unless opts overrides it),
// increments the balance, and publishes PointsEarned after commit.
func (e *Engine) AwardPoints(ctx context.Context, customerID string, points int64, amount decimal.Decimal, opts EntryOptions) (*LedgerEntry, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	if points <= 0 {
		return nil, fmt.Errorf("award of %d points: %w", points, ErrInvalidPoints)
	}

	unlock := e.lockCustomer(customerID)
	defer unlock()

	// Existence check before opening the write transaction.
	if _, err := e.store.CustomerBalance(ctx, customerID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.AddDate(0, 0, e.cfg.ExpirationDays)
	if opts.ExpiresAt != nil {
		expiresAt = *opts.ExpiresAt
	}

	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Points earned on purchase of %s", amount.StringFixed(2))
	}

	entry := &LedgerEntry{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Type:        EntryEarned,
		Points:      points,
		Amount:      &amount,
		Currency:    e.cfg.Currency,
		Description: description,
		Reference:   opts.Reference,
		ExpiresAt:   &expiresAt,
		CreatedAt:   now,
	}

	err := e.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, customerID, points)
	})
	if err != nil {
		return nil, err
	}

	e.sink.Publish(PointsEarned{CustomerID: customerID, Entry: *entry})
	return entry, nil
}

// RedeemPoints spends points. The entry records a negative delta; the
// balance check guarantees the accumulator never goes negative through
// this path.
func (e *Engine) RedeemPoints(ctx context.Context, customerID string, points int64, opts EntryOptions) (*LedgerEntry, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	if points <= 0 {
		return nil, fmt.Errorf("redemption of %d points: %w", points, ErrInvalidPoints)
	}

	unlock := e.lockCustomer(customerID)
	defer unlock()

	balance, err := e.store.CustomerBalance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if balance < points {
		return nil, &InsufficientBalanceError{CustomerID: customerID, Available: balance, Requested: points}
	}

	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Points redeemed: %d", points)
	}

	entry := &LedgerEntry{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Type:        EntryRedeemed,
		Points:      -points,
		Currency:    e.cfg.Currency,
		Description: description,
		Reference:   opts.Reference,
		CreatedAt:   time.Now().UTC(),
	}

	err = e.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, customerID, -points)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AdjustPoints applies a manual correction of either sign. No balance
// floor is enforced: this is the administrative override path and may
// legitimately drive the balance negative.
func (e *Engine) AdjustPoints(ctx context.Context, customerID string, points int64, opts EntryOptions) (*LedgerEntry, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	if points == 0 {
		return nil, fmt.Errorf("zero-point adjustment: %w", ErrInvalidPoints)
	}

	unlock := e.lockCustomer(customerID)
	defer unlock()

	if _, err := e.store.CustomerBalance(ctx, customerID); err != nil {
		return nil, err
	}

	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Manual points adjustment: %d", points)
	}

	entry := &LedgerEntry{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Type:        EntryAdjusted,
		Points:      points,
		Currency:    e.cfg.Currency,
		Description: description,
		Reference:   opts.Reference,
		CreatedAt:   time.Now().UTC(),
	}

	err := e.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, customerID, points)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ExpirePoints removes points as expired. Same balance guarantee as
// RedeemPoints: it never drives the accumulator negative.
func (e *Engine) ExpirePoints(ctx context.Context, customerID string, points int64, description string) (*LedgerEntry, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	if points <= 0 {
		return nil, fmt.Errorf("expiration of %d points: %w", points, ErrInvalidPoints)
	}

	unlock := e.lockCustomer(customerID)
	defer unlock()

	entry, err := e.expireLocked(ctx, customerID, points, description, "")
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// expireLocked inserts an expired entry and decrements the balance.
// Caller must hold the customer lock. When flagEntryID is non-empty the
// same transaction also flips that earned entry's is_expired flag.
func (e *Engine) expireLocked(ctx context.Context, customerID string, points int64, description, flagEntryID string) (*LedgerEntry, error) {
	balance, err := e.store.CustomerBalance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if balance < points {
		return nil, &InsufficientBalanceError{CustomerID: customerID, Available: balance, Requested: points}
	}

	if description == "" {
		description = fmt.Sprintf("Points expired: %d", points)
	}

	entry := &LedgerEntry{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Type:        EntryExpired,
		Points:      -points,
		Currency:    e.cfg.Currency,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	err = e.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, customerID, -points); err != nil {
			return err
		}
		if flagEntryID != "" {
			return tx.MarkEntryExpired(ctx, flagEntryID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// =============================================================================
// EXPIRATION SWEEP
// =============================================================================

// ProcessExpiring expires every overdue earned entry whose customer
// still holds enough points to cover it, and returns the total points
// actually expired. Entries are processed oldest-expiry-first; each
// entry's expire-and-flag sequence is its own transaction, and a
// failure on one entry is logged and skipped so it cannot halt the
// batch. Entries skipped for insufficient balance stay eligible for a
// future sweep - the sweep never drives a balance negative.
func (e *Engine) ProcessExpiring(ctx context.Context) (int64, error) {
	if !e.cfg.Enabled {
		return 0, nil
	}

	entries, err := e.store.ExpirableEntries(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	var total int64
	for _, overdue := range entries {
		expired, err := e.expireOverdueEntry(ctx, overdue)
		if err != nil {
			log.Printf("[Loyalty] Sweep: failed to expire entry %s for customer %s: %v",
				overdue.ID, overdue.CustomerID, err)
			continue
		}
		total += expired
	}
	return total, nil
}

// expireOverdueEntry expires one overdue earned entry, flipping its
// is_expired flag atomically with the negative entry. Returns 0 without
// error when the customer's balance cannot cover the entry.
func (e *Engine) expireOverdueEntry(ctx context.Context, overdue LedgerEntry) (int64, error) {
	unlock := e.lockCustomer(overdue.CustomerID)
	defer unlock()

	balance, err := e.store.CustomerBalance(ctx, overdue.CustomerID)
	if err != nil {
		return 0, err
	}
	if balance < overdue.Points {
		// Balance already drawn down below this entry's contribution.
		// Skip; the entry remains eligible for a later sweep.
		return 0, nil
	}

	_, err = e.expireLocked(ctx, overdue.CustomerID, overdue.Points,
		"Points expired automatically", overdue.ID)
	if err != nil {
		return 0, err
	}
	return overdue.Points, nil
}

// =============================================================================
// COMPLETED-SALE INTEGRATION
// =============================================================================

// ProcessPurchase runs the completed-sale flow: compute points for the
// sale amount and award them with a sale reference. Returns (nil, nil)
// when the integration is disabled or the computed points are zero.
func (e *Engine) ProcessPurchase(ctx context.Context, customerID string, amount decimal.Decimal, saleID string) (*LedgerEntry, error) {
	if !e.cfg.Enabled || !e.cfg.AutoAwardOnSale {
		return nil, nil
	}

	points := e.CalculatePoints(amount)
	if points <= 0 {
		return nil, nil
	}

	return e.AwardPoints(ctx, customerID, points, amount, EntryOptions{
		Description: fmt.Sprintf("Points earned on sale #%s", saleID),
		Reference:   Reference{Kind: SaleReferenceKind, ID: saleID},
	})
}

// CanRedeem reports whether the customer may redeem the given points:
// the customer must be active and hold at least that many points.
func (e *Engine) CanRedeem(ctx context.Context, customerID string, points int64) (bool, error) {
	active, err := e.store.CustomerActive(ctx, customerID)
	if err != nil {
		return false, err
	}
	if !active {
		return false, nil
	}
	balance, err := e.store.CustomerBalance(ctx, customerID)
	if err != nil {
		return false, err
	}
	return balance >= points, nil
}

// =============================================================================
// READ-ONLY QUERIES
// =============================================================================

// Balance returns the denormalized running balance.
func (e *Engine) Balance(ctx context.Context, customerID string) (int64, error) {
	return e.store.CustomerBalance(ctx, customerID)
}

// ValidPoints recomputes from the ledger the earned points that have
// not expired. Not cached: this query exists to detect drift from the
// denormalized balance.
func (e *Engine) ValidPoints(ctx context.Context, customerID string) (int64, error) {
	return e.store.ValidPoints(ctx, customerID, time.Now().UTC())
}

// ExpiredPoints sums the earned points flagged expired by the sweep.
func (e *Engine) ExpiredPoints(ctx context.Context, customerID string) (int64, error) {
	return e.store.ExpiredPoints(ctx, customerID)
}

// ExpiringSoonPoints sums earned points whose expiry falls within the
// next `days` days.
func (e *Engine) ExpiringSoonPoints(ctx context.Context, customerID string, days int) (int64, error) {
	now := time.Now().UTC()
	return e.store.ExpiringSoonPoints(ctx, customerID, now, now.AddDate(0, 0, days))
}

// History returns the customer's ledger entries, newest first.
func (e *Engine) History(ctx context.Context, customerID string, f HistoryFilter) ([]LedgerEntry, error) {
	return e.store.Entries(ctx, customerID, f)
}

// CheckConsistency compares the accumulator against the full ledger sum
// for one customer. They are defined to be equal at all times outside a
// transaction; any drift means a write path bypassed WithTx.
func (e *Engine) CheckConsistency(ctx context.Context, customerID string) (ConsistencyReport, error) {
	balance, err := e.store.CustomerBalance(ctx, customerID)
	if err != nil {
		return ConsistencyReport{}, err
	}
	sum, err := e.store.SumEntries(ctx, customerID)
	if err != nil {
		return ConsistencyReport{}, err
	}
	return ConsistencyReport{
		CustomerID: customerID,
		Balance:    balance,
		LedgerSum:  sum,
		Drift:      balance - sum,
		Consistent: balance == sum,
	}, nil
}

// Statistics computes the program-wide loyalty summary. SoonWindow for
// the expiring-soon figure is 30 days, matching the dashboard default.
func (e *Engine) Statistics(ctx context.Context) (Statistics, error) {
	totals, err := e.store.LedgerTotals(ctx, time.Now().UTC(), 30*24*time.Hour)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalPointsAwarded:  totals.Awarded,
		TotalPointsRedeemed: totals.Redeemed,
		TotalPointsExpired:  totals.Expired,
		TotalPointsAdjusted: totals.Adjusted,
		CurrentBalance:      totals.CurrentBalance,
		CustomersWithPoints: totals.CustomersWithPoints,
		PointsExpiringSoon:  totals.ExpiringSoon,
	}
	if totals.Awarded > 0 {
		stats.RedemptionRate = roundRate(totals.Redeemed, totals.Awarded)
		stats.ExpirationRate = roundRate(totals.Expired, totals.Awarded)
	}
	return stats, nil
}

// roundRate returns part/whole as a percentage with two decimals.
func roundRate(part, whole int64) float64 {
	rate := decimal.NewFromInt(part).
		Div(decimal.NewFromInt(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := rate.Float64()
	return f
}
