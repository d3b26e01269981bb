/*
service.go - Directory orchestration

PURPOSE:
  The Service owns the application-layer steps that the data entities
  deliberately don't perform themselves: validation, default-flag
  management on sibling addresses, audit timestamps, and event
  publication. Side effects live here where they are visible and
  testable, not in implicit persistence hooks.

SETTINGS:
  Injected once at construction, immutable afterwards. Defaults mirror
  the stock configuration: group "general", country "MX", active on
  creation, at most 5 addresses per customer.

SEE ALSO:
  - store.go: Persistence interfaces
  - loyalty/engine.go: Consumes the directory through the sqlite store's
    narrow balance/active view
*/
package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaely/pos-customer/event"
)

// Settings are the directory's construction-time knobs.
type Settings struct {
	DefaultGroup            string
	DefaultCountry          string
	DefaultActive           bool
	DefaultCreditLimit      decimal.Decimal
	MaxAddressesPerCustomer int
}

// DefaultSettings returns the stock directory settings.
func DefaultSettings() Settings {
	return Settings{
		DefaultGroup:            "general",
		DefaultCountry:          "MX",
		DefaultActive:           true,
		DefaultCreditLimit:      decimal.Zero,
		MaxAddressesPerCustomer: 5,
	}
}

// Service orchestrates directory operations.
type Service struct {
	store    Store
	settings Settings
	sink     event.Sink
}

// NewService creates a directory service. A nil sink falls back to
// event.LogSink.
func NewService(store Store, settings Settings, sink event.Sink) *Service {
	if sink == nil {
		sink = event.LogSink{}
	}
	return &Service{store: store, settings: settings, sink: sink}
}

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput carries the fields for a new customer. Zero-valued
// optional fields take the configured defaults.
type CreateInput struct {
	Name  string
	Email string
	Phone string
	RFC   string
	TaxID string
	Group string

	CreditLimit *decimal.Decimal
	IsActive    *bool

	// Addresses created together with the customer.
	Addresses []AddressInput
}

// UpdateInput carries partial updates; nil fields are left untouched.
type UpdateInput struct {
	Name  *string
	Email *string
	Phone *string
	RFC   *string
	TaxID *string
	Group *string

	CreditLimit *decimal.Decimal
	IsActive    *bool
}

// AddressInput carries the fields for a new or updated address.
type AddressInput struct {
	Type         AddressType
	Street       string
	StreetNumber string
	Interior     string
	Neighborhood string
	City         string
	State        string
	PostalCode   string
	Country      string
	Phone        string

	// IsDefault nil means "decide": the first address of its type
	// becomes default, later ones don't.
	IsDefault *bool
}

// =============================================================================
// CUSTOMER OPERATIONS
// =============================================================================

// Create validates and stores a new customer, creates any initial
// addresses, and publishes CustomerCreated.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, &ValidationError{Field: "email", Message: "required"}
	}

	now := time.Now().UTC()
	c := &Customer{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:          in.Phone,
		RFC:            strings.ToUpper(strings.TrimSpace(in.RFC)),
		TaxID:          in.TaxID,
		Group:          s.settings.DefaultGroup,
		CreditLimit:    s.settings.DefaultCreditLimit,
		IsActive:       s.settings.DefaultActive,
		TotalPurchases: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Group != "" {
		c.Group = in.Group
	}
	if in.CreditLimit != nil {
		if in.CreditLimit.IsNegative() {
			return nil, &ValidationError{Field: "credit_limit", Message: "must not be negative"}
		}
		c.CreditLimit = *in.CreditLimit
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}

	if err := s.store.InsertCustomer(ctx, c); err != nil {
		return nil, err
	}

	for _, a := range in.Addresses {
		if _, err := s.CreateAddress(ctx, c.ID, a); err != nil {
			return nil, fmt.Errorf("creating initial address: %w", err)
		}
	}

	s.sink.Publish(CustomerCreated{Customer: *c})
	return c, nil
}

// Get returns an existing, non-deleted customer.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.store.GetCustomer(ctx, id, false)
}

// Update applies a partial update and publishes CustomerUpdated.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Customer, error) {
	c, err := s.store.GetCustomer(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, &ValidationError{Field: "name", Message: "must not be empty"}
		}
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			return nil, &ValidationError{Field: "email", Message: "must not be empty"}
		}
		c.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.RFC != nil {
		c.RFC = strings.ToUpper(strings.TrimSpace(*in.RFC))
	}
	if in.TaxID != nil {
		c.TaxID = *in.TaxID
	}
	if in.Group != nil {
		c.Group = *in.Group
	}
	if in.CreditLimit != nil {
		if in.CreditLimit.IsNegative() {
			return nil, &ValidationError{Field: "credit_limit", Message: "must not be negative"}
		}
		c.CreditLimit = *in.CreditLimit
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}

	s.sink.Publish(CustomerUpdated{Customer: *c})
	return c, nil
}

// Delete soft-deletes a customer. The loyalty ledger is untouched.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.SoftDeleteCustomer(ctx, id, time.Now().UTC())
}

// Restore reverses a soft delete.
func (s *Service) Restore(ctx context.Context, id string) (*Customer, error) {
	if err := s.store.RestoreCustomer(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetCustomer(ctx, id, false)
}

// Activate marks the customer active.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.store.SetCustomerActive(ctx, id, true)
}

// Deactivate marks the customer inactive. Redemption gating in the
// loyalty engine reads this flag.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.store.SetCustomerActive(ctx, id, false)
}

// Search returns customers matching the filter.
func (s *Service) Search(ctx context.Context, f Filter) ([]Customer, error) {
	return s.store.FindCustomers(ctx, f)
}

// RecordPurchase updates the purchase aggregates after a completed sale.
func (s *Service) RecordPurchase(ctx context.Context, id string, amount decimal.Decimal, at time.Time) error {
	if amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	return s.store.RecordPurchase(ctx, id, amount, at)
}

// Statistics returns the directory-wide summary.
func (s *Service) Statistics(ctx context.Context) (Stats, error) {
	return s.store.CustomerStats(ctx)
}

// =============================================================================
// ADDRESS OPERATIONS
// =============================================================================

// CreateAddress validates and stores a new address, applying the
// default-flag rules in one transaction:
//   - the first address of its type becomes the default
//   - an explicit default unsets every sibling of the same type
func (s *Service) CreateAddress(ctx context.Context, customerID string, in AddressInput) (*Address, error) {
	if _, err := s.store.GetCustomer(ctx, customerID, false); err != nil {
		return nil, err
	}
	if err := validateAddress(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &Address{
		ID:           uuid.NewString(),
		CustomerID:   customerID,
		Type:         in.Type,
		Street:       in.Street,
		StreetNumber: in.StreetNumber,
		Interior:     in.Interior,
		Neighborhood: in.Neighborhood,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		Phone:        in.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.Country == "" {
		a.Country = s.settings.DefaultCountry
	}

	err := s.store.WithAddressTx(ctx, func(tx AddressTx) error {
		total, err := tx.CountAddresses(ctx, customerID)
		if err != nil {
			return err
		}
		if s.settings.MaxAddressesPerCustomer > 0 && total >= s.settings.MaxAddressesPerCustomer {
			return fmt.Errorf("customer %s already has %d addresses: %w",
				customerID, total, ErrTooManyAddresses)
		}

		ofType, err := tx.CountAddressesOfType(ctx, customerID, in.Type)
		if err != nil {
			return err
		}

		if in.IsDefault != nil {
			a.IsDefault = *in.IsDefault
		} else {
			a.IsDefault = ofType == 0
		}

		if a.IsDefault {
			if err := tx.ClearDefault(ctx, customerID, in.Type, a.ID); err != nil {
				return err
			}
		}
		return tx.InsertAddress(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.sink.Publish(AddressCreated{Address: *a})
	return a, nil
}

// UpdateAddress replaces an address's fields, re-applying the
// default-flag rules when the flag is set.
func (s *Service) UpdateAddress(ctx context.Context, customerID, addressID string, in AddressInput) (*Address, error) {
	a, err := s.store.GetAddress(ctx, customerID, addressID)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(in); err != nil {
		return nil, err
	}

	a.Type = in.Type
	a.Street = in.Street
	a.StreetNumber = in.StreetNumber
	a.Interior = in.Interior
	a.Neighborhood = in.Neighborhood
	a.City = in.City
	a.State = in.State
	a.PostalCode = in.PostalCode
	if in.Country != "" {
		a.Country = in.Country
	}
	a.Phone = in.Phone
	if in.IsDefault != nil {
		a.IsDefault = *in.IsDefault
	}
	a.UpdatedAt = time.Now().UTC()

	err = s.store.WithAddressTx(ctx, func(tx AddressTx) error {
		if a.IsDefault {
			if err := tx.ClearDefault(ctx, customerID, a.Type, a.ID); err != nil {
				return err
			}
		}
		return tx.UpdateAddress(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAddress removes an address.
func (s *Service) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	return s.store.DeleteAddress(ctx, customerID, addressID)
}

// Addresses returns a customer's addresses, optionally filtered by type.
func (s *Service) Addresses(ctx context.Context, customerID string, typ AddressType) ([]Address, error) {
	if _, err := s.store.GetCustomer(ctx, customerID, false); err != nil {
		return nil, err
	}
	return s.store.Addresses(ctx, customerID, typ)
}

// DefaultAddress returns the default address of a type, or (nil, nil)
// when the customer has none.
func (s *Service) DefaultAddress(ctx context.Context, customerID string, typ AddressType) (*Address, error) {
	if !typ.Valid() {
		return nil, &ValidationError{Field: "type", Message: "must be billing or shipping"}
	}
	if _, err := s.store.GetCustomer(ctx, customerID, false); err != nil {
		return nil, err
	}
	return s.store.DefaultAddress(ctx, customerID, typ)
}

func validateAddress(in AddressInput) error {
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Message: "must be billing or shipping"}
	}
	if strings.TrimSpace(in.Street) == "" {
		return &ValidationError{Field: "street", Message: "required"}
	}
	if strings.TrimSpace(in.City) == "" {
		return &ValidationError{Field: "city", Message: "required"}
	}
	if strings.TrimSpace(in.State) == "" {
		return &ValidationError{Field: "state", Message: "required"}
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return &ValidationError{Field: "postal_code", Message: "required"}
	}
	return nil
}
