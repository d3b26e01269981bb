/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY AND TIME:
  Monetary amounts travel as JSON strings ("149.90") to avoid float
  rounding in clients. Timestamps are RFC3339.

VALIDATION:
  Validation is done in handlers and services, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - loyalty/types.go, customer/customer.go: Domain types these wrap
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaely/pos-customer/customer"
	"github.com/kaely/pos-customer/loyalty"
)

// =============================================================================
// CUSTOMER TYPES
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone,omitempty"`
	RFC            string  `json:"rfc,omitempty"`
	TaxID          string  `json:"tax_id,omitempty"`
	Group          string  `json:"customer_group"`
	CreditLimit    string  `json:"credit_limit"`
	PointsBalance  int64   `json:"points_balance"`
	IsActive       bool    `json:"is_active"`
	LastPurchaseAt *string `json:"last_purchase_at,omitempty"`
	TotalPurchases string  `json:"total_purchases"`
	TotalOrders    int64   `json:"total_orders"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	DeletedAt      *string `json:"deleted_at,omitempty"`
}

func toCustomerDTO(c *customer.Customer) CustomerDTO {
	dto := CustomerDTO{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		RFC:            c.RFC,
		TaxID:          c.TaxID,
		Group:          c.Group,
		CreditLimit:    c.CreditLimit.StringFixed(2),
		PointsBalance:  c.PointsBalance,
		IsActive:       c.IsActive,
		TotalPurchases: c.TotalPurchases.StringFixed(2),
		TotalOrders:    c.TotalOrders,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}
	if c.LastPurchaseAt != nil {
		dto.LastPurchaseAt = strPtr(c.LastPurchaseAt.Format(time.RFC3339))
	}
	if c.DeletedAt != nil {
		dto.DeletedAt = strPtr(c.DeletedAt.Format(time.RFC3339))
	}
	return dto
}

// CreateCustomerRequest is the request to create a customer.
type CreateCustomerRequest struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	RFC         string           `json:"rfc"`
	TaxID       string           `json:"tax_id"`
	Group       string           `json:"customer_group"`
	CreditLimit *string          `json:"credit_limit"`
	IsActive    *bool            `json:"is_active"`
	Addresses   []AddressRequest `json:"addresses"`
}

// UpdateCustomerRequest carries partial updates; absent fields are left
// untouched.
type UpdateCustomerRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	RFC         *string `json:"rfc"`
	TaxID       *string `json:"tax_id"`
	Group       *string `json:"customer_group"`
	CreditLimit *string `json:"credit_limit"`
	IsActive    *bool   `json:"is_active"`
}

// SearchCustomersRequest is the POST /customers/search body.
type SearchCustomersRequest struct {
	RFC             string  `json:"rfc"`
	Email           string  `json:"email"`
	Group           string  `json:"customer_group"`
	Active          *bool   `json:"is_active"`
	Search          string  `json:"search"`
	MinCreditLimit  *string `json:"min_credit_limit"`
	MaxCreditLimit  *string `json:"max_credit_limit"`
	MinPoints       *int64  `json:"min_points"`
	MaxPoints       *int64  `json:"max_points"`
	MinPurchases    *string `json:"min_purchases"`
	MaxPurchases    *string `json:"max_purchases"`
	PurchasedAfter  *string `json:"purchased_after"`
	PurchasedBefore *string `json:"purchased_before"`
	IncludeDeleted  bool    `json:"include_deleted"`
	OrderBy         string  `json:"order_by"`
	OrderDesc       bool    `json:"order_desc"`
	Limit           int     `json:"limit"`
	Offset          int     `json:"offset"`
}

// CustomerStatsDTO is the directory-wide summary.
type CustomerStatsDTO struct {
	Total          int64  `json:"total"`
	Active         int64  `json:"active"`
	Inactive       int64  `json:"inactive"`
	WithCredit     int64  `json:"with_credit"`
	WithPoints     int64  `json:"with_points"`
	TotalPurchases string `json:"total_purchases"`
	TotalOrders    int64  `json:"total_orders"`
}

// =============================================================================
// ADDRESS TYPES
// =============================================================================

// AddressDTO represents an address in API responses.
type AddressDTO struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	Type         string `json:"type"`
	Street       string `json:"street"`
	StreetNumber string `json:"street_number,omitempty"`
	Interior     string `json:"interior,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
	IsDefault    bool   `json:"is_default"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toAddressDTO(a *customer.Address) AddressDTO {
	return AddressDTO{
		ID:           a.ID,
		CustomerID:   a.CustomerID,
		Type:         string(a.Type),
		Street:       a.Street,
		StreetNumber: a.StreetNumber,
		Interior:     a.Interior,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
		IsDefault:    a.IsDefault,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
}

// AddressRequest is the request to create or update an address.
type AddressRequest struct {
	Type         string `json:"type"`
	Street       string `json:"street"`
	StreetNumber string `json:"street_number"`
	Interior     string `json:"interior"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	IsDefault    *bool  `json:"is_default"`
}

func (r AddressRequest) toInput() customer.AddressInput {
	return customer.AddressInput{
		Type:         customer.AddressType(r.Type),
		Street:       r.Street,
		StreetNumber: r.StreetNumber,
		Interior:     r.Interior,
		Neighborhood: r.Neighborhood,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
		Phone:        r.Phone,
		IsDefault:    r.IsDefault,
	}
}

// =============================================================================
// POINTS TYPES
// =============================================================================

// LedgerEntryDTO represents one ledger entry in API responses.
type LedgerEntryDTO struct {
	ID            string  `json:"id"`
	CustomerID    string  `json:"customer_id"`
	Type          string  `json:"type"`
	Points        int64   `json:"points"`
	Amount        *string `json:"amount,omitempty"`
	Currency      string  `json:"currency"`
	Description   string  `json:"description"`
	ReferenceKind string  `json:"reference_kind,omitempty"`
	ReferenceID   string  `json:"reference_id,omitempty"`
	ExpiresAt     *string `json:"expires_at,omitempty"`
	IsExpired     bool    `json:"is_expired"`
	CreatedAt     string  `json:"created_at"`
}

func toLedgerEntryDTO(e *loyalty.LedgerEntry) LedgerEntryDTO {
	dto := LedgerEntryDTO{
		ID:            e.ID,
		CustomerID:    e.CustomerID,
		Type:          string(e.Type),
		Points:        e.Points,
		Currency:      e.Currency,
		Description:   e.Description,
		ReferenceKind: e.Reference.Kind,
		ReferenceID:   e.Reference.ID,
		IsExpired:     e.IsExpired,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
	if e.Amount != nil {
		dto.Amount = strPtr(e.Amount.StringFixed(2))
	}
	if e.ExpiresAt != nil {
		dto.ExpiresAt = strPtr(e.ExpiresAt.Format(time.RFC3339))
	}
	return dto
}

// PointsSummaryDTO is the per-customer points overview.
type PointsSummaryDTO struct {
	CustomerID         string `json:"customer_id"`
	Balance            int64  `json:"balance"`
	ValidPoints        int64  `json:"valid_points"`
	ExpiredPoints      int64  `json:"expired_points"`
	PointsExpiringSoon int64  `json:"points_expiring_soon"`
	MonetaryValue      string `json:"monetary_value"`
	Currency           string `json:"currency"`
}

// AwardPointsRequest is the request to award points manually.
type AwardPointsRequest struct {
	Points      int64  `json:"points"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	ExpiresAt   string `json:"expires_at"`
}

// RedeemPointsRequest is the request to redeem points.
type RedeemPointsRequest struct {
	Points      int64  `json:"points"`
	Description string `json:"description"`
}

// AdjustPointsRequest is the request for a manual adjustment. Points may
// be negative.
type AdjustPointsRequest struct {
	Points      int64  `json:"points"`
	Description string `json:"description"`
}

// SaleRequest is the completed-sale notification that drives automatic
// point awards.
type SaleRequest struct {
	CustomerID string `json:"customer_id"`
	SaleID     string `json:"sale_id"`
	Amount     string `json:"amount"`
}

// SaleResponse reports what the sale did to the customer's points.
type SaleResponse struct {
	PointsAwarded int64           `json:"points_awarded"`
	Entry         *LedgerEntryDTO `json:"entry,omitempty"`
}

// ExpireRunResponse reports a manual sweep run.
type ExpireRunResponse struct {
	PointsExpired int64 `json:"points_expired"`
}

// =============================================================================
// SHARED
// =============================================================================

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func strPtr(s string) *string {
	return &s
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
