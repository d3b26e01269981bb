/*
handlers.go - HTTP API handlers for the POS customer module

PURPOSE:
  Exposes the customer directory and the loyalty points engine via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS (under /api/v1/pos):
  Customers:
    GET    /customers                    List (query filters)
    POST   /customers                    Create customer
    POST   /customers/search             Search with full filter body
    GET    /customers/statistics         Directory summary
    GET    /customers/{id}               Get customer
    PUT    /customers/{id}               Update customer
    DELETE /customers/{id}               Soft delete
    POST   /customers/{id}/restore       Restore soft-deleted
    POST   /customers/{id}/activate      Set active
    POST   /customers/{id}/deactivate    Set inactive

  Addresses:
    GET    /customers/{id}/addresses                 List
    POST   /customers/{id}/addresses                 Create
    GET    /customers/{id}/addresses/default-billing
    GET    /customers/{id}/addresses/default-shipping
    GET    /customers/{id}/addresses/{addressID}
    PUT    /customers/{id}/addresses/{addressID}
    DELETE /customers/{id}/addresses/{addressID}

  Points:
    GET    /customers/{id}/points          Summary
    GET    /customers/{id}/points/history  Ledger history (filters)
    POST   /customers/{id}/points/award
    POST   /customers/{id}/points/redeem
    POST   /customers/{id}/points/adjust
    GET    /customers/{id}/points/consistency

  Loyalty program:
    GET    /loyalty/statistics       Program-wide summary
    POST   /loyalty/expire-run       Manual expiration sweep

  Sales:
    POST   /sales                    Completed sale -> auto award

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Loyalty program disabled
  - 404: Resource not found
  - 409: Conflict (insufficient balance, address limit)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public;
  the module expects to sit behind the POS gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kaely/pos-customer/customer"
	"github.com/kaely/pos-customer/loyalty"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Directory *customer.Service
	Engine    *loyalty.Engine
}

// NewHandler creates a new handler.
func NewHandler(directory *customer.Service, engine *loyalty.Engine) *Handler {
	return &Handler{Directory: directory, Engine: engine}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns customers matching the query-string filters.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := customer.Filter{
		RFC:    q.Get("rfc"),
		Email:  q.Get("email"),
		Group:  q.Get("customer_group"),
		Search: q.Get("search"),
	}
	if v := q.Get("is_active"); v != "" {
		active := v == "true" || v == "1"
		f.Active = &active
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Offset = n
		}
	}
	f.OrderBy = q.Get("order_by")
	f.OrderDesc = q.Get("order") == "desc"

	customers, err := h.Directory.Search(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i := range customers {
		dtos[i] = toCustomerDTO(&customers[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SearchCustomers runs a search with the full filter body.
func (h *Handler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	var req SearchCustomersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	f := customer.Filter{
		RFC:            req.RFC,
		Email:          req.Email,
		Group:          req.Group,
		Active:         req.Active,
		Search:         req.Search,
		MinPoints:      req.MinPoints,
		MaxPoints:      req.MaxPoints,
		IncludeDeleted: req.IncludeDeleted,
		OrderBy:        req.OrderBy,
		OrderDesc:      req.OrderDesc,
		Limit:          req.Limit,
		Offset:         req.Offset,
	}

	var err error
	if f.MinCreditLimit, err = optionalDecimal(req.MinCreditLimit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid min_credit_limit", err)
		return
	}
	if f.MaxCreditLimit, err = optionalDecimal(req.MaxCreditLimit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid max_credit_limit", err)
		return
	}
	if f.MinPurchases, err = optionalDecimal(req.MinPurchases); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid min_purchases", err)
		return
	}
	if f.MaxPurchases, err = optionalDecimal(req.MaxPurchases); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid max_purchases", err)
		return
	}
	if f.PurchasedAfter, err = optionalTime(req.PurchasedAfter); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid purchased_after (use RFC3339)", err)
		return
	}
	if f.PurchasedBefore, err = optionalTime(req.PurchasedBefore); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid purchased_before (use RFC3339)", err)
		return
	}

	customers, err := h.Directory.Search(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i := range customers {
		dtos[i] = toCustomerDTO(&customers[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer creates a new customer with optional initial addresses.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := customer.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		RFC:      req.RFC,
		TaxID:    req.TaxID,
		Group:    req.Group,
		IsActive: req.IsActive,
	}
	if req.CreditLimit != nil {
		limit, err := parseDecimal(*req.CreditLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid credit_limit", err)
			return
		}
		in.CreditLimit = &limit
	}
	for _, a := range req.Addresses {
		in.Addresses = append(in.Addresses, a.toInput())
	}

	c, err := h.Directory.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

// GetCustomer returns a single customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// UpdateCustomer applies a partial update.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req UpdateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := customer.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		RFC:      req.RFC,
		TaxID:    req.TaxID,
		Group:    req.Group,
		IsActive: req.IsActive,
	}
	if req.CreditLimit != nil {
		limit, err := parseDecimal(*req.CreditLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid credit_limit", err)
			return
		}
		in.CreditLimit = &limit
	}

	c, err := h.Directory.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// DeleteCustomer soft-deletes a customer. The points ledger survives.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreCustomer reverses a soft delete.
func (h *Handler) RestoreCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Directory.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// ActivateCustomer sets the active flag.
func (h *Handler) ActivateCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.Activate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeactivateCustomer clears the active flag.
func (h *Handler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CustomerStatistics returns the directory-wide summary.
func (h *Handler) CustomerStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Directory.Statistics(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CustomerStatsDTO{
		Total:          stats.Total,
		Active:         stats.Active,
		Inactive:       stats.Inactive,
		WithCredit:     stats.WithCredit,
		WithPoints:     stats.WithPoints,
		TotalPurchases: stats.TotalPurchases.StringFixed(2),
		TotalOrders:    stats.TotalOrders,
	})
}

// =============================================================================
// ADDRESS HANDLERS
// =============================================================================

// ListAddresses returns a customer's addresses, optionally filtered by
// ?type=billing|shipping.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	typ := customer.AddressType(r.URL.Query().Get("type"))

	addresses, err := h.Directory.Addresses(r.Context(), customerID, typ)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]AddressDTO, len(addresses))
	for i := range addresses {
		dtos[i] = toAddressDTO(&addresses[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAddress adds an address to a customer.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.Directory.CreateAddress(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAddressDTO(a))
}

// GetAddress returns one address.
func (h *Handler) GetAddress(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.Directory.Addresses(r.Context(), chi.URLParam(r, "id"), "")
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	addressID := chi.URLParam(r, "addressID")
	for i := range addresses {
		if addresses[i].ID == addressID {
			writeJSON(w, http.StatusOK, toAddressDTO(&addresses[i]))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Address not found", nil)
}

// UpdateAddress replaces an address's fields.
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.Directory.UpdateAddress(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "addressID"), req.toInput())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAddressDTO(a))
}

// DeleteAddress removes an address.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	err := h.Directory.DeleteAddress(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "addressID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DefaultBillingAddress returns the default billing address.
func (h *Handler) DefaultBillingAddress(w http.ResponseWriter, r *http.Request) {
	h.defaultAddress(w, r, customer.AddressBilling)
}

// DefaultShippingAddress returns the default shipping address.
func (h *Handler) DefaultShippingAddress(w http.ResponseWriter, r *http.Request) {
	h.defaultAddress(w, r, customer.AddressShipping)
}

func (h *Handler) defaultAddress(w http.ResponseWriter, r *http.Request, typ customer.AddressType) {
	a, err := h.Directory.DefaultAddress(r.Context(), chi.URLParam(r, "id"), typ)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "No default address of this type", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAddressDTO(a))
}

// =============================================================================
// POINTS HANDLERS
// =============================================================================

// PointsSummary returns the per-customer points overview.
func (h *Handler) PointsSummary(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	ctx := r.Context()

	balance, err := h.Engine.Balance(ctx, customerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	valid, err := h.Engine.ValidPoints(ctx, customerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	expired, err := h.Engine.ExpiredPoints(ctx, customerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	soon, err := h.Engine.ExpiringSoonPoints(ctx, customerID, 30)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	value, err := h.Engine.PointsValue(ctx, customerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PointsSummaryDTO{
		CustomerID:         customerID,
		Balance:            balance,
		ValidPoints:        valid,
		ExpiredPoints:      expired,
		PointsExpiringSoon: soon,
		MonetaryValue:      value.StringFixed(2),
		Currency:           h.Engine.Config().Currency,
	})
}

// PointsHistory returns the customer's ledger, newest first.
func (h *Handler) PointsHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := loyalty.HistoryFilter{
		Type: loyalty.EntryType(q.Get("type")),
	}
	if f.Type != "" && !f.Type.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid entry type", nil)
		return
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from (use RFC3339)", err)
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to (use RFC3339)", err)
			return
		}
		f.To = &t
	}
	f.Reference = loyalty.Reference{
		Kind: q.Get("reference_kind"),
		ID:   q.Get("reference_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}

	entries, err := h.Engine.History(r.Context(), chi.URLParam(r, "id"), f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]LedgerEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toLedgerEntryDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AwardPoints awards points manually (promotions, goodwill).
func (h *Handler) AwardPoints(w http.ResponseWriter, r *http.Request) {
	var req AwardPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = parseDecimal(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
	}

	opts := loyalty.EntryOptions{Description: req.Description}
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expires_at (use RFC3339)", err)
			return
		}
		opts.ExpiresAt = &t
	}

	entry, err := h.Engine.AwardPoints(r.Context(), chi.URLParam(r, "id"), req.Points, amount, opts)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLedgerEntryDTO(entry))
}

// RedeemPoints redeems points against the customer's balance.
func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req RedeemPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Engine.RedeemPoints(r.Context(), chi.URLParam(r, "id"), req.Points,
		loyalty.EntryOptions{Description: req.Description})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLedgerEntryDTO(entry))
}

// AdjustPoints applies a manual adjustment. Points may be negative and
// are not floor-checked against the balance.
func (h *Handler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req AdjustPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Engine.AdjustPoints(r.Context(), chi.URLParam(r, "id"), req.Points,
		loyalty.EntryOptions{Description: req.Description})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLedgerEntryDTO(entry))
}

// PointsConsistency compares the denormalized balance against the
// ledger sum.
func (h *Handler) PointsConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.CheckConsistency(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// LOYALTY PROGRAM HANDLERS
// =============================================================================

// LoyaltyStatistics returns the program-wide summary.
func (h *Handler) LoyaltyStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Engine.Statistics(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RunExpiration triggers an expiration sweep immediately.
func (h *Handler) RunExpiration(w http.ResponseWriter, r *http.Request) {
	expired, err := h.Engine.ProcessExpiring(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExpireRunResponse{PointsExpired: expired})
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// RecordSale records a completed sale: bumps the customer's purchase
// aggregates and awards points when auto-award is on.
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CustomerID == "" || req.SaleID == "" {
		writeError(w, http.StatusBadRequest, "customer_id and sale_id are required", nil)
		return
	}
	amount, err := parseDecimal(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	ctx := r.Context()
	if err := h.Directory.RecordPurchase(ctx, req.CustomerID, amount, time.Now()); err != nil {
		h.writeDomainError(w, err)
		return
	}

	entry, err := h.Engine.ProcessPurchase(ctx, req.CustomerID, amount, req.SaleID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := SaleResponse{}
	if entry != nil {
		resp.PointsAwarded = entry.Points
		dto := toLedgerEntryDTO(entry)
		resp.Entry = &dto
	}
	writeJSON(w, http.StatusCreated, resp)
}

// =============================================================================
// UTILITY HANDLERS
// =============================================================================

// PointTypes returns the ledger entry type labels.
func (h *Handler) PointTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"earned":   "Earned",
		"redeemed": "Redeemed",
		"adjusted": "Adjusted",
		"expired":  "Expired",
	})
}

// AddressTypes returns the address type labels.
func (h *Handler) AddressTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"billing":  "Billing",
		"shipping": "Shipping",
	})
}

// CustomerGroups returns the customer group labels.
func (h *Handler) CustomerGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"general":   "General",
		"wholesale": "Wholesale",
		"vip":       "VIP",
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeDomainError maps domain errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customer.ErrValidation), errors.Is(err, loyalty.ErrInvalidPoints):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, customer.ErrNotFound), errors.Is(err, loyalty.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, loyalty.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "Insufficient points balance", err)
	case errors.Is(err, customer.ErrTooManyAddresses):
		writeError(w, http.StatusConflict, "Address limit reached", err)
	case errors.Is(err, loyalty.ErrDisabled):
		writeError(w, http.StatusForbidden, "Loyalty program is disabled", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func optionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
