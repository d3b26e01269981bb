package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaely/pos-customer/api"
	"github.com/kaely/pos-customer/customer"
	"github.com/kaely/pos-customer/event"
	"github.com/kaely/pos-customer/loyalty"
	"github.com/kaely/pos-customer/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sink := event.NopSink{}
	engine := loyalty.NewEngine(store, loyalty.DefaultConfig(), sink)
	directory := customer.NewService(store, customer.DefaultSettings(), sink)

	server := httptest.NewServer(api.NewRouter(api.NewHandler(directory, engine)))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createTestCustomer(t *testing.T, server *httptest.Server) string {
	t.Helper()

	var created map[string]any
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/customers", map[string]any{
		"name":  "Maria Lopez",
		"email": "maria@example.com",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return created["id"].(string)
}

// =============================================================================
// CUSTOMER ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateAndGetCustomer(t *testing.T) {
	// GIVEN: A running server
	// WHEN: Creating a customer and fetching it back
	// THEN: 201 then 200 with matching fields

	server := newTestServer(t)
	id := createTestCustomer(t, server)

	var got map[string]any
	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/pos/customers/"+id, nil, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Maria Lopez", got["name"])
	assert.Equal(t, "maria@example.com", got["email"])
	assert.Equal(t, float64(0), got["points_balance"])
}

func TestAPI_CreateCustomer_MissingName(t *testing.T) {
	// GIVEN: A create body without a name
	// WHEN: Posting it
	// THEN: 400 with an error body

	server := newTestServer(t)

	var errBody map[string]any
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/customers",
		map[string]any{"email": "maria@example.com"}, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, errBody["error"])
}

func TestAPI_GetCustomer_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/pos/customers/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DeleteAndRestoreCustomer(t *testing.T) {
	// GIVEN: An existing customer
	// WHEN: Deleting then restoring
	// THEN: 204, then 404 on fetch, then 200 after restore

	server := newTestServer(t)
	id := createTestCustomer(t, server)
	base := server.URL + "/api/v1/pos/customers/" + id

	resp := doJSON(t, http.MethodDelete, base, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/restore", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_SearchCustomers(t *testing.T) {
	// GIVEN: Two customers
	// WHEN: Searching by text
	// THEN: Only the match comes back

	server := newTestServer(t)
	createTestCustomer(t, server)
	doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/customers",
		map[string]any{"name": "Juan Perez", "email": "juan@example.com"}, nil)

	var results []map[string]any
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/customers/search",
		map[string]any{"search": "juan"}, &results)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, results, 1)
	assert.Equal(t, "Juan Perez", results[0]["name"])
}

// =============================================================================
// ADDRESS ENDPOINT TESTS
// =============================================================================

func TestAPI_AddressLifecycle(t *testing.T) {
	// GIVEN: A customer
	// WHEN: Creating a billing address and fetching the default
	// THEN: The new address is the default billing address

	server := newTestServer(t)
	id := createTestCustomer(t, server)
	base := server.URL + "/api/v1/pos/customers/" + id + "/addresses"

	var created map[string]any
	resp := doJSON(t, http.MethodPost, base, map[string]any{
		"type":        "billing",
		"street":      "Av. Reforma",
		"city":        "CDMX",
		"state":       "CDMX",
		"postal_code": "06600",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, created["is_default"])
	assert.Equal(t, "MX", created["country"])

	var def map[string]any
	resp = doJSON(t, http.MethodGet, base+"/default-billing", nil, &def)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created["id"], def["id"])

	resp = doJSON(t, http.MethodGet, base+"/default-shipping", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreateAddress_InvalidType(t *testing.T) {
	server := newTestServer(t)
	id := createTestCustomer(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/customers/"+id+"/addresses",
		map[string]any{"type": "warehouse", "street": "x", "city": "y", "state": "z", "postal_code": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// POINTS ENDPOINT TESTS
// =============================================================================

func TestAPI_AwardRedeemAndSummary(t *testing.T) {
	// GIVEN: A customer
	// WHEN: Awarding 150 and redeeming 50 over HTTP
	// THEN: The summary shows a balance of 100

	server := newTestServer(t)
	id := createTestCustomer(t, server)
	base := server.URL + "/api/v1/pos/customers/" + id + "/points"

	resp := doJSON(t, http.MethodPost, base+"/award",
		map[string]any{"points": 150, "amount": "150.00"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/redeem", map[string]any{"points": 50}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var summary map[string]any
	resp = doJSON(t, http.MethodGet, base, nil, &summary)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100), summary["balance"])
	assert.Equal(t, float64(150), summary["valid_points"])
	assert.Equal(t, "MXN", summary["currency"])
}

func TestAPI_Redeem_InsufficientBalanceConflict(t *testing.T) {
	// GIVEN: A customer with no points
	// WHEN: Redeeming 50
	// THEN: 409

	server := newTestServer(t)
	id := createTestCustomer(t, server)

	resp := doJSON(t, http.MethodPost,
		server.URL+"/api/v1/pos/customers/"+id+"/points/redeem",
		map[string]any{"points": 50}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_PointsHistory(t *testing.T) {
	// GIVEN: An award and a redemption
	// WHEN: Fetching history filtered by type
	// THEN: Only the requested type comes back

	server := newTestServer(t)
	id := createTestCustomer(t, server)
	base := server.URL + "/api/v1/pos/customers/" + id + "/points"

	doJSON(t, http.MethodPost, base+"/award", map[string]any{"points": 100, "amount": "100.00"}, nil)
	doJSON(t, http.MethodPost, base+"/redeem", map[string]any{"points": 40}, nil)

	var entries []map[string]any
	resp := doJSON(t, http.MethodGet, base+"/history?type=redeemed", nil, &entries)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(-40), entries[0]["points"])
}

func TestAPI_PointsConsistency(t *testing.T) {
	server := newTestServer(t)
	id := createTestCustomer(t, server)
	base := server.URL + "/api/v1/pos/customers/" + id + "/points"

	doJSON(t, http.MethodPost, base+"/award", map[string]any{"points": 100, "amount": "100.00"}, nil)
	doJSON(t, http.MethodPost, base+"/adjust", map[string]any{"points": -30}, nil)

	var report map[string]any
	resp := doJSON(t, http.MethodGet, base+"/consistency", nil, &report)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, report["consistent"])
	assert.Equal(t, float64(70), report["balance"])
}

// =============================================================================
// SALE AND LOYALTY ENDPOINT TESTS
// =============================================================================

func TestAPI_RecordSale_AwardsPoints(t *testing.T) {
	// GIVEN: Auto-award on
	// WHEN: Posting a completed 250.00 sale
	// THEN: 250 points awarded and purchase aggregates bumped

	server := newTestServer(t)
	id := createTestCustomer(t, server)

	var saleResp map[string]any
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/sales", map[string]any{
		"customer_id": id,
		"sale_id":     "S-1001",
		"amount":      "250.00",
	}, &saleResp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(250), saleResp["points_awarded"])

	var got map[string]any
	doJSON(t, http.MethodGet, server.URL+"/api/v1/pos/customers/"+id, nil, &got)
	assert.Equal(t, float64(250), got["points_balance"])
	assert.Equal(t, "250.00", got["total_purchases"])
	assert.Equal(t, float64(1), got["total_orders"])
}

func TestAPI_RecordSale_MissingFields(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/sales",
		map[string]any{"amount": "10.00"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_LoyaltyStatisticsAndExpireRun(t *testing.T) {
	// GIVEN: One award
	// WHEN: Fetching statistics and running the sweep
	// THEN: Totals reflect the award; the sweep reports zero (nothing due)

	server := newTestServer(t)
	id := createTestCustomer(t, server)
	doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/customers/"+id+"/points/award",
		map[string]any{"points": 500, "amount": "500.00"}, nil)

	var stats map[string]any
	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/pos/loyalty/statistics", nil, &stats)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(500), stats["total_points_awarded"])
	assert.Equal(t, float64(500), stats["current_balance"])

	var run map[string]any
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/pos/loyalty/expire-run", nil, &run)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), run["points_expired"])
}

// =============================================================================
// UTILITY ENDPOINT TESTS
// =============================================================================

func TestAPI_UtilMaps(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"point-types", "address-types", "customer-groups"} {
		var m map[string]string
		resp := doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/api/v1/pos/utils/%s", server.URL, path), nil, &m)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, m)
	}
}
