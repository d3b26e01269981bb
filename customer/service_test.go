package customer_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaely/pos-customer/customer"
	"github.com/kaely/pos-customer/event"
	"github.com/kaely/pos-customer/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) *customer.Service {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return customer.NewService(store, customer.DefaultSettings(), event.NopSink{})
}

func createCustomer(t *testing.T, svc *customer.Service) *customer.Customer {
	t.Helper()

	c, err := svc.Create(context.Background(), customer.CreateInput{
		Name:  "Maria Lopez",
		Email: "Maria@Example.com",
		RFC:   "lome850101abc",
	})
	require.NoError(t, err)
	return c
}

func billingInput() customer.AddressInput {
	return customer.AddressInput{
		Type:       customer.AddressBilling,
		Street:     "Av. Reforma",
		City:       "CDMX",
		State:      "CDMX",
		PostalCode: "06600",
	}
}

func shippingInput() customer.AddressInput {
	return customer.AddressInput{
		Type:       customer.AddressShipping,
		Street:     "Calle 5 de Mayo",
		City:       "Puebla",
		State:      "Puebla",
		PostalCode: "72000",
	}
}

func boolPtr(b bool) *bool { return &b }

// =============================================================================
// CUSTOMER LIFECYCLE TESTS
// =============================================================================

func TestService_Create_NormalizesAndDefaults(t *testing.T) {
	// GIVEN: Mixed-case email and lowercase RFC
	// WHEN: Creating the customer
	// THEN: Email lowered, RFC uppered, defaults applied

	svc := newTestService(t)
	c := createCustomer(t, svc)

	assert.Equal(t, "maria@example.com", c.Email)
	assert.Equal(t, "LOME850101ABC", c.RFC)
	assert.Equal(t, "general", c.Group)
	assert.True(t, c.IsActive)
	assert.True(t, c.CreditLimit.IsZero())
	assert.Equal(t, int64(0), c.PointsBalance)
}

func TestService_Create_RequiredFields(t *testing.T) {
	// GIVEN: Missing name or email
	// WHEN: Creating
	// THEN: Validation error

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer.CreateInput{Email: "a@b.com"})
	assert.ErrorIs(t, err, customer.ErrValidation)

	_, err = svc.Create(ctx, customer.CreateInput{Name: "Maria"})
	assert.ErrorIs(t, err, customer.ErrValidation)
}

func TestService_Create_NegativeCreditLimitRejected(t *testing.T) {
	// GIVEN: A negative credit limit
	// WHEN: Creating
	// THEN: Validation error

	svc := newTestService(t)
	limit := decimal.NewFromInt(-100)

	_, err := svc.Create(context.Background(), customer.CreateInput{
		Name:        "Maria",
		Email:       "maria@example.com",
		CreditLimit: &limit,
	})
	assert.ErrorIs(t, err, customer.ErrValidation)
}

func TestService_Create_WithInitialAddresses(t *testing.T) {
	// GIVEN: Create input carrying a billing and a shipping address
	// WHEN: Creating the customer
	// THEN: Both stored, each default for its type

	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, customer.CreateInput{
		Name:      "Maria",
		Email:     "maria@example.com",
		Addresses: []customer.AddressInput{billingInput(), shippingInput()},
	})
	require.NoError(t, err)

	addresses, err := svc.Addresses(ctx, c.ID, "")
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	for _, a := range addresses {
		assert.True(t, a.IsDefault, "first address of type %s should be default", a.Type)
		assert.Equal(t, "MX", a.Country, "country should default")
	}
}

func TestService_Update_PartialFields(t *testing.T) {
	// GIVEN: An existing customer
	// WHEN: Updating only the phone
	// THEN: Phone changes, everything else stays

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	phone := "555-0101"
	updated, err := svc.Update(ctx, c.ID, customer.UpdateInput{Phone: &phone})
	require.NoError(t, err)

	assert.Equal(t, "555-0101", updated.Phone)
	assert.Equal(t, c.Name, updated.Name)
	assert.Equal(t, c.Email, updated.Email)
}

func TestService_Delete_SoftDeleteAndRestore(t *testing.T) {
	// GIVEN: An existing customer
	// WHEN: Deleting then restoring
	// THEN: Invisible between, visible again after, same record

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	require.NoError(t, svc.Delete(ctx, c.ID))

	_, err := svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, customer.ErrNotFound)

	restored, err := svc.Restore(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, restored.ID)
	assert.Equal(t, c.Email, restored.Email)
}

func TestService_Delete_Twice(t *testing.T) {
	// GIVEN: An already deleted customer
	// WHEN: Deleting again
	// THEN: ErrNotFound

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, c.ID), customer.ErrNotFound)
}

func TestService_ActivateDeactivate(t *testing.T) {
	// GIVEN: An active customer
	// WHEN: Deactivating then activating
	// THEN: Flag follows

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	require.NoError(t, svc.Deactivate(ctx, c.ID))
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, svc.Activate(ctx, c.ID))
	got, err = svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

// =============================================================================
// SEARCH TESTS
// =============================================================================

func TestService_Search_Filters(t *testing.T) {
	// GIVEN: Three customers across two groups
	// WHEN: Filtering by group, search text, and active flag
	// THEN: Only matching customers are returned

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer.CreateInput{Name: "Maria Lopez", Email: "maria@example.com", Group: "vip"})
	require.NoError(t, err)
	juan, err := svc.Create(ctx, customer.CreateInput{Name: "Juan Perez", Email: "juan@example.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, customer.CreateInput{Name: "Ana Ruiz", Email: "ana@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, juan.ID))

	vips, err := svc.Search(ctx, customer.Filter{Group: "vip"})
	require.NoError(t, err)
	require.Len(t, vips, 1)
	assert.Equal(t, "Maria Lopez", vips[0].Name)

	byText, err := svc.Search(ctx, customer.Filter{Search: "perez"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, "Juan Perez", byText[0].Name)

	active := true
	actives, err := svc.Search(ctx, customer.Filter{Active: &active})
	require.NoError(t, err)
	assert.Len(t, actives, 2)
}

func TestService_Search_ExcludesDeletedByDefault(t *testing.T) {
	// GIVEN: One live and one deleted customer
	// WHEN: Searching with and without include_deleted
	// THEN: Deleted shows up only when asked for

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer.CreateInput{Name: "Maria", Email: "maria@example.com"})
	require.NoError(t, err)
	gone, err := svc.Create(ctx, customer.CreateInput{Name: "Juan", Email: "juan@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, gone.ID))

	visible, err := svc.Search(ctx, customer.Filter{})
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := svc.Search(ctx, customer.Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_Search_OrderColumnWhitelist(t *testing.T) {
	// GIVEN: An order_by value that is not a known column
	// WHEN: Searching
	// THEN: No error; ordering falls back to created_at

	svc := newTestService(t)
	ctx := context.Background()
	createCustomer(t, svc)

	_, err := svc.Search(ctx, customer.Filter{OrderBy: "points_balance; DROP TABLE customers"})
	require.NoError(t, err)

	again, err := svc.Search(ctx, customer.Filter{})
	require.NoError(t, err)
	assert.Len(t, again, 1, "customers table must survive")
}

// =============================================================================
// PURCHASE AGGREGATE TESTS
// =============================================================================

func TestService_RecordPurchase_Accumulates(t *testing.T) {
	// GIVEN: A customer with no purchases
	// WHEN: Recording two sales
	// THEN: Totals and order count accumulate, last purchase stamps

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	require.NoError(t, svc.RecordPurchase(ctx, c.ID, decimal.NewFromFloat(149.90), time.Now()))
	require.NoError(t, svc.RecordPurchase(ctx, c.ID, decimal.NewFromFloat(50.10), time.Now()))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalPurchases.Equal(decimal.NewFromInt(200)), "got %s", got.TotalPurchases)
	assert.Equal(t, int64(2), got.TotalOrders)
	assert.NotNil(t, got.LastPurchaseAt)
}

func TestService_Statistics(t *testing.T) {
	// GIVEN: Two customers, one inactive
	// WHEN: Computing directory statistics
	// THEN: Counts reflect the directory

	svc := newTestService(t)
	ctx := context.Background()

	createCustomer(t, svc)
	juan, err := svc.Create(ctx, customer.CreateInput{Name: "Juan", Email: "juan@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, juan.ID))

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Inactive)
}

// =============================================================================
// ADDRESS DEFAULT-FLAG TESTS
// =============================================================================

func TestService_CreateAddress_FirstOfTypeIsDefault(t *testing.T) {
	// GIVEN: A customer with no addresses
	// WHEN: Adding a billing then a second billing address
	// THEN: First is default, second is not

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	first, err := svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
}

func TestService_CreateAddress_DefaultPerType(t *testing.T) {
	// GIVEN: A customer with a default billing address
	// WHEN: Adding the first shipping address
	// THEN: It becomes default for shipping; billing default unchanged

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	billing, err := svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)

	shipping, err := svc.CreateAddress(ctx, c.ID, shippingInput())
	require.NoError(t, err)
	assert.True(t, shipping.IsDefault)

	gotBilling, err := svc.DefaultAddress(ctx, c.ID, customer.AddressBilling)
	require.NoError(t, err)
	require.NotNil(t, gotBilling)
	assert.Equal(t, billing.ID, gotBilling.ID)
}

func TestService_CreateAddress_ExplicitDefaultUnsetsSiblings(t *testing.T) {
	// GIVEN: Two billing addresses, the first default
	// WHEN: Adding a third with is_default=true
	// THEN: It is the only default billing address

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	_, err := svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)
	_, err = svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)

	in := billingInput()
	in.IsDefault = boolPtr(true)
	third, err := svc.CreateAddress(ctx, c.ID, in)
	require.NoError(t, err)

	addresses, err := svc.Addresses(ctx, c.ID, customer.AddressBilling)
	require.NoError(t, err)
	require.Len(t, addresses, 3)

	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			assert.Equal(t, third.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults, "exactly one default billing address")
}

func TestService_CreateAddress_LimitEnforced(t *testing.T) {
	// GIVEN: A customer at the 5-address limit
	// WHEN: Adding a sixth
	// THEN: ErrTooManyAddresses

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	for i := 0; i < 5; i++ {
		_, err := svc.CreateAddress(ctx, c.ID, billingInput())
		require.NoError(t, err)
	}

	_, err := svc.CreateAddress(ctx, c.ID, billingInput())
	assert.ErrorIs(t, err, customer.ErrTooManyAddresses)
}

func TestService_CreateAddress_Validation(t *testing.T) {
	// GIVEN: An address missing its street
	// WHEN: Creating it
	// THEN: Validation error naming the field

	svc := newTestService(t)
	c := createCustomer(t, svc)

	in := billingInput()
	in.Street = ""
	_, err := svc.CreateAddress(context.Background(), c.ID, in)
	assert.ErrorIs(t, err, customer.ErrValidation)
}

func TestService_UpdateAddress_PromoteToDefault(t *testing.T) {
	// GIVEN: Two billing addresses, first default
	// WHEN: Updating the second with is_default=true
	// THEN: Default moves to the second

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	_, err := svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)
	second, err := svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)

	in := billingInput()
	in.IsDefault = boolPtr(true)
	_, err = svc.UpdateAddress(ctx, c.ID, second.ID, in)
	require.NoError(t, err)

	def, err := svc.DefaultAddress(ctx, c.ID, customer.AddressBilling)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, second.ID, def.ID)
}

func TestService_DeleteAddress(t *testing.T) {
	// GIVEN: A customer with one address
	// WHEN: Deleting it
	// THEN: Gone; deleting again is ErrNotFound

	svc := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, svc)

	a, err := svc.CreateAddress(ctx, c.ID, billingInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAddress(ctx, c.ID, a.ID))
	assert.ErrorIs(t, svc.DeleteAddress(ctx, c.ID, a.ID), customer.ErrNotFound)
}

func TestService_DefaultAddress_NoneIsNil(t *testing.T) {
	// GIVEN: A customer without a shipping address
	// WHEN: Asking for the default shipping address
	// THEN: (nil, nil) - absence is not an error

	svc := newTestService(t)
	c := createCustomer(t, svc)

	def, err := svc.DefaultAddress(context.Background(), c.ID, customer.AddressShipping)
	require.NoError(t, err)
	assert.Nil(t, def)
}
