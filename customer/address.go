/*
address.go - Billing and shipping addresses

PURPOSE:
  Each customer owns up to a configured number of addresses, split into
  billing and shipping. Exactly one address per type may carry the
  default flag.

DEFAULT-FLAG RULES (applied as explicit service steps, not model hooks):
  1. The first address of a type becomes the default automatically.
  2. Creating or updating an address with IsDefault=true unsets the flag
     on every sibling of the same type, in the same transaction.
  3. Deleting the default address does not promote another one; the next
     create or explicit update establishes a new default.

SEE ALSO:
  - service.go: CreateAddress/UpdateAddress orchestration
*/
package customer

import "time"

// AddressType distinguishes billing from shipping addresses.
type AddressType string

const (
	AddressBilling  AddressType = "billing"
	AddressShipping AddressType = "shipping"
)

// Valid reports whether t is a known address type.
func (t AddressType) Valid() bool {
	return t == AddressBilling || t == AddressShipping
}

// Address is one billing or shipping address.
type Address struct {
	ID         string
	CustomerID string
	Type       AddressType

	Street       string
	StreetNumber string
	Interior     string
	Neighborhood string
	City         string
	State        string
	PostalCode   string
	Country      string
	Phone        string

	IsDefault bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
