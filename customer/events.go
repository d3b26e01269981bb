package customer

// Events published by the directory after a successful write. Delivery
// is fire-and-forget through the event.Sink; see the event package.

type CustomerCreated struct {
	Customer Customer
}

func (CustomerCreated) EventName() string { return "customer.created" }

type CustomerUpdated struct {
	Customer Customer
}

func (CustomerUpdated) EventName() string { return "customer.updated" }

type AddressCreated struct {
	Address Address
}

func (AddressCreated) EventName() string { return "customer.address_created" }
