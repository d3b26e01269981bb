/*
Package event provides the domain event plumbing shared by the customer
and loyalty packages.

PURPOSE:
  Mutating operations (awarding points, creating customers, adding
  addresses) emit domain events for asynchronous consumers: audit
  logging, customer notification, downstream sync. Delivery is
  fire-and-forget: the originating database transaction has already
  committed by the time an event is published, so a failing consumer
  can never roll it back.

DESIGN:
  - Event is a marker interface; each domain defines its own concrete
    event structs.
  - Sink is the delivery interface. The default LogSink writes to the
    standard logger; production deployments swap in a queue-backed sink.
  - Publish never returns an error and must never panic the caller.

SEE ALSO:
  - loyalty/events.go: PointsEarned
  - customer/service.go: CustomerCreated, CustomerUpdated, AddressCreated
*/
package event

import "log"

// Event is implemented by all domain events.
type Event interface {
	// EventName returns a stable, dot-separated identifier
	// (e.g. "loyalty.points_earned").
	EventName() string
}

// Sink receives domain events after the originating transaction commits.
// Implementations must be safe for concurrent use and must not block
// for long; slow consumers should buffer internally.
type Sink interface {
	Publish(e Event)
}

// LogSink is the default Sink: it writes each event to the standard
// logger. Useful for development and as an audit trail of last resort.
type LogSink struct{}

func (LogSink) Publish(e Event) {
	log.Printf("[Event] %s: %+v", e.EventName(), e)
}

// NopSink discards all events. Used in tests that don't care about
// event delivery.
type NopSink struct{}

func (NopSink) Publish(Event) {}
