package stream

import "github.com/psford/t-tracker/internal/models"

// Kind identifies one of the four semantic event types carried by the feed.
type Kind string

const (
	// KindReset carries the feed's full snapshot. Consumers must treat it
	// as an authoritative replacement of all vehicle state, not a merge.
	KindReset Kind = "reset"

	// KindAdd introduces a single new vehicle.
	KindAdd Kind = "add"

	// KindUpdate carries fresh data for a single known vehicle.
	KindUpdate Kind = "update"

	// KindRemove retires a vehicle; only the id is populated.
	KindRemove Kind = "remove"
)

// Event is one normalized domain event emitted by the ingestion client.
type Event struct {
	Kind Kind

	// Vehicles is populated for reset events.
	Vehicles []models.VehicleUpdate

	// Vehicle is populated for add and update events.
	Vehicle *models.VehicleUpdate

	// ID is populated for remove events.
	ID string
}

// Handler consumes domain events. Handlers registered on a Client are
// invoked sequentially in registration order on the client's reader
// goroutine, preserving the wire order of events.
type Handler func(Event)
