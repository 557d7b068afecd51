package models

import "time"

// Vehicle operational status values as reported by the feed.
const (
	StatusStoppedAt   = "STOPPED_AT"
	StatusIncomingAt  = "INCOMING_AT"
	StatusInTransitTo = "IN_TRANSIT_TO"
)

// VehicleUpdate is a single normalized record from the vehicle feed.
// Optional fields use pointers so "not reported" is distinguishable from a
// zero value; downstream matching treats a missing direction or status
// differently from an explicit one.
type VehicleUpdate struct {
	ID                  string    `json:"id"`
	Latitude            float64   `json:"latitude"`
	Longitude           float64   `json:"longitude"`
	Bearing             *float64  `json:"bearing,omitempty"`
	CurrentStatus       string    `json:"currentStatus,omitempty"`
	CurrentStopSequence *int      `json:"currentStopSequence,omitempty"`
	DirectionID         *int      `json:"directionId,omitempty"`
	Label               string    `json:"label,omitempty"`
	Speed               *float64  `json:"speed,omitempty"` // meters per second
	UpdatedAt           time.Time `json:"updatedAt,omitzero"`
	RouteID             string    `json:"routeId,omitempty"`
	StopID              string    `json:"stopId,omitempty"`
	TripID              string    `json:"tripId,omitempty"`

	// Removal marks a record that carried no attributes block, which the
	// feed uses to signal that the vehicle should be dropped.
	Removal bool `json:"-"`
}
