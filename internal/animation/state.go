package animation

import "time"

// Lifecycle represents the fade-in/steady/fade-out stage of a vehicle's
// on-screen representation. Stages are never skipped: a vehicle created by
// reset or add starts entering, is promoted to active only by the render
// loop once its fade-in elapses, and a removed vehicle fades out as exiting
// before it is deleted.
type Lifecycle string

const (
	LifecycleEntering Lifecycle = "entering"
	LifecycleActive   Lifecycle = "active"
	LifecycleExiting  Lifecycle = "exiting"
)

// VehicleState is the authoritative animated state for one vehicle. The
// rendered fields are what a consumer should draw this frame; the target
// fields are the last authoritative values from the feed; the previous
// fields snapshot the rendered values at the start of the current animation
// segment.
type VehicleState struct {
	ID string `json:"id"`

	// Rendered position.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Bearing   float64 `json:"bearing"`
	Opacity   float64 `json:"opacity"`

	TargetLatitude  float64 `json:"-"`
	TargetLongitude float64 `json:"-"`
	TargetBearing   float64 `json:"-"`

	PrevLatitude  float64 `json:"-"`
	PrevLongitude float64 `json:"-"`
	PrevBearing   float64 `json:"-"`

	AnimationStart    time.Time     `json:"-"`
	AnimationDuration time.Duration `json:"-"`
	LastUpdate        time.Time     `json:"-"`

	Lifecycle Lifecycle `json:"lifecycle"`

	// Pass-through metadata, refreshed on every update.
	RouteID             string    `json:"routeId,omitempty"`
	CurrentStatus       string    `json:"currentStatus,omitempty"`
	StopID              string    `json:"stopId,omitempty"`
	CurrentStopSequence *int      `json:"currentStopSequence,omitempty"`
	DirectionID         *int      `json:"directionId,omitempty"`
	Label               string    `json:"label,omitempty"`
	Speed               *float64  `json:"speed,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt,omitzero"`
}

// Viewport is a latitude/longitude bounding box supplied by the rendering
// layer. Vehicles outside it skip position interpolation, never lifecycle
// bookkeeping.
type Viewport struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// Contains reports whether the point falls inside the viewport.
func (v Viewport) Contains(lat, lon float64) bool {
	return lat >= v.MinLatitude && lat <= v.MaxLatitude &&
		lon >= v.MinLongitude && lon <= v.MaxLongitude
}

// ViewportFunc returns the current viewport, or ok=false when no viewport
// is known and all vehicles should be animated.
type ViewportFunc func() (vp Viewport, ok bool)
