package animation

import "time"

// Config holds the tuning parameters for the animation engine.
type Config struct {
	// FadeIn and FadeOut are the lifecycle blend durations for vehicles
	// entering and exiting the map.
	FadeIn  time.Duration
	FadeOut time.Duration

	// Interpolate is how long a position update is eased toward once it
	// arrives, before dead reckoning takes over.
	Interpolate time.Duration

	// SnapThresholdMeters is the distance above which a position change is
	// treated as a feed discontinuity and rendered instantly.
	SnapThresholdMeters float64

	// MinMovementMeters is the distance below which a vehicle is treated
	// as stationary and keeps its previous bearing.
	MinMovementMeters float64

	// SpeedFloorMetersPerSec is the minimum reported speed considered
	// usable for extrapolation; anything below is sensor noise.
	SpeedFloorMetersPerSec float64

	// ExtrapolationHorizon caps how long a vehicle is dead-reckoned
	// forward without an authoritative update.
	ExtrapolationHorizon time.Duration

	// TickInterval is the render clock period.
	TickInterval time.Duration
}

// DefaultConfig returns the default animation tuning.
func DefaultConfig() Config {
	return Config{
		FadeIn:                 500 * time.Millisecond,
		FadeOut:                500 * time.Millisecond,
		Interpolate:            1 * time.Second,
		SnapThresholdMeters:    500,
		MinMovementMeters:      1,
		SpeedFloorMetersPerSec: 0.5,
		ExtrapolationHorizon:   30 * time.Second,
		TickInterval:           time.Second / 60,
	}
}
