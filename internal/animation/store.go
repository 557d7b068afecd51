// Package animation owns the authoritative per-vehicle state map and keeps
// it visually smooth despite discrete, irregularly spaced feed updates. The
// Store applies domain events under a single-writer mutex; the Engine
// drives a fixed-tick render clock that interpolates, extrapolates, and
// advances vehicle lifecycles.
package animation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/psford/t-tracker/internal/geo"
	"github.com/psford/t-tracker/internal/models"
	"github.com/psford/t-tracker/internal/stream"
)

// Store holds the vehicle state map. All mutation happens through
// HandleEvent and Advance, serialized behind one mutex.
type Store struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	vehicles map[string]*VehicleState

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewStore creates an empty Store.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	return &Store{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "vehicle_store")),
		vehicles: make(map[string]*VehicleState),
		now:      time.Now,
	}
}

// HandleEvent applies one domain event from the ingestion client. Events
// are applied in arrival order; the caller (the client's dispatch loop)
// guarantees FIFO per source.
func (s *Store) HandleEvent(ev stream.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case stream.KindReset:
		s.applyReset(ev.Vehicles)
	case stream.KindAdd:
		if ev.Vehicle != nil {
			s.applyAdd(*ev.Vehicle)
		}
	case stream.KindUpdate:
		if ev.Vehicle != nil {
			s.applyUpdate(*ev.Vehicle)
		}
	case stream.KindRemove:
		s.applyRemove(ev.ID)
	}
}

// Len returns the number of live vehicles, including ones fading out.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vehicles)
}

// Snapshot returns a copy of the current vehicle states for read-only
// consumers such as the REST API.
func (s *Store) Snapshot() []VehicleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]VehicleState, 0, len(s.vehicles))
	for _, st := range s.vehicles {
		out = append(out, *st)
	}
	return out
}

func (s *Store) applyReset(vehicles []models.VehicleUpdate) {
	// Authoritative replacement, not a merge.
	s.vehicles = make(map[string]*VehicleState, len(vehicles))
	for _, u := range vehicles {
		s.vehicles[u.ID] = s.newState(u)
	}
	s.logger.Info("vehicle state reset", slog.Int("vehicles", len(vehicles)))
}

func (s *Store) applyAdd(u models.VehicleUpdate) {
	if _, exists := s.vehicles[u.ID]; exists {
		// Duplicate add degrades to the update path.
		s.applyUpdate(u)
		return
	}
	s.vehicles[u.ID] = s.newState(u)
}

func (s *Store) applyUpdate(u models.VehicleUpdate) {
	st, ok := s.vehicles[u.ID]
	if !ok {
		s.vehicles[u.ID] = s.newState(u)
		return
	}
	now := s.now()

	// Snapshot the currently rendered values: the new segment interpolates
	// from wherever the vehicle is drawn right now, so an update arriving
	// mid-animation never causes a visual jump back.
	st.PrevLatitude = st.Latitude
	st.PrevLongitude = st.Longitude
	st.PrevBearing = st.Bearing

	dist := geo.DistanceMeters(st.Latitude, st.Longitude, u.Latitude, u.Longitude)

	// Below the minimal-movement threshold the heading is noise; keep the
	// previous bearing instead of adopting it.
	bearing := st.Bearing
	if dist >= s.cfg.MinMovementMeters {
		bearing = geo.BearingDegrees(st.Latitude, st.Longitude, u.Latitude, u.Longitude)
	}

	if dist > s.cfg.SnapThresholdMeters {
		// Feed discontinuity: render instantly.
		st.Latitude, st.Longitude, st.Bearing = u.Latitude, u.Longitude, bearing
		st.PrevLatitude, st.PrevLongitude, st.PrevBearing = u.Latitude, u.Longitude, bearing
		st.TargetLatitude, st.TargetLongitude, st.TargetBearing = u.Latitude, u.Longitude, bearing
		st.AnimationDuration = 0
	} else {
		st.TargetLatitude, st.TargetLongitude, st.TargetBearing = u.Latitude, u.Longitude, bearing
		st.AnimationDuration = s.cfg.Interpolate
	}
	st.AnimationStart = now
	st.LastUpdate = now

	// Lifecycle is deliberately untouched: an entering vehicle finishes
	// its fade-in on the render clock, not on update arrival.
	s.refreshMetadata(st, u)
}

func (s *Store) applyRemove(id string) {
	st, ok := s.vehicles[id]
	if !ok {
		return
	}
	// Hold position and fade out; deletion happens when the fade elapses.
	st.PrevLatitude, st.PrevLongitude, st.PrevBearing = st.Latitude, st.Longitude, st.Bearing
	st.TargetLatitude, st.TargetLongitude, st.TargetBearing = st.Latitude, st.Longitude, st.Bearing
	st.Lifecycle = LifecycleExiting
	st.AnimationStart = s.now()
	st.AnimationDuration = s.cfg.FadeOut
}

func (s *Store) newState(u models.VehicleUpdate) *VehicleState {
	now := s.now()
	bearing := 0.0
	if u.Bearing != nil {
		bearing = *u.Bearing
	}
	st := &VehicleState{
		ID:                u.ID,
		Latitude:          u.Latitude,
		Longitude:         u.Longitude,
		Bearing:           bearing,
		Opacity:           0,
		TargetLatitude:    u.Latitude,
		TargetLongitude:   u.Longitude,
		TargetBearing:     bearing,
		PrevLatitude:      u.Latitude,
		PrevLongitude:     u.Longitude,
		PrevBearing:       bearing,
		AnimationStart:    now,
		AnimationDuration: s.cfg.FadeIn,
		LastUpdate:        now,
		Lifecycle:         LifecycleEntering,
	}
	s.refreshMetadata(st, u)
	return st
}

func (s *Store) refreshMetadata(st *VehicleState, u models.VehicleUpdate) {
	st.RouteID = u.RouteID
	st.CurrentStatus = u.CurrentStatus
	st.StopID = u.StopID
	st.CurrentStopSequence = u.CurrentStopSequence
	st.DirectionID = u.DirectionID
	st.Label = u.Label
	st.Speed = u.Speed
	st.UpdatedAt = u.UpdatedAt
}

// Advance moves every vehicle one render tick forward. Lifecycle
// bookkeeping (promotion, deletion) runs unconditionally; position work is
// skipped for vehicles outside the viewport when one is supplied. The
// frame callback, if non-nil, is invoked with the live mapping while the
// store lock is held; it must treat the map as read-only and return
// promptly.
func (s *Store) Advance(now time.Time, viewport ViewportFunc, frame func(map[string]*VehicleState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var vp Viewport
	haveVP := false
	if viewport != nil {
		vp, haveVP = viewport()
	}

	var expired []string
	for id, st := range s.vehicles {
		t := 1.0
		if st.AnimationDuration > 0 {
			t = float64(now.Sub(st.AnimationStart)) / float64(st.AnimationDuration)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
		}
		eased := geo.EaseOutCubic(t)

		switch st.Lifecycle {
		case LifecycleEntering:
			st.Opacity = eased
			if t >= 1 {
				st.Lifecycle = LifecycleActive
				st.Opacity = 1
			}
		case LifecycleExiting:
			st.Opacity = 1 - eased
			if t >= 1 {
				expired = append(expired, id)
				continue
			}
		case LifecycleActive:
			st.Opacity = 1
		}

		if haveVP && !vp.Contains(st.Latitude, st.Longitude) &&
			!vp.Contains(st.TargetLatitude, st.TargetLongitude) {
			continue
		}
		s.advancePosition(st, t, eased, now)
	}

	for _, id := range expired {
		delete(s.vehicles, id)
	}

	if frame != nil {
		frame(s.vehicles)
	}
}

// advancePosition interpolates toward the target while the segment is
// active, then hands off to distance-based dead reckoning. Position uses
// linear t so the handoff at t=1 is seamless; bearing turns along the
// shortest arc with the eased t.
func (s *Store) advancePosition(st *VehicleState, t, eased float64, now time.Time) {
	if t < 1 {
		st.Latitude = geo.Lerp(st.PrevLatitude, st.TargetLatitude, t)
		st.Longitude = geo.Lerp(st.PrevLongitude, st.TargetLongitude, t)
		st.Bearing = geo.LerpAngle(st.PrevBearing, st.TargetBearing, eased)
		return
	}

	st.Latitude = st.TargetLatitude
	st.Longitude = st.TargetLongitude
	st.Bearing = st.TargetBearing

	if st.Lifecycle != LifecycleActive {
		return
	}
	if st.Speed == nil || *st.Speed <= s.cfg.SpeedFloorMetersPerSec {
		return
	}
	age := now.Sub(st.LastUpdate)
	if age <= 0 || age > s.cfg.ExtrapolationHorizon {
		// Beyond the horizon the vehicle holds at its last target.
		return
	}
	st.Latitude, st.Longitude = geo.ProjectMeters(
		st.TargetLatitude, st.TargetLongitude, st.TargetBearing,
		*st.Speed*age.Seconds())
}

// rebase shifts every in-flight animation start time forward by delta, used
// when the render clock resumes after a pause so accumulated wall-clock
// time does not produce a visual jump.
func (s *Store) rebase(delta time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.vehicles {
		st.AnimationStart = st.AnimationStart.Add(delta)
	}
}
