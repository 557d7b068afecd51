package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/psford/t-tracker/internal/logging"
	"github.com/psford/t-tracker/internal/metrics"
	"github.com/psford/t-tracker/internal/models"
	"github.com/psford/t-tracker/internal/rules"
	"github.com/psford/t-tracker/internal/stream"
)

// RuleSource supplies the current rule set and the global pause flag. The
// matcher never mutates rules; direction and terminus decisions are
// configuration, not learned from live data.
type RuleSource interface {
	List() []rules.Rule
	Paused() bool
}

// StopResolver answers child-to-parent station lookups and supplies stop
// names for notification text.
type StopResolver interface {
	Parent(stopID string) (string, bool)
	Name(stopID string) string
}

type notifiedKey struct {
	vehicleID string
	ruleID    string
}

// Matcher evaluates every add/update event against the configured rules
// and fires at most one notification per (vehicle, rule) pair per session.
type Matcher struct {
	rules    RuleSource
	stops    StopResolver
	notifier Notifier
	logger   *slog.Logger
	tracker  *metrics.Tracker

	// strictDirection rejects vehicles that report no direction instead of
	// treating them as a best-effort match.
	strictDirection bool

	mu       sync.Mutex
	notified map[notifiedKey]struct{}
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithStrictDirection makes the matcher reject vehicles that omit their
// direction. The default is lenient: a direction-less vehicle matches any
// rule direction, logged as a fallback condition.
func WithStrictDirection() Option {
	return func(m *Matcher) { m.strictDirection = true }
}

// NewMatcher creates a Matcher. The metrics tracker may be nil.
func NewMatcher(ruleSource RuleSource, stops StopResolver, notifier Notifier, logger *slog.Logger, tracker *metrics.Tracker, opts ...Option) *Matcher {
	m := &Matcher{
		rules:    ruleSource,
		stops:    stops,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notification_matcher")),
		tracker:  tracker,
		notified: make(map[notifiedKey]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleEvent consumes domain events from the ingestion client. Only add
// and update events are matched; reset and remove carry no arrival signal.
func (m *Matcher) HandleEvent(ev stream.Event) {
	if ev.Kind != stream.KindAdd && ev.Kind != stream.KindUpdate {
		return
	}
	if ev.Vehicle == nil {
		return
	}
	m.evaluate(*ev.Vehicle)
}

func (m *Matcher) evaluate(v models.VehicleUpdate) {
	if m.rules.Paused() {
		return
	}
	for _, r := range m.rules.List() {
		if m.shouldNotify(r, v) {
			m.fire(r, v)
		}
	}
}

// shouldNotify applies the matching predicate, short-circuiting in order:
// route, checkpoint stop (directly or via parent station), dedup,
// direction, operational status.
func (m *Matcher) shouldNotify(r rules.Rule, v models.VehicleUpdate) bool {
	if v.RouteID != r.RouteID {
		return false
	}
	if !m.atCheckpoint(r, v) {
		return false
	}

	m.mu.Lock()
	_, already := m.notified[notifiedKey{vehicleID: v.ID, ruleID: r.ID}]
	m.mu.Unlock()
	if already {
		return false
	}

	if !r.Terminus {
		if v.DirectionID == nil {
			if m.strictDirection {
				return false
			}
			// Some vehicles omit direction entirely; treat them as a
			// best-effort match rather than silently never notifying.
			m.logger.Warn("vehicle reports no direction, matching leniently",
				slog.String("vehicle_id", v.ID),
				slog.String("rule_id", r.ID))
		} else if *v.DirectionID != r.DirectionID {
			return false
		}
	}

	switch v.CurrentStatus {
	case models.StatusStoppedAt, models.StatusIncomingAt:
		return true
	case "":
		// Older feeds omit status; stay permissive.
		return true
	default:
		// IN_TRANSIT_TO and anything unrecognized: not proximate yet.
		return false
	}
}

// atCheckpoint reports whether the vehicle's stop is the rule's checkpoint
// or a platform-level child of it.
func (m *Matcher) atCheckpoint(r rules.Rule, v models.VehicleUpdate) bool {
	if v.StopID == "" {
		return false
	}
	if v.StopID == r.CheckpointStopID {
		return true
	}
	if parent, ok := m.stops.Parent(v.StopID); ok {
		return parent == r.CheckpointStopID
	}
	return false
}

func (m *Matcher) fire(r rules.Rule, v models.VehicleUpdate) {
	// Record before delivery so repeated updates during the same dwell
	// cannot refire even if delivery itself is skipped or slow.
	m.mu.Lock()
	m.notified[notifiedKey{vehicleID: v.ID, ruleID: r.ID}] = struct{}{}
	m.mu.Unlock()

	if m.tracker != nil {
		m.tracker.NotificationsTotal.Inc()
	}

	n := Notification{
		Title: fmt.Sprintf("%s train at %s", r.RouteID, m.stops.Name(r.CheckpointStopID)),
		Body:  describeVehicle(v),
		Tag:   fmt.Sprintf("%s:%s", r.ID, v.ID),
	}

	switch m.notifier.Permission() {
	case PermissionGranted:
		if err := m.notifier.Notify(n); err != nil {
			logging.LogError(m.logger, "notification delivery failed", err,
				slog.String("tag", n.Tag))
		}
	default:
		m.logger.Info("notification suppressed, permission not granted",
			slog.String("tag", n.Tag),
			slog.String("permission", string(m.notifier.Permission())))
	}
}

func describeVehicle(v models.VehicleUpdate) string {
	label := v.Label
	if label == "" {
		label = v.ID
	}
	switch v.CurrentStatus {
	case models.StatusStoppedAt:
		return fmt.Sprintf("Vehicle %s is stopped at the checkpoint", label)
	case models.StatusIncomingAt:
		return fmt.Sprintf("Vehicle %s is arriving at the checkpoint", label)
	default:
		return fmt.Sprintf("Vehicle %s is at the checkpoint", label)
	}
}
