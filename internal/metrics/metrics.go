// Package metrics exposes Prometheus instrumentation for the feed client,
// the animation engine, and the notification matcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracker bundles the service's collectors behind a private registry.
type Tracker struct {
	registry *prometheus.Registry

	// EventsTotal counts domain events by kind (reset, add, update, remove).
	EventsTotal *prometheus.CounterVec

	// DroppedRecords counts malformed feed records that were logged and dropped.
	DroppedRecords prometheus.Counter

	// Reconnects counts scheduled reconnect attempts.
	Reconnects prometheus.Counter

	// LiveVehicles tracks the size of the vehicle state map.
	LiveVehicles prometheus.Gauge

	// NotificationsTotal counts checkpoint notifications fired.
	NotificationsTotal prometheus.Counter
}

// NewTracker creates a Tracker with all collectors registered.
func NewTracker() *Tracker {
	t := &Tracker{
		registry: prometheus.NewRegistry(),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_feed_events_total",
				Help: "Domain events received from the vehicle feed, by kind",
			},
			[]string{"kind"},
		),
		DroppedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_feed_dropped_records_total",
			Help: "Malformed feed records dropped during normalization",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_feed_reconnects_total",
			Help: "Reconnect attempts scheduled after feed connection failures",
		}),
		LiveVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_live_vehicles",
			Help: "Vehicles currently present in the animation state map",
		}),
		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_notifications_total",
			Help: "Checkpoint notifications fired",
		}),
	}

	t.registry.MustRegister(
		collectors.NewGoCollector(),
		t.EventsTotal,
		t.DroppedRecords,
		t.Reconnects,
		t.LiveVehicles,
		t.NotificationsTotal,
	)
	return t
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
