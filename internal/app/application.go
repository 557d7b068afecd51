package app

import (
	"log/slog"

	"github.com/psford/t-tracker/internal/animation"
	"github.com/psford/t-tracker/internal/metrics"
	"github.com/psford/t-tracker/internal/notify"
	"github.com/psford/t-tracker/internal/rules"
	"github.com/psford/t-tracker/internal/stops"
	"github.com/psford/t-tracker/internal/stream"
	"github.com/psford/t-tracker/internal/ws"
)

// Config holds the process-level settings read from command-line flags.
type Config struct {
	Port int
	Env  string
}

// Application holds the dependencies for the HTTP handlers and the wiring
// between the ingestion client, the animation engine, and the matcher.
// Each subsystem is constructed once in main and passed here by reference;
// there are no ambient singletons.
type Application struct {
	Config  Config
	Logger  *slog.Logger
	Stream  *stream.Client
	Store   *animation.Store
	Engine  *animation.Engine
	Rules   *rules.Store
	Matcher *notify.Matcher
	Stops   *stops.Catalog
	Hub     *ws.Hub
	Metrics *metrics.Tracker
}
