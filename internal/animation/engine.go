package animation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/psford/t-tracker/internal/metrics"
)

// FrameFunc observes the live vehicle mapping once per render tick. The
// map is shared state guarded by the store lock for the duration of the
// call: do not mutate it and do not retain it across frames.
type FrameFunc func(map[string]*VehicleState)

// Engine drives the render clock: a fixed-interval ticker that advances
// the store and invokes frame observers. Stop pauses the clock (the host
// going invisible); Start resumes it, rebasing in-flight animations so the
// paused interval does not replay as a compressed catch-up.
type Engine struct {
	store   *Store
	cfg     Config
	logger  *slog.Logger
	tracker *metrics.Tracker

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	pausedAt  time.Time
	observers []FrameFunc
	viewport  ViewportFunc

	wg sync.WaitGroup
}

// NewEngine creates an Engine over the given store. The metrics tracker
// may be nil.
func NewEngine(store *Store, cfg Config, logger *slog.Logger, tracker *metrics.Tracker) *Engine {
	return &Engine{
		store:   store,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "animation_engine")),
		tracker: tracker,
	}
}

// OnFrame registers a per-tick observer. Observers are invoked in
// registration order with the full live vehicle mapping.
func (e *Engine) OnFrame(fn FrameFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// SetViewport installs the rendering layer's viewport callback. Optional;
// without one every vehicle is animated each tick.
func (e *Engine) SetViewport(fn ViewportFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport = fn
}

// Start begins (or resumes) the render clock. A no-op when already running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	if !e.pausedAt.IsZero() {
		e.store.rebase(time.Since(e.pausedAt))
		e.pausedAt = time.Time{}
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.run(e.stopCh)
	e.logger.Info("render clock started",
		slog.Duration("tick", e.cfg.TickInterval))
}

// Stop pauses the render clock. The next scheduled tick is cancelled
// before Stop returns; no frame observer fires afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.pausedAt = time.Now()
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("render clock stopped")
}

func (e *Engine) run(stopCh chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	observers := e.observers
	viewport := e.viewport
	e.mu.Unlock()

	e.store.Advance(now, viewport, func(vehicles map[string]*VehicleState) {
		for _, fn := range observers {
			fn(vehicles)
		}
	})

	if e.tracker != nil {
		e.tracker.LiveVehicles.Set(float64(e.store.Len()))
	}
}
