package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/psford/t-tracker/internal/animation"
	"github.com/psford/t-tracker/internal/app"
	"github.com/psford/t-tracker/internal/config"
	"github.com/psford/t-tracker/internal/logging"
	"github.com/psford/t-tracker/internal/metrics"
	"github.com/psford/t-tracker/internal/notify"
	"github.com/psford/t-tracker/internal/rules"
	"github.com/psford/t-tracker/internal/stops"
	"github.com/psford/t-tracker/internal/stream"
	"github.com/psford/t-tracker/internal/ws"
)

func main() {
	var cfg app.Config
	var configPath string

	flag.IntVar(&cfg.Port, "port", 4000, "HTTP server port")
	flag.StringVar(&cfg.Env, "env", "development", "Environment (development|staging|production)")
	flag.StringVar(&configPath, "config", "config.yml", "Path to the YAML configuration file")
	flag.Parse()

	logger := logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)
	slog.SetDefault(logger)

	if err := run(cfg, configPath, logger); err != nil {
		logger.Error("tracker failed", "error", err)
		os.Exit(1)
	}
}

func run(appCfg app.Config, configPath string, logger *slog.Logger) error {
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	animCfg, err := fileCfg.AnimationConfig()
	if err != nil {
		return fmt.Errorf("invalid animation tuning: %w", err)
	}

	tracker := metrics.NewTracker()

	catalog, err := stops.Load(fileCfg.Catalog.Source)
	if err != nil {
		return fmt.Errorf("loading stop catalog: %w", err)
	}
	logger.Info("stop catalog loaded", "stops", catalog.Len())

	ruleStore, err := rules.Open(fileCfg.Notifications.RulesDBPath, catalog, logger)
	if err != nil {
		return fmt.Errorf("opening rule store: %w", err)
	}
	defer logging.SafeCloseWithLogging(ruleStore, logger, "rule_store")

	store := animation.NewStore(animCfg, logger)
	engine := animation.NewEngine(store, animCfg, logger, tracker)

	hub := ws.NewHub(250*time.Millisecond, logger)
	engine.OnFrame(hub.BroadcastFrame)

	notifier := notify.Fanout{hub.Notifier(), &notify.LogNotifier{Logger: logger}}
	var matcherOpts []notify.Option
	if fileCfg.Notifications.StrictDirection {
		matcherOpts = append(matcherOpts, notify.WithStrictDirection())
	}
	matcher := notify.NewMatcher(ruleStore, catalog, notifier, logger, tracker, matcherOpts...)

	client := stream.NewClient(fileCfg.StreamConfig(), logger, tracker)
	// Both consumers see the same event stream in wire order; the store
	// and the matcher share no mutable state.
	client.OnEvent(store.HandleEvent)
	client.OnEvent(matcher.HandleEvent)

	api := &application{&app.Application{
		Config:  appCfg,
		Logger:  logger,
		Stream:  client,
		Store:   store,
		Engine:  engine,
		Rules:   ruleStore,
		Matcher: matcher,
		Stops:   catalog,
		Hub:     hub,
		Metrics: tracker,
	}}

	engine.Start()
	defer engine.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Connect(ctx)
	defer client.Disconnect()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appCfg.Port),
		Handler:           api.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", appCfg.Port, "env", appCfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigs:
		logger.Info("shutdown initiated", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}
