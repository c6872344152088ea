package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lantos1618/better-ui-sub002/internal/config"
	"github.com/lantos1618/better-ui-sub002/internal/logger"
	"github.com/lantos1618/better-ui-sub002/internal/metrics"
	"github.com/lantos1618/better-ui-sub002/internal/observability"
	"github.com/lantos1618/better-ui-sub002/pkg/builtin"
	"github.com/lantos1618/better-ui-sub002/pkg/capability"
	"github.com/lantos1618/better-ui-sub002/pkg/middleware"
	"github.com/lantos1618/better-ui-sub002/pkg/scheduler"
	"github.com/lantos1618/better-ui-sub002/pkg/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine server",
	Long: `Run the capability engine server: loads configuration, registers
built-in capabilities, starts the HTTP transport and any configured
schedules, and serves until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.Setup(cfg.LoggerConfig())
	if err != nil {
		return err
	}
	defer closeLog()

	return serve(cmd.Context(), cfg, log)
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	m := metrics.NewMetrics()
	reg := capability.NewRegistry()

	if cfg.Builtins.Enabled {
		if err := builtin.Register(reg, builtin.Options{AllowFetch: cfg.Builtins.AllowFetch}); err != nil {
			return fmt.Errorf("failed to register builtins: %w", err)
		}
	}

	var recorder observability.Recorder
	if cfg.Audit.Enabled {
		store, err := observability.NewAuditStore(cfg.Audit.DBPath, log)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	applyPipeline(reg, m, recorder, log)

	sched, err := scheduler.New(reg, m, log)
	if err != nil {
		return err
	}
	for _, entry := range cfg.Schedules {
		if _, err := sched.Add(scheduler.Entry{Name: entry.Name, Spec: entry.Spec, Input: entry.Input}); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", entry.Name, err)
		}
	}
	sched.Start()

	// Server config changes still need a restart; schedule edits apply live.
	watcher, err := config.NewWatcher(config.NewLoader(cfgFile), func(next *config.Config) {
		applySchedules(sched, next.Schedules, log)
	}, log)
	if err == nil {
		if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Config watcher unavailable")
		} else {
			defer watcher.Stop()
		}
	}

	if !cfg.Server.Enabled {
		log.Info().Msg("Transport server disabled, running scheduler only")
		<-signalContext(ctx).Done()
		return stopScheduler(sched)
	}

	srv, err := transport.NewServer(transport.ServerOptions{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, reg, m, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	runCtx := signalContext(ctx)
	select {
	case err := <-errCh:
		return err
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	return stopScheduler(sched)
}

// applyPipeline replaces every registered capability with a copy whose
// pipeline runs the ambient stack first: recovery, metrics, logging,
// then audit closest to the handler. Replacement keeps registry order.
func applyPipeline(reg *capability.Registry, m *metrics.Metrics, recorder observability.Recorder, log zerolog.Logger) {
	for _, def := range reg.List() {
		name := def.Name()
		stages := []capability.Middleware{
			middleware.Recover(),
			middleware.Metrics(m, name),
			middleware.Logging(log, name),
		}
		if recorder != nil {
			stages = append(stages, middleware.Audit(recorder, name))
		}
		if err := reg.Register(capability.WithMiddleware(def, stages...)); err != nil {
			log.Error().Err(err).Str("capability", name).Msg("Failed to instrument capability")
		}
	}
}

// applySchedules replaces the whole schedule set, the simplest correct
// behavior for a reloaded config.
func applySchedules(sched *scheduler.Scheduler, entries []config.ScheduleConfig, log zerolog.Logger) {
	sched.Clear()
	for _, entry := range entries {
		if _, err := sched.Add(scheduler.Entry{Name: entry.Name, Spec: entry.Spec, Input: entry.Input}); err != nil {
			log.Error().Err(err).Str("capability", entry.Name).Msg("Failed to apply reloaded schedule")
		}
	}
}

func stopScheduler(sched *scheduler.Scheduler) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return sched.Stop(ctx)
}

func signalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
