package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/berth/pkg/api"
	"github.com/cuemby/berth/pkg/config"
	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/metrics"
	"github.com/cuemby/berth/pkg/reconciler"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the berth server",
	Long: `Run the placement API, the drain monitor and the metrics collector.

Settings come from the defaults, then --config, then any flag given on the
command line.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "Path to YAML config file")
	serveCmd.Flags().String("addr", "", "API listen address")
	serveCmd.Flags().String("storage", "", "Storage backend (bolt, memory, etcd)")
	serveCmd.Flags().String("data-dir", "", "Data directory for the bolt backend")
	serveCmd.Flags().StringSlice("etcd-endpoints", nil, "etcd endpoints for the etcd backend")
	serveCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("log-json", false, "Log as JSON")
	serveCmd.Flags().Bool("read-only", false, "Refuse placements and registry writes")
	serveCmd.Flags().Bool("no-drain", false, "Disable the drain monitor")
}

// loadConfig resolves the serve configuration
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("storage") {
		backend, _ := flags.GetString("storage")
		cfg.Storage.Backend = storage.Backend(backend)
	}
	if flags.Changed("data-dir") {
		cfg.Storage.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("etcd-endpoints") {
		cfg.Storage.EtcdEndpoints, _ = flags.GetStringSlice("etcd-endpoints")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("read-only") {
		cfg.Server.ReadOnly, _ = flags.GetBool("read-only")
	}
	if noDrain, _ := flags.GetBool("no-drain"); noDrain {
		cfg.Drain.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Init(cfg.LoggerConfig())
	metrics.SetVersion(Version)
	logger := log.WithComponent("serve")

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentStorage, false, err.Error())
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	defer store.Close()
	metrics.UpdateComponent(metrics.ComponentStorage, true, "")

	if err := seedPolicy(store, cfg); err != nil {
		return err
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go logEvents(sub)

	collector := metrics.NewCollector(store, cfg.Metrics.Interval)
	collector.Start()
	defer collector.Stop()

	if cfg.Drain.Enabled {
		recon := reconciler.NewReconciler(store, broker, cfg.Drain.Interval)
		recon.Start()
		defer recon.Stop()
	}

	srv := api.NewServer(store, scheduler.NewScheduler(), broker, api.Options{
		ReadOnly: cfg.Server.ReadOnly,
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	logger.Info().
		Str("version", Version).
		Str("addr", cfg.Server.Addr).
		Str("storage", string(cfg.Storage.Backend)).
		Bool("drain", cfg.Drain.Enabled).
		Msg("Berth is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case runErr = <-errCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("API shutdown incomplete")
	}

	if runErr != nil {
		return runErr
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}

// seedPolicy stores the configured policy when the registry has none, so a
// policy set through the API survives restarts
func seedPolicy(store storage.Store, cfg *config.Config) error {
	_, err := store.GetPolicy()
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read policy: %w", err)
	}
	policy := cfg.Policy
	if err := store.PutPolicy(&policy); err != nil {
		return fmt.Errorf("failed to store initial policy: %w", err)
	}
	logger := log.WithComponent("serve")
	logger.Info().
		Str("strategy", string(policy.Strategy)).
		Int("max_instances_per_node", policy.MaxInstancesPerNode).
		Msg("Stored initial placement policy")
	return nil
}

// logEvents mirrors broker events into the log until sub is closed
func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for ev := range sub {
		logger.Debug().
			Str("event_id", ev.ID).
			Str("type", string(ev.Type)).
			Interface("metadata", ev.Metadata).
			Msg(ev.Message)
	}
}
