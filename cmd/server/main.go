package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pulsewatch/internal/api"
	"github.com/good-yellow-bee/pulsewatch/internal/condition"
	"github.com/good-yellow-bee/pulsewatch/internal/engine"
	"github.com/good-yellow-bee/pulsewatch/internal/metrics"
	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/notifier"
	"github.com/good-yellow-bee/pulsewatch/internal/sched"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
	"github.com/good-yellow-bee/pulsewatch/pkg/config"
)

var (
	configFile string
	apiAddr    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pulsewatch-server",
	Short: "PulseWatch Server - Metric alerting engine",
	Long: `PulseWatch Server evaluates alert rules against time-series metrics,
manages the alert lifecycle, and delivers notifications across
configured channels with timed escalation.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulsewatch-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&apiAddr, "address", "a", "", "HTTP API listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if apiAddr != "" {
		cfg.API.Address = apiAddr
	}
	cfg.Verbose = verbose

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Metric source
	metricStore, err := openMetricStore(cfg)
	if err != nil {
		return err
	}
	defer metricStore.Close()

	// Notification channels
	dispatcher := notifier.NewDispatcher(store.Notifications(),
		cfg.Notifications.RatePerSecond, cfg.Notifications.RateBurst)
	defer dispatcher.Close()

	var watcher *notifier.Watcher
	if cfg.Notifications.ChannelsFile != "" {
		channels, err := notifier.LoadChannelsFromFile(cfg.Notifications.ChannelsFile)
		if err != nil {
			return fmt.Errorf("load channels: %w", err)
		}
		if err := notifier.Configure(dispatcher, channels); err != nil {
			return fmt.Errorf("configure channels: %w", err)
		}
		log.Printf("configured %d notification channels", len(channels))

		if !cfg.Notifications.DisableReload {
			watcher, err = notifier.NewWatcher(cfg.Notifications.ChannelsFile, dispatcher)
			if err != nil {
				return fmt.Errorf("watch channels file: %w", err)
			}
		}
	}

	// Engine and scheduler
	eng := engine.New(store, condition.NewRegistry(metricStore), dispatcher)

	scheduler := sched.New(sched.Config{
		Workspaces:         cfg.Scheduler.Workspaces,
		EvaluateInterval:   duration(cfg.Scheduler.EvaluateInterval, 30*time.Second),
		EscalationInterval: duration(cfg.Scheduler.EscalationInterval, time.Minute),
		HistoryRetention:   duration(cfg.Scheduler.HistoryRetention, 0),
	}, eng, store)

	// HTTP API
	apiSrv, err := api.New(&api.Config{
		Address:      cfg.API.Address,
		QueryTimeout: duration(cfg.API.QueryTimeout, 10*time.Second),
		Verbose:      cfg.Verbose,
	}, store, eng, dispatcher)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	// Prometheus endpoint
	metricsSrv := metrics.NewServer(cfg.Metrics.ListenAddress)
	metricsSrv.Start()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting pulsewatch-server %s", config.Version)
	log.Printf("evaluating workspaces %v every %s", cfg.Scheduler.Workspaces, cfg.Scheduler.EvaluateInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return apiSrv.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	err = g.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
		log.Printf("metrics server: %v", serr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// openMetricStore connects to ClickHouse, or falls back to an in-memory
// store when it is disabled.
func openMetricStore(cfg *Config) (metricstore.Store, error) {
	if !cfg.Metrics.ClickHouse.Enabled {
		log.Printf("WARNING: ClickHouse disabled, using in-memory metric store")
		return metricstore.NewMemoryStore(), nil
	}

	ch := metricstore.NewClickHouseStore(&metricstore.ClickHouseConfig{
		Addresses:     cfg.Metrics.ClickHouse.Addresses,
		Database:      cfg.Metrics.ClickHouse.Database,
		Username:      cfg.Metrics.ClickHouse.Username,
		Password:      cfg.Metrics.ClickHouse.Password,
		QueryTimeout:  duration(cfg.Metrics.ClickHouse.QueryTimeout, 10*time.Second),
		RetentionDays: cfg.Metrics.ClickHouse.RetentionDays,
	})
	if err := ch.Open(); err != nil {
		return nil, fmt.Errorf("connect to ClickHouse: %w", err)
	}
	if err := ch.Migrate(); err != nil {
		ch.Close()
		return nil, fmt.Errorf("migrate ClickHouse schema: %w", err)
	}
	log.Printf("connected to ClickHouse at %v", cfg.Metrics.ClickHouse.Addresses)
	return ch, nil
}
