package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/config"
	"github.com/latticedb/lattice/pkg/log"
	"github.com/latticedb/lattice/pkg/metrics"
	"github.com/latticedb/lattice/pkg/planner"
	"github.com/latticedb/lattice/pkg/rebuildsched"
	"github.com/latticedb/lattice/pkg/rpc"
	"github.com/latticedb/lattice/pkg/scrubber"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txn"
	"github.com/latticedb/lattice/pkg/txnevents"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "latticed",
	Short:   "Lattice - a column-oriented engine for hybrid relational and vector-similarity queries",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"latticed version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine: open the store, bootstrap the catalog, serve metrics and the rpc.Service boundary",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDirFlag, _ := cmd.Flags().GetString("data-dir")
		metricsAddrFlag, _ := cmd.Flags().GetString("metrics-addr")

		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
		}
		if dataDirFlag != "" {
			cfg.DataDir = dataDirFlag
		}
		if metricsAddrFlag != "" {
			cfg.MetricsAddr = metricsAddrFlag
		}

		fmt.Println("Starting latticed...")
		fmt.Printf("  Data Directory: %s\n", cfg.DataDir)
		fmt.Printf("  Metrics Address: %s\n", cfg.MetricsAddr)
		fmt.Println()

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		store, err := storage.Open(cfg.DataDir + "/lattice.db")
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		fmt.Println("✓ Storage opened")

		cat := catalog.New(store)
		if err := cat.Bootstrap(); err != nil {
			return fmt.Errorf("failed to bootstrap catalog: %w", err)
		}
		fmt.Println("✓ Catalog bootstrapped")

		events := txnevents.NewBroker()
		events.Start()
		fmt.Println("✓ Transaction event broker started")

		txns := txn.NewTransactionManager(256)

		scrub := scrubber.New(store, cat, events, cfg.Scheduler.StatsScrubInterval)
		scrub.Start()
		fmt.Println("✓ Statistics scrubber started")

		rebuild := rebuildsched.New(store, cat, events, cfg.Scheduler.IndexRebuildInterval)
		rebuild.Start()
		fmt.Println("✓ Index rebuild scheduler started")

		p := planner.New(cat, planner.Config{
			PlanCacheSize:       cfg.Planner.PlanCacheSize,
			BypassCache:         cfg.Planner.BypassCache,
			PersistPlan:         cfg.Planner.PersistPlan,
			IndexScanPartitions: cfg.Planner.IndexScanPartitions,
		})

		svc := rpc.NewInProcessService(store, cat, txns, p)

		// A System transaction that immediately commits is a smoke test that
		// every layer underneath rpc.Service actually wired up correctly
		// before the process reports itself ready.
		id, err := svc.Begin(txn.System)
		if err != nil {
			return fmt.Errorf("rpc.Service smoke test failed: %w", err)
		}
		if err := svc.Commit(id); err != nil {
			return fmt.Errorf("rpc.Service smoke test failed: %w", err)
		}
		fmt.Println("✓ rpc.Service boundary ready")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.MetricsAddr)
		fmt.Println()
		fmt.Println("latticed is running. Press Ctrl+C to stop.")
		fmt.Println()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		rebuild.Stop()
		scrub.Stop()
		events.Stop()
		_ = server.Close()
		if err := store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file (see pkg/config.EngineConfig)")
	serveCmd.Flags().String("data-dir", "", "Data directory, overriding the config file")
	serveCmd.Flags().String("metrics-addr", "", "Metrics listen address, overriding the config file")
}
