package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2ResSpectra/internal/api"
	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/engine/manager"
	"Go2ResSpectra/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	autostart  bool
)

var rootCmd = &cobra.Command{
	Use:   "rs-engine",
	Short: "Aggregates per-node resource snapshots",
	Long: `rs-engine subscribes to the resource snapshot stream, buffers the samples of the
configured nodes while aggregation is active and computes per-node averages on request.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(lvl)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "Path to the configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level. One of debug, info, warn, error, fatal, panic.")
	rootCmd.Flags().BoolVar(&autostart, "autostart", false, "Start aggregating as soon as the transport is connected.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	log.Println("Starting rs-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Build the manager
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mgr, err := manager.NewManager(cfg, metrics.New(reg))
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	// 3. Connect the transport
	if err := mgr.Start(); err != nil {
		mgr.Stop()
		return err
	}
	if autostart {
		mgr.Begin()
	}

	// 4. Serve the control API
	server := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           api.NewRouter(mgr, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 5. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Shutdown signal received, stopping engine...")
	case err = <-serverErr:
		log.Errorf("API server failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
		log.Errorf("API server forced to shutdown: %v", shutdownErr)
	}

	if mgr.Status().Active {
		mgr.End()
		if _, collectErr := mgr.Collect(ctx); collectErr != nil {
			log.Errorf("Final collect failed: %v", collectErr)
		}
	}
	mgr.Stop()
	log.Println("Shutdown complete.")
	return err
}
