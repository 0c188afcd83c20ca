package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/probe"
	"Go2ResSpectra/internal/probe/persistent"
	"Go2ResSpectra/internal/resources"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath string
	logLevel   string
	file       string
	interval   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "rs-probe",
	Short:        "Publishes or prints resource snapshots",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(lvl)
		return nil
	},
}

var pubCmd = &cobra.Command{
	Use:   "pub",
	Short: "Replay a recorded snapshot file onto the bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		return runPublisher(cfg.Transport)
	},
}

var subCmd = &cobra.Command{
	Use:   "sub",
	Short: "Subscribe to the bus and print decoded snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		return runSubscriber(cfg.Transport)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to the configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level. One of debug, info, warn, error, fatal, panic.")

	pubCmd.Flags().StringVar(&file, "file", "", "Gob recording written by the engine recorder.")
	pubCmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "Delay between published snapshots.")
	_ = pubCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(pubCmd, subCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// runPublisher replays every snapshot of the recording, restamped with the current time.
func runPublisher(cfg config.TransportConfig) error {
	snaps, err := persistent.ReadRecording(file)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d snapshots from %s", len(snaps), file)

	pub, err := probe.NewSnapshotPublisher(cfg)
	if err != nil {
		return err
	}
	defer pub.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i, snap := range snaps {
		select {
		case <-sigChan:
			log.Printf("Interrupted after %d snapshots.", i)
			return nil
		case <-ticker.C:
		}
		snap.Stamp = time.Now()
		if err := pub.Publish(snap); err != nil {
			return fmt.Errorf("failed to publish snapshot %d: %w", i, err)
		}
	}
	log.Printf("Published %d snapshots.", len(snaps))
	return nil
}

// runSubscriber prints every decoded snapshot as YAML until interrupted.
func runSubscriber(cfg config.TransportConfig) error {
	src, err := probe.NewSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	src.OnDecodeError(func(err error) {
		log.Warnf("Dropped undecodable message: %v", err)
	})
	err = src.Start(func(snap *resources.Snapshot) error {
		out, err := yaml.Marshal(snap)
		if err != nil {
			return err
		}
		fmt.Printf("--- %s\n%s", snap.Stamp.Format(time.RFC3339Nano), out)
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Subscribed via %s. Press Ctrl+C to exit.", cfg.Type)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down subscriber...")
	return nil
}
