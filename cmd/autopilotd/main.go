package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridkeeper/autopilot/pkg/config"
	"github.com/gridkeeper/autopilot/pkg/engine"
	"github.com/gridkeeper/autopilot/pkg/log"
	"github.com/gridkeeper/autopilot/pkg/metrics"
	"github.com/gridkeeper/autopilot/pkg/storage"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "autopilotd [config]",
	Short:   "Homelab backup autopilot",
	Long:    `autopilotd backs up vm, lxc, docker, systemd, and generic workloads on a schedule driven by an external caller (cron, systemd timer), verifying and retaining each artifact in one run.`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runBackup,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("autopilotd version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().StringSlice("overlay", nil, "Additional config documents merged over the primary config, in order")
	rootCmd.Flags().String("state", "/var/lib/autopilotd/state.db", "Path to the state store database")
	rootCmd.Flags().Bool("dry-run", false, "Resolve and log the backup plan without touching disk or sending artifacts")
	rootCmd.Flags().StringSlice("service", nil, "Back up only these service names instead of every configured service")
	rootCmd.Flags().String("metrics-file", "", "If set, write a Prometheus text-format snapshot of this run's metrics to this path")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runBackup(cmd *cobra.Command, args []string) error {
	configPath := "/etc/autopilotd/config.yaml"
	if len(args) == 1 {
		configPath = args[0]
	}

	overlays, _ := cmd.Flags().GetStringSlice("overlay")
	statePath, _ := cmd.Flags().GetString("state")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	only, _ := cmd.Flags().GetStringSlice("service")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	logger := log.WithComponent("autopilotd")

	model, err := config.Load(configPath, overlays...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	store, err := storage.Open(statePath)
	if err != nil {
		return fmt.Errorf("opening state store %s: %w", statePath, err)
	}
	defer store.Close()

	eng, err := engine.New(model, store, dryRun)
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	ctx := context.Background()

	var results map[string]bool
	if len(only) > 0 {
		results, err = backupNamed(ctx, eng, only)
		if err != nil {
			return err
		}
	} else {
		results = eng.BackupAllServices(ctx)
	}

	succeeded := 0
	for name, ok := range results {
		if ok {
			succeeded++
			logger.Info().Str("service", name).Msg("backup succeeded")
		} else {
			logger.Error().Str("service", name).Msg("backup failed")
		}
	}
	fmt.Printf("%d/%d services backed up successfully\n", succeeded, len(results))

	if metricsFile != "" {
		if err := writeMetricsSnapshot(metricsFile); err != nil {
			logger.Warn().Err(err).Msg("failed to write metrics snapshot")
		}
	}

	if succeeded < len(results) {
		return fmt.Errorf("%d of %d services failed to back up", len(results)-succeeded, len(results))
	}
	return nil
}

// backupNamed runs BackupService for each requested name, converting the
// typed value-error panic BackupService raises for an unknown name into a
// plain error instead of an unhandled crash.
func backupNamed(ctx context.Context, eng *engine.Engine, names []string) (results map[string]bool, err error) {
	results = make(map[string]bool, len(names))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	for _, name := range names {
		results[name] = eng.BackupService(ctx, name)
	}
	return results, nil
}

func writeMetricsSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	families, err := metrics.GatherText()
	if err != nil {
		return err
	}
	_, err = f.Write(families)
	return err
}
