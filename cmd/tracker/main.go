package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"brick-tracker/internal/config"
	"brick-tracker/internal/logger"
)

type globalFlags struct {
	configPath string
	logLevel   string
	source     string
	dir        string
}

var (
	flags globalFlags
	cfg   *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("tracker failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Compare item snapshots and report retirement, price and ROI alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			c, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			pf := cmd.Flags()
			if pf.Changed("log-level") {
				c.LogLevel = flags.logLevel
			}
			if pf.Changed("source") {
				c.SnapshotSource = flags.source
			}
			if pf.Changed("dir") {
				c.SnapshotDir = flags.dir
			}
			if err := c.Validate(); err != nil {
				return err
			}
			logger.Setup(c.LogLevel, c.Pretty())
			cfg = c
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file (overrides TRACKER_CONFIG)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.source, "source", config.SourceDir, "snapshot source (dir or db)")
	pf.StringVar(&flags.dir, "dir", "./data/snapshots", "snapshot directory for the dir source")

	root.AddCommand(
		newCompareCmd(),
		newHistoryCmd(),
		newApproachingCmd(),
		newExportCmd(),
		newMonitorCmd(),
	)
	return root
}
