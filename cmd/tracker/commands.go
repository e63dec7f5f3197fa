package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/app"
	"brick-tracker/internal/history"
	"brick-tracker/internal/metrics"
	"brick-tracker/internal/monitor"
	"brick-tracker/internal/report"
	"brick-tracker/internal/snapshot"
)

func bootstrap(ctx context.Context) (*app.App, error) {
	return app.Bootstrap(ctx, cfg, log.Logger)
}

// loadSnapshots reads explicit files when given, otherwise the configured store.
func loadSnapshots(ctx context.Context, a *app.App, files []string, limit int) ([]snapshot.Snapshot, error) {
	if len(files) > 0 {
		snaps, err := snapshot.LoadFiles(ctx, files, log.Logger)
		if err != nil {
			return nil, err
		}
		return snapshot.Ordered(snaps, limit), nil
	}
	return a.Reader.Load(ctx, limit)
}

func writeWorkbook(path string, res alerts.Result, histories []*history.ItemHistory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.WriteWorkbook(f, res, histories); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newCompareCmd() *cobra.Command {
	var (
		series    bool
		roiTarget float64
		xlsxPath  string
	)
	cmd := &cobra.Command{
		Use:   "compare [snapshot.json...]",
		Short: "Compare the latest adjacent snapshots (or every adjacent pair with --series)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			detector := a.Detector
			if cmd.Flags().Changed("roi-target") {
				if roiTarget <= 0 {
					return fmt.Errorf("--roi-target must be positive")
				}
				detector = alerts.NewDetector(alerts.Config{ROITarget: roiTarget})
			}

			limit := 2
			if series || xlsxPath != "" {
				limit = 0
			}
			snaps, err := loadSnapshots(ctx, a, args, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if series {
				results, status := detector.Series(snaps)
				if status == alerts.StatusInsufficientData {
					fmt.Fprint(out, report.InsufficientData(len(snaps)))
				} else {
					fmt.Fprint(out, report.Series(results))
				}
			} else {
				fmt.Fprint(out, report.Alerts(detector.Latest(snaps)))
			}

			if xlsxPath != "" {
				if err := writeWorkbook(xlsxPath, detector.Latest(snaps), history.BuildAll(snaps)); err != nil {
					return err
				}
				log.Info().Str("path", xlsxPath).Msg("Workbook written")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&series, "series", false, "compare every adjacent pair, oldest first")
	cmd.Flags().Float64Var(&roiTarget, "roi-target", alerts.DefaultROITarget, "ROI line in percent")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write an xlsx workbook to this path")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <item-id> [snapshot.json...]",
		Short: "Show one item's price and availability history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			snaps, err := loadSnapshots(ctx, a, args[1:], 0)
			if err != nil {
				return err
			}
			h, status := history.Build(args[0], snaps)
			if status == history.StatusNotObserved {
				return fmt.Errorf("item %s not observed in %d snapshot(s)", args[0], len(snaps))
			}
			fmt.Fprint(cmd.OutOrStdout(), report.History(h))
			return nil
		},
	}
}

func newApproachingCmd() *cobra.Command {
	var (
		horizonDays int
		asOf        string
	)
	cmd := &cobra.Command{
		Use:   "approaching [snapshot.json...]",
		Short: "List unretired items whose estimated retirement is near or overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			policy := a.Policy
			if cmd.Flags().Changed("horizon-days") {
				if horizonDays <= 0 {
					return fmt.Errorf("--horizon-days must be positive")
				}
				policy = metrics.ApproachingPolicy{Horizon: time.Duration(horizonDays) * 24 * time.Hour}
			}
			now := time.Now().UTC()
			if asOf != "" {
				if now, err = time.Parse("2006-01-02", asOf); err != nil {
					return fmt.Errorf("invalid --as-of %q: %w", asOf, err)
				}
			}

			snaps, err := loadSnapshots(ctx, a, args, 1)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprint(cmd.OutOrStdout(), report.InsufficientData(0))
				return nil
			}
			items := metrics.Approaching(snaps[len(snaps)-1], policy, now)
			fmt.Fprint(cmd.OutOrStdout(), report.Approaching(items, now))
			return nil
		},
	}
	cmd.Flags().IntVar(&horizonDays, "horizon-days", 180, "how far ahead an estimated retirement counts as approaching")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate as of this date (YYYY-MM-DD) instead of today")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [snapshot.json...]",
		Short: "Write the latest alerts and every item history to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			snaps, err := loadSnapshots(ctx, a, args, 0)
			if err != nil {
				return err
			}
			if err := writeWorkbook(out, a.Detector.Latest(snaps), history.BuildAll(snaps)); err != nil {
				return err
			}
			log.Info().Str("path", out).Int("snapshots", len(snaps)).Msg("Workbook written")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "brick-tracker.xlsx", "output path")
	return cmd
}

func newMonitorCmd() *cobra.Command {
	var (
		once     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Compare the newest snapshots periodically and deliver new alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			every := cfg.MonitorInterval
			if cmd.Flags().Changed("interval") {
				if interval < time.Minute {
					return fmt.Errorf("--interval must be at least 1m")
				}
				every = interval
			}

			m := monitor.New(monitor.Options{
				Reader:   a.Reader,
				Detector: a.Detector,
				Ledger:   a.Ledger,
				Notifier: a.Notifier,
				Logger:   log.Logger,
				Interval: every,
			})
			if once {
				cycle, err := m.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s, %d detected, %d delivered\n",
					cycle.RunID, cycle.Status, cycle.Detected, cycle.Delivered)
				return nil
			}
			m.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Minute, "time between cycles")
	return cmd
}
