package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"modecalib/internal/app"
	"modecalib/internal/schedule"
	"modecalib/internal/storage"

	"github.com/spf13/cobra"
)

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate [table]",
		Short: "Run one threshold search and write the inferred modes back",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}

			// The first interrupt ends the search early and the best result
			// is still written back. stop() restores default handling, so a
			// second interrupt during write-back kills the process.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := app.Run(ctx, cfg, app.NewNotifier(cfg))
			stop()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Found {
				fmt.Fprintf(out, "No thresholds found (%s after %d iterations)\n", res.StopReason, res.Iterations)
				return nil
			}
			fmt.Fprintf(out, "Best thresholds: (%.2f, %.2f, %.2f) with error rate: %.4f\n",
				res.Thresholds.StillWalk, res.Thresholds.WalkBike, res.Thresholds.BikeCar, res.ErrorRate)
			return nil
		},
	}
	addSearchFlags(cmd)
	return cmd
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule [table]",
		Short: "Recalibrate on the configured cron schedule until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			expr := strings.TrimSpace(cfg.Schedule)
			if expr == "" {
				return errors.New("schedule is not set (via config.yaml or CALIBRATION_SCHEDULE)")
			}
			sched, err := schedule.Parse(expr)
			if err != nil {
				return fmt.Errorf("invalid schedule '%s': %w", expr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			notifier := app.NewNotifier(cfg)
			log.Printf("Calibration of %s scheduled (cron: %s)", cfg.Table, expr)
			schedule.Run(ctx, sched, cfg.Location, func(ctx context.Context) error {
				res, err := app.Run(ctx, cfg, notifier)
				if err != nil {
					return err
				}
				log.Printf("Scheduled calibration done: run=%s found=%t error=%.4f stop=%s", res.RunID, res.Found, res.ErrorRate, res.StopReason)
				return nil
			})
			return nil
		},
	}
	addSearchFlags(cmd)
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [table]",
		Short: "Print the last saved thresholds for a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			store, err := storage.Open(cmd.Context(), cfg.DBDriver, cfg.DSN())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			res, err := store.LatestResult(cmd.Context(), cfg.Table)
			if err != nil {
				return fmt.Errorf("query result: %w", err)
			}
			out := cmd.OutOrStdout()
			if res == nil {
				fmt.Fprintf(out, "No calibration saved for %s.\n", cfg.Table)
				return nil
			}
			fmt.Fprintf(out, "Table:       %s\n", res.Table)
			fmt.Fprintf(out, "Run:         %s\n", res.RunID)
			fmt.Fprintf(out, "Finished:    %s\n", res.FinishedAt.In(cfg.Location).Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Thresholds:  still <= %.2f < walk <= %.2f < bike <= %.2f < car\n",
				res.Thresholds.StillWalk, res.Thresholds.WalkBike, res.Thresholds.BikeCar)
			fmt.Fprintf(out, "Error rate:  %.4f over %d rows\n", res.ErrorRate, res.Records)
			fmt.Fprintf(out, "Stopped by:  %s after %d iterations\n", res.StopReason, res.Iterations)
			return nil
		},
	}
	addDBFlags(cmd)
	return cmd
}

// version is set via -ldflags at build time.
var version = "(devel)"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "modecalib", version)
		},
	}
}
