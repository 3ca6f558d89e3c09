// Package scheduler implements the periodic crawl subcommand.
package scheduler

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/bookwatch/cmd/common"
	"github.com/jonesrussell/bookwatch/internal/scheduler"
)

// Command returns the scheduler command.
func Command() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run crawls periodically until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScheduler(cmd.Context(), cfgFile)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")

	return cmd
}

func runScheduler(ctx context.Context, cfgFile string) error {
	deps, err := common.Setup(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer deps.Close()

	if !deps.Config.Scheduler.Enabled {
		return errors.New("scheduler is disabled; set scheduler.enabled to true")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := scheduler.New(deps.Crawler, deps.Config.Scheduler.Interval, deps.Logger)
	s.Start(runCtx)

	// First run immediately; cron fires only after the first interval.
	go s.RunOnce(runCtx)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	sig := <-signalChan
	deps.Logger.Info("shutdown signal received", "signal", sig.String())

	cancel()
	s.Stop()

	return nil
}
