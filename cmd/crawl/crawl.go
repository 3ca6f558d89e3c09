// Package crawl implements the one-shot crawl subcommand.
package crawl

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/bookwatch/cmd/common"
	"github.com/jonesrussell/bookwatch/internal/config"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	var (
		cfgFile string
		resume  bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl and report detected changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runCrawl(ctx, cfgFile, resume)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the persisted checkpoint")

	return cmd
}

func runCrawl(ctx context.Context, cfgFile string, resume bool) error {
	deps, err := common.Setup(ctx, cfgFile, func(cfg *config.Config) {
		if resume {
			cfg.Crawler.Resume = true
		}
	})
	if err != nil {
		return err
	}
	defer deps.Close()

	summary, runErr := deps.Crawler.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("crawl run %s failed: %w", summary.RunID, runErr)
	}

	return nil
}
