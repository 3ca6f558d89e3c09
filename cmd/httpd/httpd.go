// Package httpd implements the HTTP API server subcommand.
package httpd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/bookwatch/cmd/common"
	"github.com/jonesrussell/bookwatch/internal/api"
)

const shutdownTimeout = 30 * time.Second

// Command returns the httpd command.
func Command() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "httpd",
		Short: "Serve the book and change query API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), cfgFile)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")

	return cmd
}

func runServer(ctx context.Context, cfgFile string) error {
	deps, err := common.Setup(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer deps.Close()

	apiCfg := api.Config{
		Address: deps.Config.Server.Address,
		APIKey:  deps.Config.Server.APIKey,
	}
	router := api.SetupRouter(
		deps.Logger,
		deps.Store.Books(),
		deps.Store.Changes(),
		deps.Crawler,
		apiCfg,
	)
	server := api.NewServer(router, apiCfg, deps.Logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case serveErr := <-errChan:
		return serveErr
	case sig := <-signalChan:
		deps.Logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return <-errChan
}
