package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhango/pricesync/internal/api"
	"github.com/jhango/pricesync/internal/api/handlers"
	"github.com/jhango/pricesync/internal/updater"
)

var apiPort string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the admin API server",
	Long: `Starts the HTTP server exposing run history and manual triggers.

Endpoints:
  GET  /health           - Health check
  GET  /api/runs         - Recent runs
  GET  /api/runs/latest  - Latest run with outcomes
  GET  /api/runs/{id}    - One run with outcomes
  POST /api/runs         - Trigger a run

Example:
  go run ./cmd/pricesync api --port 8080`,
	RunE: runAPIServer,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := initDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	runner := func(r *http.Request, params updater.Params) (*updater.RunReport, error) {
		runReport, err := d.orchestrator.Run(r.Context(), params)
		if err != nil {
			return nil, err
		}
		d.finishRun(r.Context(), runReport)
		return runReport, nil
	}

	runsHandler := handlers.NewRunsHandler(d.repository, runner, d.log)
	server := api.New(d.cfg, d.log, api.NewRouter(runsHandler, d.log))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
