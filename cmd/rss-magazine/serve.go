package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reshetovitsme/rss-magazine/internal/di"
	magazineService "github.com/reshetovitsme/rss-magazine/internal/modules/magazine/service"
	httpServer "github.com/reshetovitsme/rss-magazine/internal/transport/http"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the current issue, metrics and a publish trigger",
	Long: `Start the HTTP server.

Endpoints:
  GET  /health      liveness check
  GET  /metrics     Prometheus metrics
  GET  /content/    the rendered issue
  POST /run         publish one issue

With publish_interval set (seconds), an issue is also published right away
and then on every interval.`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	injector, err := di.Setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := di.Shutdown(ctx, injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	server, err := do.Invoke[*httpServer.Server](injector)
	if err != nil {
		return err
	}

	scheduler, err := do.Invoke[*magazineService.Scheduler](injector)
	if err != nil {
		return err
	}

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Start scheduled publishing, a no-op unless publish_interval is set
	scheduler.Start(ctx)

	slog.Info("Application started", "port", cfg.HTTPPort, "publish_interval", cfg.PublishIntervalDuration())
	slog.Info("Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down...")
		return nil
	}
}
