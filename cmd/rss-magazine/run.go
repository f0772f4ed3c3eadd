package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/reshetovitsme/rss-magazine/internal/di"
	magazineService "github.com/reshetovitsme/rss-magazine/internal/modules/magazine/service"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Publish one issue and exit",
	Long: `Publish one issue from the feeds in the settings file.

Prints 1 when a magazine was written. When no feed has new entries nothing
is written, the settings file is left untouched and the command exits 0.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	injector, err := di.Setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := di.Shutdown(context.Background(), injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	publisher, err := do.Invoke[*magazineService.Publisher](injector)
	if err != nil {
		return err
	}

	magazine, err := publisher.Run(ctx)
	if errors.IsBenign(err) {
		slog.Info("Nothing to publish")
		return nil
	}
	if err != nil {
		return err
	}

	slog.Debug("Run finished", "magazine_id", magazine.ID, "content_dir", cfg.ContentDir)
	fmt.Fprintln(cmd.OutOrStdout(), "1")
	return nil
}
