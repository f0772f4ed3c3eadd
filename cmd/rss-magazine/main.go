package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/reshetovitsme/rss-magazine/internal/shared/config"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rss-magazine",
	Short: "Turn RSS and Atom feeds into an offline magazine",
	Long: `rss-magazine fetches every feed listed in the settings file, keeps the
entries published since the last run and renders them as a Kindle-style
periodical with normalized grayscale images.

Example usage:
  rss-magazine run                  # publish one issue and exit
  rss-magazine serve                # serve the issue and a POST /run trigger
  rss-magazine run --config my.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: first of config.yaml, config.yml, config.json, config.toml)")
	rootCmd.AddCommand(runCmd, serveCmd)
}

// setup loads configuration and installs the default logger
func setup() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.AppEnv == config.AppEnvLocal || cfg.AppEnv == config.AppEnvDevelopment {
		level = slog.LevelDebug
	}

	// Setup structured logging with multiple handlers using slog-multi
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})
	slog.SetDefault(slog.New(slogmulti.Fanout(textHandler, jsonHandler)))

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
