package di

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	articleService "github.com/reshetovitsme/rss-magazine/internal/modules/article/service"
	feedRepo "github.com/reshetovitsme/rss-magazine/internal/modules/feed/repository"
	feedService "github.com/reshetovitsme/rss-magazine/internal/modules/feed/service"
	fetchDomain "github.com/reshetovitsme/rss-magazine/internal/modules/fetch/domain"
	fetchService "github.com/reshetovitsme/rss-magazine/internal/modules/fetch/service"
	imageRepo "github.com/reshetovitsme/rss-magazine/internal/modules/image/repository"
	imageService "github.com/reshetovitsme/rss-magazine/internal/modules/image/service"
	magazineRepo "github.com/reshetovitsme/rss-magazine/internal/modules/magazine/repository"
	magazineService "github.com/reshetovitsme/rss-magazine/internal/modules/magazine/service"
	"github.com/reshetovitsme/rss-magazine/internal/shared/config"
	httpServer "github.com/reshetovitsme/rss-magazine/internal/transport/http"
	"github.com/reshetovitsme/rss-magazine/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Service names for dependencies registered more than once by type
const (
	ServiceFeedFetcher  = "feed-fetcher"
	ServiceImageFetcher = "image-fetcher"
)

// Setup initializes the dependency injection container for cfg
func Setup(cfg *config.Config) (do.Injector, error) {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	// Register shared HTTP client
	do.Provide(injector, func(i do.Injector) (*http.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return &http.Client{Timeout: cfg.HTTPTimeoutDuration()}, nil
	})

	// Register per-host rate limiter, nil when disabled
	do.Provide(injector, func(i do.Injector) (*fetchService.HostRateLimiter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.HostRateInterval() <= 0 {
			return nil, nil
		}
		return fetchService.NewHostRateLimiter(cfg.HostRateInterval()), nil
	})

	// Register Fetchers
	for name, target := range map[string]string{ServiceFeedFetcher: "feed", ServiceImageFetcher: "image"} {
		do.ProvideNamed(injector, name, func(i do.Injector) (*fetchService.HTTPFetcher, error) {
			cfg := do.MustInvoke[*config.Config](i)
			fetcher, err := fetchService.New(fetchService.Options{
				Target: target,
				Policy: fetchDomain.RetryPolicy{
					MaxAttempts: cfg.RetryAttempts,
					MinDelay:    cfg.RetryMinDelay(),
					MaxDelay:    cfg.RetryMaxDelay(),
				},
				Client:  do.MustInvoke[*http.Client](i),
				Limiter: do.MustInvoke[*fetchService.HostRateLimiter](i),
				Logger:  slog.Default().With("target", target),
			})
			if err != nil {
				return nil, oops.With("target", target, "context", "failed to create fetcher").Wrap(err)
			}
			return fetcher, nil
		})
	}

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		fetcher := do.MustInvokeNamed[*fetchService.HTTPFetcher](i, ServiceFeedFetcher)
		return feedService.New(fetcher, slog.Default()), nil
	})

	// Register Sanitizer
	do.Provide(injector, func(i do.Injector) (*articleService.Sanitizer, error) {
		return articleService.NewSanitizer(), nil
	})

	// Register Image Pipeline
	do.Provide(injector, func(i do.Injector) (*imageService.Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		fetcher := do.MustInvokeNamed[*fetchService.HTTPFetcher](i, ServiceImageFetcher)
		normalizer := imageService.NewNormalizer(cfg.ImageMaxWidth, cfg.ImageMaxHeight, cfg.ImageQuality)
		return imageService.NewPipeline(fetcher, normalizer, cfg.ImageConcurrency, slog.Default()), nil
	})

	// Register Assembler
	do.Provide(injector, func(i do.Injector) (*magazineService.Assembler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return magazineService.NewAssembler(
			do.MustInvoke[*feedService.Service](i),
			do.MustInvoke[*articleService.Sanitizer](i),
			do.MustInvoke[*imageService.Pipeline](i),
			magazineService.AssemblerOptions{
				FeedConcurrency:    cfg.FeedConcurrency,
				ArticleConcurrency: cfg.ArticleConcurrency,
			},
			slog.Default(),
		), nil
	})

	// Register Settings Repository
	do.Provide(injector, func(i do.Injector) (feedRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return feedRepo.NewFileStorage(cfg.SettingsPath), nil
	})

	// Register Image Repository
	do.Provide(injector, func(i do.Injector) (imageRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := imageRepo.NewFileStorage(cfg.ContentDir)
		if err != nil {
			return nil, oops.With("content_dir", cfg.ContentDir, "context", "failed to initialize image repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Renderer
	do.Provide(injector, func(i do.Injector) (magazineService.Renderer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var templates fs.FS
		if cfg.TemplatesDir != "" {
			templates = os.DirFS(cfg.TemplatesDir)
		}
		renderer, err := magazineRepo.NewTemplateRenderer(cfg.ContentDir, templates, cfg.ArticleConcurrency)
		if err != nil {
			return nil, oops.With("templates_dir", cfg.TemplatesDir, "context", "failed to initialize renderer").Wrap(err)
		}
		return renderer, nil
	})

	// Register Notifier
	do.Provide(injector, func(i do.Injector) (magazineService.Notifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.NotificationsEnabled() {
			return telegram.NopNotifier{}, nil
		}
		notifier, err := telegram.New(cfg, slog.Default())
		if err != nil {
			return nil, err
		}
		return notifier, nil
	})

	// Register Publisher
	do.Provide(injector, func(i do.Injector) (*magazineService.Publisher, error) {
		return magazineService.NewPublisher(
			do.MustInvoke[feedRepo.Repository](i),
			do.MustInvoke[*magazineService.Assembler](i),
			do.MustInvoke[imageRepo.Repository](i),
			do.MustInvoke[magazineService.Renderer](i),
			do.MustInvoke[magazineService.Notifier](i),
			slog.Default(),
		), nil
	})

	// Register Scheduler
	do.Provide(injector, func(i do.Injector) (*magazineService.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		publisher := do.MustInvoke[*magazineService.Publisher](i)
		return magazineService.NewScheduler(publisher, cfg.PublishIntervalDuration(), slog.Default()), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		publisher := do.MustInvoke[*magazineService.Publisher](i)
		server := httpServer.New(cfg, publisher)
		server.SetLogger(slog.Default())
		return server, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(ctx context.Context, injector do.Injector) error {
	// Stop scheduled publishing before the server goes away
	if scheduler, err := do.Invoke[*magazineService.Scheduler](injector); err == nil && scheduler != nil {
		scheduler.Stop()
	}

	// Shutdown HTTP server if it was started
	if server, err := do.Invoke[*httpServer.Server](injector); err == nil && server != nil {
		if err := server.Shutdown(ctx); err != nil {
			return oops.With("context", "failed to shut down http server").Wrap(err)
		}
	}
	return nil
}
