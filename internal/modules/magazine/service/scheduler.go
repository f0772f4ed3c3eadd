package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
)

// IssueRunner publishes one issue
type IssueRunner interface {
	Run(ctx context.Context) (*domain.Magazine, error)
}

// Scheduler publishes an issue on a fixed interval
type Scheduler struct {
	runner   IssueRunner
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler; a non-positive interval disables it
func NewScheduler(runner IssueRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start runs once immediately, then on every tick until ctx is done or
// Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Scheduled publishing started", "interval", s.interval)
}

// Stop stops the loop and waits for an active run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial run
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	magazine, err := s.runner.Run(ctx)
	switch {
	case err == nil:
		s.logger.Debug("Scheduled run published", "magazine_id", magazine.ID)
	case errors.IsBenign(err):
		s.logger.Debug("Scheduled run found nothing new")
	case errors.Is(err, errors.ErrRunInProgress):
		s.logger.Info("Scheduled run skipped, another run is active")
	case ctx.Err() != nil:
	default:
		s.logger.Error("Scheduled run failed", "error", err)
	}
}
