package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (c *countingRunner) Run(context.Context) (*domain.Magazine, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &domain.Magazine{ID: "mag"}, nil
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 10*time.Millisecond, nil)

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	stopped := runner.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, runner.calls.Load(), "no runs after Stop")
}

func TestScheduler_KeepsRunningAfterBenignResults(t *testing.T) {
	runner := &countingRunner{err: errors.ErrNoMagazine}
	s := NewScheduler(runner, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Stop()
}

func TestScheduler_DisabledWithoutInterval(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 0, nil)

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	assert.Zero(t, runner.calls.Load())
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour, nil)

	s.Start(context.Background())
	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), runner.calls.Load())
}
