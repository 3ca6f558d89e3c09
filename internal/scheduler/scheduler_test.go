package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/scheduler"
)

// blockingRunner counts runs and optionally blocks until released.
type blockingRunner struct {
	mu      sync.Mutex
	started int
	release chan struct{}
	err     error
}

func (r *blockingRunner) Run(context.Context) (*domain.RunSummary, error) {
	r.mu.Lock()
	r.started++
	release := r.release
	err := r.err
	r.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &domain.RunSummary{RunID: "run-1", State: domain.RunStateCompleted}, nil
}

func (r *blockingRunner) startedRuns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func TestRunOnceExecutesRun(t *testing.T) {
	runner := &blockingRunner{}
	s := scheduler.New(runner, time.Hour, logger.NewNoOp())

	s.RunOnce(context.Background())
	assert.Equal(t, 1, runner.startedRuns())
}

func TestRunOnceSkipsOverlappingTick(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s := scheduler.New(runner, time.Hour, logger.NewNoOp())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunOnce(context.Background())
	}()

	require.Eventually(t, func() bool { return runner.startedRuns() == 1 },
		time.Second, 10*time.Millisecond)

	// A tick while the first run is in flight must be dropped.
	s.RunOnce(context.Background())
	assert.Equal(t, 1, runner.startedRuns())

	close(runner.release)
	wg.Wait()

	s.RunOnce(context.Background())
	assert.Equal(t, 2, runner.startedRuns())
}

func TestRunOnceSwallowsRunErrors(t *testing.T) {
	runner := &blockingRunner{err: assert.AnError}
	s := scheduler.New(runner, time.Hour, logger.NewNoOp())

	// Must not panic or wedge the guard.
	s.RunOnce(context.Background())
	s.RunOnce(context.Background())
	assert.Equal(t, 2, runner.startedRuns())
}

func TestRunOnceHonorsCancelledContext(t *testing.T) {
	runner := &blockingRunner{}
	s := scheduler.New(runner, time.Hour, logger.NewNoOp())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.RunOnce(ctx)
	assert.Zero(t, runner.startedRuns())
}

func TestStartAndStop(t *testing.T) {
	runner := &blockingRunner{}
	s := scheduler.New(runner, time.Hour, logger.NewNoOp())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Stop()
}
