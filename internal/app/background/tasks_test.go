package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/memory"
)

type stubSLA struct {
	updates []domain.PriorityUpdate
	err     error
	calls   atomic.Int32
}

func (s *stubSLA) RecalculatePriorities(context.Context, string) ([]domain.PriorityUpdate, error) {
	s.calls.Add(1)
	return s.updates, s.err
}

type stubExpirer struct {
	limit atomic.Int32
	calls atomic.Int32
}

func (s *stubExpirer) ExpireDeals(_ context.Context, limit int) (int, error) {
	s.limit.Store(int32(limit))
	s.calls.Add(1)
	return 1, nil
}

type stubResetter struct{ calls atomic.Int32 }

func (s *stubResetter) ResetDailyVolumes(context.Context) (int64, error) {
	s.calls.Add(1)
	return 0, nil
}

type stubHealth struct{ serving atomic.Bool }

func (s *stubHealth) SetRoutingServing(v bool) { s.serving.Store(v) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecalculate_UpdatesRoutingHealth(t *testing.T) {
	health := &stubHealth{}
	sla := &stubSLA{updates: []domain.PriorityUpdate{{AggregatorID: "A", Priority: 1}}}
	bt := NewBackgroundTasks(sla, &stubExpirer{}, &stubResetter{}, health, nil, quietLogger(), Intervals{})

	require.NoError(t, bt.recalculate(context.Background()))
	assert.True(t, health.serving.Load())

	sla.updates = nil
	require.NoError(t, bt.recalculate(context.Background()))
	assert.False(t, health.serving.Load())

	health.serving.Store(true)
	sla.err = errors.New("db down")
	assert.Error(t, bt.recalculate(context.Background()))
	assert.True(t, health.serving.Load(), "failed run keeps previous state")
}

func TestRunLocked_SkipsWhenLockHeld(t *testing.T) {
	locker := memory.NewLocker()
	bt := NewBackgroundTasks(&stubSLA{}, &stubExpirer{}, &stubResetter{}, nil, locker, quietLogger(), Intervals{})
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "deal-expiry", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ran := 0
	job := func(context.Context) error { ran++; return nil }
	bt.runLocked(ctx, "deal-expiry", time.Minute, job)
	assert.Zero(t, ran)

	unlock()
	bt.runLocked(ctx, "deal-expiry", time.Minute, job)
	assert.Equal(t, 1, ran)

	// lock is released after the job
	bt.runLocked(ctx, "deal-expiry", time.Minute, job)
	assert.Equal(t, 2, ran)
}

func TestRun_TicksUntilCanceled(t *testing.T) {
	expirer := &stubExpirer{}
	resetter := &stubResetter{}
	sla := &stubSLA{}
	bt := NewBackgroundTasks(sla, expirer, resetter, nil, memory.NewLocker(), quietLogger(), Intervals{
		SLA:             0,
		Expiry:          5 * time.Millisecond,
		ExpiryBatchSize: 50,
		VolumeReset:     5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- bt.Run(ctx) }()

	require.Eventually(t, func() bool {
		return expirer.calls.Load() > 0 && resetter.calls.Load() > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, int32(50), expirer.limit.Load())
	assert.Zero(t, sla.calls.Load(), "disabled job never runs")
}
