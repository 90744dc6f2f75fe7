package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

type PriorityRecalculator interface {
	RecalculatePriorities(ctx context.Context, actor string) ([]domain.PriorityUpdate, error)
}

type DealExpirer interface {
	ExpireDeals(ctx context.Context, limit int) (int, error)
}

type VolumeResetter interface {
	ResetDailyVolumes(ctx context.Context) (int64, error)
}

type RoutingHealth interface {
	SetRoutingServing(serving bool)
}

type Intervals struct {
	SLA             time.Duration
	Expiry          time.Duration
	ExpiryBatchSize int
	VolumeReset     time.Duration
}

type BackgroundTasks struct {
	SLA     PriorityRecalculator
	Deals   DealExpirer
	Volumes VolumeResetter
	Health  RoutingHealth
	Locker  domain.JobLocker
	Logger  *slog.Logger

	intervals Intervals
}

func NewBackgroundTasks(
	sla PriorityRecalculator,
	deals DealExpirer,
	volumes VolumeResetter,
	health RoutingHealth,
	locker domain.JobLocker,
	logger *slog.Logger,
	intervals Intervals,
) *BackgroundTasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundTasks{
		SLA:       sla,
		Deals:     deals,
		Volumes:   volumes,
		Health:    health,
		Locker:    locker,
		Logger:    logger,
		intervals: intervals,
	}
}

// Run blocks until ctx is done
func (bt *BackgroundTasks) Run(ctx context.Context) error {
	done := make(chan struct{}, 3)
	start := func(name string, every time.Duration, job func(context.Context) error) {
		go func() {
			bt.loop(ctx, name, every, job)
			done <- struct{}{}
		}()
	}
	start("sla-recalculation", bt.intervals.SLA, bt.recalculate)
	start("deal-expiry", bt.intervals.Expiry, bt.expire)
	start("daily-volume-reset", bt.intervals.VolumeReset, bt.resetVolumes)

	for i := 0; i < 3; i++ {
		<-done
	}
	return nil
}

func (bt *BackgroundTasks) loop(ctx context.Context, name string, every time.Duration, job func(context.Context) error) {
	if every <= 0 {
		bt.Logger.Info("background job disabled", "job", name)
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.runLocked(ctx, name, every, job)
		}
	}
}

// runLocked runs job only on the replica that holds the job lock
func (bt *BackgroundTasks) runLocked(ctx context.Context, name string, ttl time.Duration, job func(context.Context) error) {
	if bt.Locker != nil {
		unlock, ok, err := bt.Locker.TryLock(ctx, name, ttl)
		if err != nil {
			bt.Logger.Error("failed to acquire job lock", "job", name, "error", err)
			return
		}
		if !ok {
			bt.Logger.Debug("job is held by another replica", "job", name)
			return
		}
		defer unlock()
	}

	if err := job(ctx); err != nil {
		bt.Logger.Error("background job failed", "job", name, "error", err)
	}
}

func (bt *BackgroundTasks) recalculate(ctx context.Context) error {
	updates, err := bt.SLA.RecalculatePriorities(ctx, "")
	if err != nil {
		return err
	}
	if bt.Health != nil {
		bt.Health.SetRoutingServing(len(updates) > 0)
	}
	return nil
}

func (bt *BackgroundTasks) expire(ctx context.Context) error {
	n, err := bt.Deals.ExpireDeals(ctx, bt.intervals.ExpiryBatchSize)
	if err != nil {
		return err
	}
	if n > 0 {
		bt.Logger.Info("expired deals", "count", n)
	}
	return nil
}

func (bt *BackgroundTasks) resetVolumes(ctx context.Context) error {
	n, err := bt.Volumes.ResetDailyVolumes(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		bt.Logger.Info("daily volumes reset", "aggregators", n)
	}
	return nil
}
