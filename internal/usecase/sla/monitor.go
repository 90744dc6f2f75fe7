package sla

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/metrics"
)

const (
	// SystemActor записывается как автор автоматического пересчёта
	SystemActor   = "sla-monitor"
	defaultWindow = time.Hour
)

type PriorityWriter interface {
	UpdatePriorities(ctx context.Context, updates []domain.PriorityUpdate, actor string) error
}

type AggregatorSLA struct {
	AggregatorID string
	DisplayName  string
	Priority     int
	Stats        domain.SLAStats
}

func (a AggregatorSLA) HasSamples() bool {
	return a.Stats.TotalCalls > 0
}

type Monitor struct {
	Aggregators domain.AggregatorRepository
	Logs        domain.IntegrationLogRepository
	Priorities  PriorityWriter
	Metrics     *metrics.AggregatorMetrics
	Logger      *slog.Logger

	window time.Duration
	now    func() time.Time
}

func NewMonitor(
	aggregators domain.AggregatorRepository,
	logs domain.IntegrationLogRepository,
	priorities PriorityWriter,
	aggregatorMetrics *metrics.AggregatorMetrics,
	logger *slog.Logger,
	window time.Duration,
) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Monitor{
		Aggregators: aggregators,
		Logs:        logs,
		Priorities:  priorities,
		Metrics:     aggregatorMetrics,
		Logger:      logger,
		window:      window,
		now:         time.Now,
	}
}

// CollectStats returns deal_create metrics of every active aggregator over the window ending now.
// Aggregators without calls in the window are present with zero stats.
func (m *Monitor) CollectStats(ctx context.Context, window time.Duration) ([]AggregatorSLA, error) {
	if window <= 0 {
		window = m.window
	}

	aggregators, err := m.Aggregators.ListActiveAggregators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active aggregators: %w", err)
	}
	stats, err := m.Logs.AggregateSLA(ctx, domain.LogDirectionOut, domain.EventTypeDealCreate, m.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("aggregate sla: %w", err)
	}

	byID := make(map[string]domain.SLAStats, len(stats))
	for _, s := range stats {
		byID[s.AggregatorID] = s
	}

	result := make([]AggregatorSLA, 0, len(aggregators))
	for _, a := range aggregators {
		s, ok := byID[a.ID]
		if !ok {
			s = domain.SLAStats{AggregatorID: a.ID}
		}
		result = append(result, AggregatorSLA{
			AggregatorID: a.ID,
			DisplayName:  a.DisplayName,
			Priority:     a.Priority,
			Stats:        s,
		})
		m.Metrics.RecordSLA(a.ID, s.SuccessRate(), s.AvgResponseTimeMs, s.SLAViolationRate())
	}
	return result, nil
}

// Rank orders aggregators by successRate desc, avgResponseTimeMs asc, slaViolationRate asc.
// Aggregators without samples go last in their current priority order.
func Rank(items []AggregatorSLA) []AggregatorSLA {
	ranked := append([]AggregatorSLA(nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.HasSamples() != b.HasSamples() {
			return a.HasSamples()
		}
		if a.HasSamples() {
			if sa, sb := a.Stats.SuccessRate(), b.Stats.SuccessRate(); sa != sb {
				return sa > sb
			}
			if a.Stats.AvgResponseTimeMs != b.Stats.AvgResponseTimeMs {
				return a.Stats.AvgResponseTimeMs < b.Stats.AvgResponseTimeMs
			}
			if va, vb := a.Stats.SLAViolationRate(), b.Stats.SLAViolationRate(); va != vb {
				return va < vb
			}
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.AggregatorID < b.AggregatorID
	})
	return ranked
}

// RecalculatePriorities re-ranks active aggregators and writes priorities 1..n in one batch.
// Nothing is written when the order already matches.
func (m *Monitor) RecalculatePriorities(ctx context.Context, actor string) ([]domain.PriorityUpdate, error) {
	if actor == "" {
		actor = SystemActor
	}

	stats, err := m.CollectStats(ctx, m.window)
	if err != nil {
		m.Metrics.RecordRecalculation(false)
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}

	ranked := Rank(stats)
	updates := make([]domain.PriorityUpdate, len(ranked))
	changed := false
	for i, a := range ranked {
		updates[i] = domain.PriorityUpdate{AggregatorID: a.AggregatorID, Priority: i + 1}
		if a.Priority != i+1 {
			changed = true
		}
	}
	if !changed {
		m.Logger.Debug("aggregator priorities unchanged", "aggregators", len(updates))
		return updates, nil
	}

	if err := m.Priorities.UpdatePriorities(ctx, updates, actor); err != nil {
		m.Metrics.RecordRecalculation(false)
		return nil, fmt.Errorf("write priorities: %w", err)
	}

	m.Metrics.RecordRecalculation(true)
	m.Logger.Info("aggregator priorities recalculated", "actor", actor, "aggregators", len(updates))
	return updates, nil
}
