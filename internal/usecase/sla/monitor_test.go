package sla

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/aggregator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func stats(id string, priority int, total, ok, violations int64, avgMs float64) AggregatorSLA {
	return AggregatorSLA{
		AggregatorID: id,
		Priority:     priority,
		Stats: domain.SLAStats{
			AggregatorID:      id,
			TotalCalls:        total,
			SuccessfulCalls:   ok,
			Violations:        violations,
			AvgResponseTimeMs: avgMs,
		},
	}
}

func TestRank_CompositeOrder(t *testing.T) {
	ranked := Rank([]AggregatorSLA{
		stats("A", 2, 10, 9, 1, 500),
		stats("B", 3, 10, 9, 1, 300),
		stats("C", 4, 10, 10, 0, 900),
		stats("D", 1, 0, 0, 0, 0),
		stats("E", 5, 10, 9, 4, 300),
		stats("F", 6, 0, 0, 0, 0),
	})

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.AggregatorID
	}
	assert.Equal(t, []string{"C", "B", "E", "A", "D", "F"}, ids)
}

type fixture struct {
	aggregators *memory.AggregatorRepository
	logs        *memory.IntegrationLogRepository
	monitor     *Monitor
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()

	f := &fixture{
		aggregators: memory.NewAggregatorRepository(),
		logs:        memory.NewIntegrationLogRepository(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := aggregator.NewService(f.aggregators, memory.NewAggregatorMerchantRepository(), nil, logger)
	f.monitor = NewMonitor(f.aggregators, f.logs, service, nil, logger, time.Hour)
	f.monitor.now = func() time.Time { return fixedNow }

	for i, id := range ids {
		require.NoError(t, f.aggregators.CreateAggregator(context.Background(), &domain.Aggregator{
			ID: id, Priority: i + 1, IsActive: true, BalanceUsdt: 100, MaxSlaMs: 2000,
		}))
	}
	return f
}

func (f *fixture) log(t *testing.T, aggregatorID string, age time.Duration, statusCode int, responseMs int64, violation bool) {
	t.Helper()

	require.NoError(t, f.logs.AppendLog(context.Background(), &domain.IntegrationLogEntry{
		AggregatorID:   aggregatorID,
		Direction:      domain.LogDirectionOut,
		EventType:      domain.EventTypeDealCreate,
		StatusCode:     statusCode,
		ResponseTimeMs: responseMs,
		SlaViolation:   violation,
		RequestedAt:    fixedNow.Add(-age),
	}))
}

func TestCollectStats(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.log(t, "A", time.Minute, 200, 100, false)
	f.log(t, "A", 2*time.Minute, 200, 300, true)
	f.log(t, "A", 3*time.Minute, 0, 2000, true)
	f.log(t, "A", 3*time.Hour, 200, 50, false)
	// inbound entries are not part of the deal_create window
	require.NoError(t, f.logs.AppendLog(context.Background(), &domain.IntegrationLogEntry{
		AggregatorID: "A", Direction: domain.LogDirectionIn, EventType: domain.EventTypeCallback, StatusCode: 500, RequestedAt: fixedNow,
	}))

	result, err := f.monitor.CollectStats(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, result, 2)
	a := result[0]
	assert.Equal(t, "A", a.AggregatorID)
	assert.Equal(t, int64(3), a.Stats.TotalCalls)
	assert.InDelta(t, 1.0/3.0, a.Stats.SuccessRate(), 1e-9, "2xx with slaViolation is not a success")
	assert.InDelta(t, 800.0, a.Stats.AvgResponseTimeMs, 1e-9)
	assert.InDelta(t, 2.0/3.0, a.Stats.SLAViolationRate(), 1e-9)
	assert.False(t, result[1].HasSamples())
}

func TestRank_DecliningAggregatorGoesBelowAccepting(t *testing.T) {
	f := newFixture(t, "decliner", "acceptor")
	for i := 0; i < 10; i++ {
		// быстрый 200 с accepted=false
		f.log(t, "decliner", time.Minute, 200, 50, true)
	}
	for i := 0; i < 9; i++ {
		f.log(t, "acceptor", time.Minute, 200, 300, false)
	}
	f.log(t, "acceptor", time.Minute, 200, 300, true)

	collected, err := f.monitor.CollectStats(context.Background(), 0)
	require.NoError(t, err)
	ranked := Rank(collected)

	require.Len(t, ranked, 2)
	assert.Equal(t, "acceptor", ranked[0].AggregatorID)
	assert.InDelta(t, 0.9, ranked[0].Stats.SuccessRate(), 1e-9)
	assert.Zero(t, ranked[1].Stats.SuccessRate())
}

func TestRecalculatePriorities_WritesNewOrder(t *testing.T) {
	f := newFixture(t, "slow", "fast", "idle")
	ctx := context.Background()
	f.log(t, "slow", time.Minute, 200, 1800, false)
	f.log(t, "slow", time.Minute, 0, 2000, true)
	f.log(t, "fast", time.Minute, 200, 200, false)
	f.log(t, "fast", time.Minute, 200, 300, false)

	updates, err := f.monitor.RecalculatePriorities(ctx, "")

	require.NoError(t, err)
	assert.Equal(t, []domain.PriorityUpdate{
		{AggregatorID: "fast", Priority: 1},
		{AggregatorID: "slow", Priority: 2},
		{AggregatorID: "idle", Priority: 3},
	}, updates)

	active, err := f.aggregators.ListActiveAggregators(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "fast", active[0].ID)
	assert.Equal(t, SystemActor, active[0].PriorityChangedBy)
	require.NotNil(t, active[0].PriorityChangedAt)

	seen := map[int]bool{}
	for _, a := range active {
		assert.False(t, seen[a.Priority], "priority %d repeated", a.Priority)
		seen[a.Priority] = true
	}
}

func TestRecalculatePriorities_SkipsWriteWhenOrderHolds(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.log(t, "A", time.Minute, 200, 100, false)
	f.log(t, "B", time.Minute, 200, 400, false)

	_, err := f.monitor.RecalculatePriorities(context.Background(), "admin-7")

	require.NoError(t, err)
	a, err := f.aggregators.GetAggregatorByID(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, a.PriorityChangedBy)
	assert.Nil(t, a.PriorityChangedAt)
}

func TestRecalculatePriorities_RecordsAdminActor(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.log(t, "A", time.Minute, 500, 100, true)
	f.log(t, "B", time.Minute, 200, 400, false)

	_, err := f.monitor.RecalculatePriorities(context.Background(), "admin-7")

	require.NoError(t, err)
	b, err := f.aggregators.GetAggregatorByID(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Priority)
	assert.Equal(t, "admin-7", b.PriorityChangedBy)
}

func TestRecalculatePriorities_NoActiveAggregators(t *testing.T) {
	f := newFixture(t)

	updates, err := f.monitor.RecalculatePriorities(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, updates)
}
