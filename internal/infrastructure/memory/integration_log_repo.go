package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/google/uuid"
)

// IntegrationLogRepository is append-only, entries are never changed after AppendLog
type IntegrationLogRepository struct {
	mu      sync.RWMutex
	entries []domain.IntegrationLogEntry
}

var _ domain.IntegrationLogRepository = (*IntegrationLogRepository)(nil)

func NewIntegrationLogRepository() *IntegrationLogRepository {
	return &IntegrationLogRepository{}
}

func (r *IntegrationLogRepository) AppendLog(_ context.Context, entry *domain.IntegrationLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *IntegrationLogRepository) AggregateSLA(_ context.Context, direction domain.LogDirection, eventType string, since time.Time) ([]domain.SLAStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type acc struct {
		stats   domain.SLAStats
		totalMs int64
	}
	byAggregator := make(map[string]*acc)
	for _, e := range r.entries {
		if e.Direction != direction || e.EventType != eventType || e.RequestedAt.Before(since) {
			continue
		}
		a, ok := byAggregator[e.AggregatorID]
		if !ok {
			a = &acc{stats: domain.SLAStats{AggregatorID: e.AggregatorID}}
			byAggregator[e.AggregatorID] = a
		}
		a.stats.TotalCalls++
		a.totalMs += e.ResponseTimeMs
		if e.StatusCode >= 200 && e.StatusCode < 300 && !e.SlaViolation {
			a.stats.SuccessfulCalls++
		}
		if e.SlaViolation {
			a.stats.Violations++
		}
	}

	result := make([]domain.SLAStats, 0, len(byAggregator))
	for _, a := range byAggregator {
		a.stats.AvgResponseTimeMs = float64(a.totalMs) / float64(a.stats.TotalCalls)
		result = append(result, a.stats)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AggregatorID < result[j].AggregatorID
	})
	return result, nil
}

func (r *IntegrationLogRepository) ListLogsByOurDealID(_ context.Context, ourDealID string) ([]*domain.IntegrationLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.IntegrationLogEntry
	for i := range r.entries {
		if r.entries[i].OurDealID == ourDealID {
			e := r.entries[i]
			result = append(result, &e)
		}
	}
	return result, nil
}

// Entries returns a snapshot of everything appended so far
func (r *IntegrationLogRepository) Entries() []domain.IntegrationLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.IntegrationLogEntry(nil), r.entries...)
}
