package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/google/uuid"
)

// AggregatorRepository is an in-memory implementation of domain.AggregatorRepository.
// It enforces the same unique-priority rule among active aggregators as the database index.
type AggregatorRepository struct {
	mu          sync.RWMutex
	aggregators map[string]*domain.Aggregator
}

var _ domain.AggregatorRepository = (*AggregatorRepository)(nil)

func NewAggregatorRepository() *AggregatorRepository {
	return &AggregatorRepository{
		aggregators: make(map[string]*domain.Aggregator),
	}
}

func (r *AggregatorRepository) CreateAggregator(_ context.Context, aggregator *domain.Aggregator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if aggregator.ID == "" {
		aggregator.ID = uuid.NewString()
	}
	if _, exists := r.aggregators[aggregator.ID]; exists {
		return domain.ErrConflict
	}
	if aggregator.IsActive {
		for _, other := range r.aggregators {
			if other.IsActive && other.Priority == aggregator.Priority {
				return fmt.Errorf("%w: priority %d is taken by %s", domain.ErrConflict, aggregator.Priority, other.ID)
			}
		}
	}
	now := time.Now()
	if aggregator.CreatedAt.IsZero() {
		aggregator.CreatedAt = now
	}
	if aggregator.VolumeResetAt.IsZero() {
		aggregator.VolumeResetAt = now
	}
	aggregator.UpdatedAt = now

	r.aggregators[aggregator.ID] = cloneAggregator(aggregator)
	return nil
}

func (r *AggregatorRepository) GetAggregatorByID(_ context.Context, aggregatorID string) (*domain.Aggregator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	aggregator, ok := r.aggregators[aggregatorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAggregator(aggregator), nil
}

func (r *AggregatorRepository) GetAggregatorByCallbackTokenHash(_ context.Context, tokenHash string) (*domain.Aggregator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, aggregator := range r.aggregators {
		if aggregator.CallbackTokenHash != "" && aggregator.CallbackTokenHash == tokenHash {
			return cloneAggregator(aggregator), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AggregatorRepository) ListActiveAggregators(_ context.Context) ([]*domain.Aggregator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(a *domain.Aggregator) bool { return a.IsActive }), nil
}

func (r *AggregatorRepository) FindRoutingCandidates(_ context.Context, amount float64) ([]*domain.Aggregator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(a *domain.Aggregator) bool { return a.CanAccept(amount) }), nil
}

func (r *AggregatorRepository) UpdatePriorities(_ context.Context, updates []domain.PriorityUpdate, actor string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]int, len(updates))
	for _, u := range updates {
		if _, ok := r.aggregators[u.AggregatorID]; !ok {
			return fmt.Errorf("%w: aggregator %s", domain.ErrNotFound, u.AggregatorID)
		}
		staged[u.AggregatorID] = u.Priority
	}

	taken := make(map[int]string)
	for id, aggregator := range r.aggregators {
		if !aggregator.IsActive {
			continue
		}
		priority := aggregator.Priority
		if p, ok := staged[id]; ok {
			priority = p
		}
		if owner, dup := taken[priority]; dup {
			return fmt.Errorf("%w: priority %d is taken by %s", domain.ErrConflict, priority, owner)
		}
		taken[priority] = id
	}

	for id, priority := range staged {
		aggregator := r.aggregators[id]
		aggregator.Priority = priority
		aggregator.PriorityChangedBy = actor
		changedAt := at
		aggregator.PriorityChangedAt = &changedAt
		aggregator.UpdatedAt = at
	}
	return nil
}

func (r *AggregatorRepository) AddDailyVolume(_ context.Context, aggregatorID string, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	aggregator, ok := r.aggregators[aggregatorID]
	if !ok {
		return domain.ErrNotFound
	}
	aggregator.CurrentDailyVolume += delta
	if aggregator.CurrentDailyVolume < 0 {
		aggregator.CurrentDailyVolume = 0
	}
	return nil
}

func (r *AggregatorRepository) ResetDailyVolumes(_ context.Context, resetBefore, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, aggregator := range r.aggregators {
		if !aggregator.VolumeResetAt.Before(resetBefore) {
			continue
		}
		aggregator.CurrentDailyVolume = 0
		aggregator.VolumeResetAt = now
		n++
	}
	return n, nil
}

func (r *AggregatorRepository) sorted(keep func(*domain.Aggregator) bool) []*domain.Aggregator {
	var result []*domain.Aggregator
	for _, aggregator := range r.aggregators {
		if keep(aggregator) {
			result = append(result, cloneAggregator(aggregator))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func cloneAggregator(a *domain.Aggregator) *domain.Aggregator {
	c := *a
	if a.MaxDailyVolume != nil {
		v := *a.MaxDailyVolume
		c.MaxDailyVolume = &v
	}
	if a.PriorityChangedAt != nil {
		t := *a.PriorityChangedAt
		c.PriorityChangedAt = &t
	}
	return &c
}
