package memory

import (
	"context"
	"sync"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/google/uuid"
)

type AggregatorMerchantRepository struct {
	mu    sync.RWMutex
	links map[string]*domain.AggregatorMerchant
}

var _ domain.AggregatorMerchantRepository = (*AggregatorMerchantRepository)(nil)

func NewAggregatorMerchantRepository() *AggregatorMerchantRepository {
	return &AggregatorMerchantRepository{
		links: make(map[string]*domain.AggregatorMerchant),
	}
}

func (r *AggregatorMerchantRepository) CreateAggregatorMerchant(_ context.Context, link *domain.AggregatorMerchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.links {
		if other.AggregatorID == link.AggregatorID && other.MerchantID == link.MerchantID && other.MethodID == link.MethodID {
			return domain.ErrConflict
		}
	}
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	now := time.Now()
	link.CreatedAt, link.UpdatedAt = now, now
	for i := range link.FeeRanges {
		if link.FeeRanges[i].ID == "" {
			link.FeeRanges[i].ID = uuid.NewString()
		}
		link.FeeRanges[i].AggregatorMerchantID = link.ID
	}

	r.links[link.ID] = cloneLink(link)
	return nil
}

func (r *AggregatorMerchantRepository) GetAggregatorMerchant(_ context.Context, aggregatorID, merchantID, methodID string) (*domain.AggregatorMerchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, link := range r.links {
		if link.AggregatorID == aggregatorID && link.MerchantID == merchantID && link.MethodID == methodID {
			return cloneLink(link), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AggregatorMerchantRepository) GetAggregatorMerchantByID(_ context.Context, id string) (*domain.AggregatorMerchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneLink(link), nil
}

func (r *AggregatorMerchantRepository) ReplaceFeeRanges(_ context.Context, aggregatorMerchantID string, ranges []domain.FeeRange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[aggregatorMerchantID]
	if !ok {
		return domain.ErrNotFound
	}
	replaced := make([]domain.FeeRange, len(ranges))
	for i, fr := range ranges {
		if fr.ID == "" {
			fr.ID = uuid.NewString()
		}
		fr.AggregatorMerchantID = aggregatorMerchantID
		replaced[i] = fr
	}
	link.FeeRanges = replaced
	link.UpdatedAt = time.Now()
	return nil
}

func cloneLink(l *domain.AggregatorMerchant) *domain.AggregatorMerchant {
	c := *l
	c.FeeRanges = append([]domain.FeeRange(nil), l.FeeRanges...)
	return &c
}

type MerchantMethodRepository struct {
	mu      sync.RWMutex
	methods map[string]domain.MerchantMethod
}

var _ domain.MerchantMethodRepository = (*MerchantMethodRepository)(nil)

func NewMerchantMethodRepository() *MerchantMethodRepository {
	return &MerchantMethodRepository{
		methods: make(map[string]domain.MerchantMethod),
	}
}

func (r *MerchantMethodRepository) SaveMerchantMethod(_ context.Context, method *domain.MerchantMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.methods[method.MerchantID+"/"+method.MethodID] = *method
	return nil
}

func (r *MerchantMethodRepository) GetMerchantMethod(_ context.Context, merchantID, methodID string) (*domain.MerchantMethod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	method, ok := r.methods[merchantID+"/"+methodID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &method, nil
}
