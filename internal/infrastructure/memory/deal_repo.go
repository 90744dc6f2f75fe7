package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/google/uuid"
)

// DealRepository is an in-memory implementation of domain.DealRepository
type DealRepository struct {
	mu      sync.RWMutex
	deals   map[string]*domain.Deal
	byOurID map[string]string
}

var _ domain.DealRepository = (*DealRepository)(nil)

func NewDealRepository() *DealRepository {
	return &DealRepository{
		deals:   make(map[string]*domain.Deal),
		byOurID: make(map[string]string),
	}
}

func (r *DealRepository) CreateDeal(_ context.Context, deal *domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deal.ID == "" {
		deal.ID = uuid.NewString()
	}
	if _, exists := r.deals[deal.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byOurID[deal.OurDealID]; exists {
		return domain.ErrConflict
	}
	now := time.Now()
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	if deal.UpdatedAt.IsZero() {
		deal.UpdatedAt = deal.CreatedAt
	}

	r.deals[deal.ID] = cloneDeal(deal)
	r.byOurID[deal.OurDealID] = deal.ID
	return nil
}

func (r *DealRepository) GetDealByID(_ context.Context, dealID string) (*domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deal, ok := r.deals[dealID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDeal(deal), nil
}

func (r *DealRepository) GetDealByOurDealID(ctx context.Context, ourDealID string) (*domain.Deal, error) {
	r.mu.RLock()
	id, ok := r.byOurID[ourDealID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetDealByID(ctx, id)
}

func (r *DealRepository) CompareAndSetStatus(_ context.Context, change *domain.DealStatusChange) (*domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deal, ok := r.deals[change.DealID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if deal.Status != change.From {
		return nil, domain.ErrConflict
	}

	updated := cloneDeal(deal)
	updated.Status = change.To
	updated.UpdatedAt = change.UpdatedAt
	if p := change.Patch; p != nil {
		if p.Amount != nil {
			updated.Amount = *p.Amount
		}
		if p.PartnerDealID != nil {
			updated.PartnerDealID = *p.PartnerDealID
		}
		if p.Reason != nil {
			updated.Reason = *p.Reason
		}
		if len(p.Metadata) > 0 {
			if updated.Metadata == nil {
				updated.Metadata = make(map[string]any, len(p.Metadata))
			}
			for k, v := range p.Metadata {
				updated.Metadata[k] = v
			}
		}
	}
	if s := change.Settlement; s != nil {
		updated.MerchantFeeInPercent = s.MerchantFeeInPercent
		updated.AggregatorFeeInPercent = s.AggregatorFeeInPercent
		updated.MerchantProfit = s.MerchantProfit
		updated.AggregatorProfit = s.AggregatorProfit
		updated.PlatformProfit = s.PlatformProfit
		settledAt := s.SettledAt
		updated.SettledAt = &settledAt
	}

	r.deals[deal.ID] = updated
	return cloneDeal(updated), nil
}

func (r *DealRepository) FindExpiredDeals(_ context.Context, now time.Time, limit int) ([]*domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Deal
	for _, deal := range r.deals {
		if deal.Status != domain.DealStatusCreated && deal.Status != domain.DealStatusInProgress {
			continue
		}
		if deal.ExpiresAt.IsZero() || !deal.ExpiresAt.Before(now) {
			continue
		}
		result = append(result, cloneDeal(deal))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneDeal(d *domain.Deal) *domain.Deal {
	c := *d
	if d.Metadata != nil {
		c.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	if d.SettledAt != nil {
		settledAt := *d.SettledAt
		c.SettledAt = &settledAt
	}
	return &c
}
