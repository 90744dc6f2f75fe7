package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/fee"
)

// Длина скользящих суток для дневного объёма
const volumeDay = 24 * time.Hour

// Service is the single entry point for aggregator configuration writes:
// priority batches, fee ranges and daily volume holds
type Service struct {
	Aggregators domain.AggregatorRepository
	Links       domain.AggregatorMerchantRepository
	Metrics     *metrics.AggregatorMetrics
	Logger      *slog.Logger

	now func() time.Time
}

func NewService(
	aggregators domain.AggregatorRepository,
	links domain.AggregatorMerchantRepository,
	aggregatorMetrics *metrics.AggregatorMetrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Aggregators: aggregators,
		Links:       links,
		Metrics:     aggregatorMetrics,
		Logger:      logger,
		now:         time.Now,
	}
}

// ValidatePriorityBatch rejects empty batches, repeated aggregator ids and repeated priority values
func ValidatePriorityBatch(updates []domain.PriorityUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: empty priority batch", domain.ErrValidation)
	}

	seenIDs := make(map[string]struct{}, len(updates))
	seenPriorities := make(map[int]string, len(updates))
	for _, u := range updates {
		if u.AggregatorID == "" {
			return fmt.Errorf("%w: aggregatorId is required", domain.ErrValidation)
		}
		if u.Priority < 1 {
			return fmt.Errorf("%w: priority of %s must be positive", domain.ErrValidation, u.AggregatorID)
		}
		if _, dup := seenIDs[u.AggregatorID]; dup {
			return fmt.Errorf("%w: aggregator %s appears more than once", domain.ErrValidation, u.AggregatorID)
		}
		if owner, dup := seenPriorities[u.Priority]; dup {
			return fmt.Errorf("%w: priority %d assigned to both %s and %s", domain.ErrValidation, u.Priority, owner, u.AggregatorID)
		}
		seenIDs[u.AggregatorID] = struct{}{}
		seenPriorities[u.Priority] = u.AggregatorID
	}
	return nil
}

// UpdatePriorities validates and writes a priority batch all-or-nothing
func (s *Service) UpdatePriorities(ctx context.Context, updates []domain.PriorityUpdate, actor string) error {
	if err := ValidatePriorityBatch(updates); err != nil {
		return err
	}
	if actor == "" {
		return fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	if err := s.Aggregators.UpdatePriorities(ctx, updates, actor, s.now()); err != nil {
		return err
	}

	for _, u := range updates {
		s.Metrics.RecordPriority(u.AggregatorID, u.Priority)
	}
	s.Logger.Info("aggregator priorities updated", "actor", actor, "count", len(updates))
	return nil
}

// ReplaceFeeRanges validates the new range set and swaps it in one transaction
func (s *Service) ReplaceFeeRanges(ctx context.Context, aggregatorMerchantID string, ranges []domain.FeeRange) ([]domain.FeeRange, error) {
	sorted, err := fee.ValidateRanges(ranges)
	if err != nil {
		return nil, err
	}
	if _, err := s.Links.GetAggregatorMerchantByID(ctx, aggregatorMerchantID); err != nil {
		return nil, err
	}
	if err := s.Links.ReplaceFeeRanges(ctx, aggregatorMerchantID, sorted); err != nil {
		return nil, err
	}

	s.Logger.Info("fee ranges replaced", "aggregator_merchant_id", aggregatorMerchantID, "count", len(sorted))
	return sorted, nil
}

// ReserveHold adds an accepted deal to the winner's daily volume
func (s *Service) ReserveHold(ctx context.Context, deal *domain.Deal) error {
	return s.Aggregators.AddDailyVolume(ctx, deal.AggregatorID, deal.Amount)
}

// ReleaseHold gives the held deal amount back to the aggregator's daily volume
func (s *Service) ReleaseHold(ctx context.Context, deal *domain.Deal) error {
	if deal.AggregatorID == "" {
		return nil
	}
	return s.Aggregators.AddDailyVolume(ctx, deal.AggregatorID, -deal.Amount)
}

// AdjustHold shifts an open deal's hold when the partner changes its amount
func (s *Service) AdjustHold(ctx context.Context, deal *domain.Deal, delta float64) error {
	if deal.AggregatorID == "" || delta == 0 {
		return nil
	}
	return s.Aggregators.AddDailyVolume(ctx, deal.AggregatorID, delta)
}

// ResetDailyVolumes zeroes the volume of aggregators whose rolling day is over
func (s *Service) ResetDailyVolumes(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.Aggregators.ResetDailyVolumes(ctx, now.Add(-volumeDay), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("daily volumes reset", "aggregators", n)
	}
	return n, nil
}
