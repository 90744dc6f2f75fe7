package deal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/fee"
)

const publishTimeout = 10 * time.Second

// Рёбра для переходов по колбэкам и системным задачам
var transitions = map[domain.DealStatus][]domain.DealStatus{
	domain.DealStatusCreated:    {domain.DealStatusInProgress, domain.DealStatusCanceled, domain.DealStatusExpired},
	domain.DealStatusInProgress: {domain.DealStatusReady, domain.DealStatusCanceled, domain.DealStatusExpired, domain.DealStatusDispute},
	domain.DealStatusReady:      {domain.DealStatusDispute},
	domain.DealStatusDispute:    {domain.DealStatusReady, domain.DealStatusCanceled},
}

func normalize(s domain.DealStatus) domain.DealStatus {
	if s == domain.DealStatusMilk {
		return domain.DealStatusCanceled
	}
	return s
}

// CanTransition reports whether from -> to is a legal edge; MILK behaves like CANCELED
func CanTransition(from, to domain.DealStatus) bool {
	for _, next := range transitions[normalize(from)] {
		if next == normalize(to) {
			return true
		}
	}
	return false
}

// HoldLedger keeps the aggregator daily volume in step with the amount held by open deals
type HoldLedger interface {
	ReleaseHold(ctx context.Context, deal *domain.Deal) error
	AdjustHold(ctx context.Context, deal *domain.Deal, delta float64) error
}

type Machine struct {
	Deals     domain.DealRepository
	Links     domain.AggregatorMerchantRepository
	Merchants domain.MerchantMethodRepository
	Holds     HoldLedger
	Publisher domain.DealEventPublisher
	Metrics   *metrics.AggregatorMetrics
	Logger    *slog.Logger

	now func() time.Time
}

func NewMachine(
	deals domain.DealRepository,
	links domain.AggregatorMerchantRepository,
	merchants domain.MerchantMethodRepository,
	holds HoldLedger,
	publisher domain.DealEventPublisher,
	aggregatorMetrics *metrics.AggregatorMetrics,
	logger *slog.Logger,
) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		Deals:     deals,
		Links:     links,
		Merchants: merchants,
		Holds:     holds,
		Publisher: publisher,
		Metrics:   aggregatorMetrics,
		Logger:    logger,
		now:       time.Now,
	}
}

// Transition moves deal to next if the edge is legal and the persisted status still equals deal.Status.
// patch is written in the same compare-and-set.
func (m *Machine) Transition(ctx context.Context, deal *domain.Deal, next domain.DealStatus, source domain.TransitionSource, patch *domain.DealPatch) (*domain.Deal, error) {
	if !CanTransition(deal.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, deal.Status, next)
	}
	return m.apply(ctx, deal, next, source, patch)
}

// Update writes field changes without a status change. Only open deals accept them:
// DISPUTE is frozen and READY carries a settled amount.
func (m *Machine) Update(ctx context.Context, deal *domain.Deal, patch *domain.DealPatch) (*domain.Deal, error) {
	if deal.Status != domain.DealStatusCreated && deal.Status != domain.DealStatusInProgress {
		return nil, fmt.Errorf("%w: deal in %s does not accept updates", domain.ErrInvalidTransition, deal.Status)
	}
	if patch.IsEmpty() {
		return deal, nil
	}

	updated, err := m.Deals.CompareAndSetStatus(ctx, &domain.DealStatusChange{
		DealID:    deal.ID,
		From:      deal.Status,
		To:        deal.Status,
		UpdatedAt: m.now(),
		Patch:     patch,
	})
	if err != nil {
		return nil, err
	}
	m.syncHold(ctx, deal, updated)
	return updated, nil
}

func (m *Machine) apply(ctx context.Context, deal *domain.Deal, next domain.DealStatus, source domain.TransitionSource, patch *domain.DealPatch) (*domain.Deal, error) {
	now := m.now()
	if deal.IsSettled() && patch != nil && patch.Amount != nil {
		// сумма заморожена вместе с прибылью
		frozen := *patch
		frozen.Amount = nil
		patch = &frozen
	}
	change := &domain.DealStatusChange{
		DealID:    deal.ID,
		From:      deal.Status,
		To:        next,
		UpdatedAt: now,
		Patch:     patch,
	}

	if next == domain.DealStatusReady && !deal.IsSettled() {
		settlement, err := m.settle(ctx, deal, patch, now)
		if err != nil {
			return nil, err
		}
		change.Settlement = settlement
	}

	updated, err := m.Deals.CompareAndSetStatus(ctx, change)
	if err != nil {
		return nil, err
	}

	m.afterTransition(ctx, deal, updated, source, change.Settlement != nil)
	return updated, nil
}

func (m *Machine) settle(ctx context.Context, deal *domain.Deal, patch *domain.DealPatch, at time.Time) (*domain.Settlement, error) {
	effective := *deal
	if patch != nil && patch.Amount != nil {
		effective.Amount = *patch.Amount
	}

	link, err := m.Links.GetAggregatorMerchant(ctx, deal.AggregatorID, deal.MerchantID, deal.MethodID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load aggregator merchant: %w", err)
	}

	merchantCommission := deal.MerchantFeeInPercent
	method, err := m.Merchants.GetMerchantMethod(ctx, deal.MerchantID, deal.MethodID)
	switch {
	case err == nil:
		merchantCommission = method.Commission(domain.FeeDirectionIn)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load merchant method: %w", err)
	}

	return fee.Settle(&effective, link, merchantCommission, at), nil
}

// syncHold: удержание равно before.Amount, пока сделка не терминальна
func (m *Machine) syncHold(ctx context.Context, before, after *domain.Deal) {
	if m.Holds == nil || before.Status.IsTerminal() {
		return
	}
	switch {
	case after.Status.ReleasesHold():
		if err := m.Holds.ReleaseHold(ctx, before); err != nil {
			m.Logger.Error("failed to release deal hold", "deal_id", after.ID, "aggregator_id", after.AggregatorID, "error", err)
		}
	case after.Amount != before.Amount:
		if err := m.Holds.AdjustHold(ctx, after, after.Amount-before.Amount); err != nil {
			m.Logger.Error("failed to adjust deal hold", "deal_id", after.ID, "aggregator_id", after.AggregatorID, "error", err)
		}
	}
}

func (m *Machine) afterTransition(ctx context.Context, before, after *domain.Deal, source domain.TransitionSource, settled bool) {
	m.syncHold(ctx, before, after)

	m.Metrics.RecordTransition(string(before.Status), string(after.Status), string(source))
	if settled {
		m.Metrics.RecordPlatformProfit(after.AggregatorID, after.PlatformProfit)
	}

	m.Logger.Info("deal status changed",
		"deal_id", after.ID,
		"our_deal_id", after.OurDealID,
		"from", before.Status,
		"to", after.Status,
		"source", source,
	)

	if m.Publisher == nil {
		return
	}
	go func(event domain.DealEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := m.Publisher.PublishDealEvent(ctx, event); err != nil {
			m.Logger.Error("failed to publish deal event", "our_deal_id", event.OurDealID, "error", err)
		}
	}(domain.DealEvent{
		DealID:         after.ID,
		OurDealID:      after.OurDealID,
		AggregatorID:   after.AggregatorID,
		MerchantID:     after.MerchantID,
		OldStatus:      before.Status,
		NewStatus:      after.Status,
		Source:         source,
		Amount:         after.Amount,
		PlatformProfit: after.PlatformProfit,
		OccurredAt:     after.UpdatedAt,
	})
}
