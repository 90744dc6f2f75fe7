package deal

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

// Административный путь, отдельный от CanTransition: DISPUTE -> READY разрешён только админу
func canOverride(from, to domain.DealStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case domain.DealStatusCanceled, domain.DealStatusMilk:
		return true
	case domain.DealStatusReady:
		return from == domain.DealStatusDispute
	}
	return false
}

// Override forces a deal into CANCELED, MILK or (from DISPUTE) READY on behalf of an admin
func (m *Machine) Override(ctx context.Context, deal *domain.Deal, next domain.DealStatus, actor, reason string) (*domain.Deal, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}
	if !canOverride(deal.Status, next) {
		return nil, fmt.Errorf("%w: override %s -> %s", domain.ErrInvalidTransition, deal.Status, next)
	}

	patch := &domain.DealPatch{
		Metadata: map[string]any{"override_by": actor},
	}
	if reason != "" {
		patch.Reason = &reason
	}

	return m.apply(ctx, deal, next, domain.SourceAdmin, patch)
}

// OverrideByID loads the deal and applies Override against its current status
func (m *Machine) OverrideByID(ctx context.Context, dealID string, next domain.DealStatus, actor, reason string) (*domain.Deal, error) {
	deal, err := m.Deals.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return m.Override(ctx, deal, next, actor, reason)
}
