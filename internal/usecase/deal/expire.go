package deal

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

// ExpireDeals moves overdue CREATED and IN_PROGRESS deals to EXPIRED.
// Deals that changed concurrently are skipped and picked up next run if still overdue.
func (m *Machine) ExpireDeals(ctx context.Context, limit int) (int, error) {
	deals, err := m.Deals.FindExpiredDeals(ctx, m.now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, deal := range deals {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		_, err := m.Transition(ctx, deal, domain.DealStatusExpired, domain.SourceSystem, nil)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
			m.Logger.Debug("skip deal expiry", "deal_id", deal.ID, "error", err)
		default:
			m.Logger.Error("failed to expire deal", "deal_id", deal.ID, "error", err)
		}
	}
	return expired, nil
}
