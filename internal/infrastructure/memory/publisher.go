package memory

import (
	"context"
	"sync"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

// EventPublisher keeps published deal events in memory, used when kafka is disabled
type EventPublisher struct {
	mu     sync.Mutex
	events []domain.DealEvent
}

var _ domain.DealEventPublisher = (*EventPublisher)(nil)

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

func (p *EventPublisher) PublishDealEvent(_ context.Context, event domain.DealEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	return nil
}

func (p *EventPublisher) Events() []domain.DealEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]domain.DealEvent(nil), p.events...)
}
