package domain

import (
	"context"
	"time"
)

type Message struct {
	Key   []byte
	Value []byte
}

type PublisherPort interface {
	Publish(ctx context.Context, topic string, msgs ...Message) error
}

// DealEvent публикуется после каждого успешного перехода статуса сделки
type DealEvent struct {
	DealID         string           `json:"deal_id"`
	OurDealID      string           `json:"our_deal_id"`
	AggregatorID   string           `json:"aggregator_id"`
	MerchantID     string           `json:"merchant_id"`
	OldStatus      DealStatus       `json:"old_status"`
	NewStatus      DealStatus       `json:"new_status"`
	Source         TransitionSource `json:"source"`
	Amount         float64          `json:"amount"`
	PlatformProfit float64          `json:"platform_profit"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

type DealEventPublisher interface {
	PublishDealEvent(ctx context.Context, event DealEvent) error
}
