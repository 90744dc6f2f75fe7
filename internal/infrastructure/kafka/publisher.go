package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type DefaultKafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

var (
	_ domain.PublisherPort      = (*DefaultKafkaPublisher)(nil)
	_ domain.DealEventPublisher = (*DefaultKafkaPublisher)(nil)
)

func NewDefaultKafkaPublisher(brokers []string, topic string) *DefaultKafkaPublisher {
	return &DefaultKafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		topic: topic,
	}
}

func (k *DefaultKafkaPublisher) Publish(ctx context.Context, topic string, msgs ...domain.Message) error {
	km := make([]kafka.Message, 0, len(msgs))
	now := time.Now()
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  now,
			Topic: topic,
		})
	}

	if err := k.writer.WriteMessages(ctx, km...); err != nil {
		return fmt.Errorf("failed to write messages to %s: %w", topic, err)
	}
	return nil
}

// PublishDealEvent keys by aggregator, so events of one aggregator keep their order in a partition
func (k *DefaultKafkaPublisher) PublishDealEvent(ctx context.Context, event domain.DealEvent) error {
	msg, err := EncodeDealEvent(event)
	if err != nil {
		return err
	}
	return k.Publish(ctx, k.topic, msg)
}

func (k *DefaultKafkaPublisher) Close() error {
	return k.writer.Close()
}

func EncodeDealEvent(event domain.DealEvent) (domain.Message, error) {
	v, err := json.Marshal(event)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal deal event: %w", err)
	}
	return domain.Message{Key: []byte(event.AggregatorID), Value: v}, nil
}
