package repository

import (
	"context"

	domrepo "FinFolio/internal/domain/repository"
	pkgkafka "FinFolio/pkg/kafka"
)

// KafkaRunPublisher emits one RunSummary per run, keyed by run id.
type KafkaRunPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaRunPublisher(producer *pkgkafka.Producer, topic string) *KafkaRunPublisher {
	return &KafkaRunPublisher{producer: producer, topic: topic}
}

func (p *KafkaRunPublisher) Publish(ctx context.Context, s *domrepo.RunSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.RunID), s)
}

func (p *KafkaRunPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopRunPublisher is used when Kafka is disabled.
type NopRunPublisher struct{}

func (NopRunPublisher) Publish(context.Context, *domrepo.RunSummary) error { return nil }
func (NopRunPublisher) Close() error { return nil }

var (
	_ domrepo.RunPublisher = (*KafkaRunPublisher)(nil)
	_ domrepo.RunPublisher = NopRunPublisher{}
)
