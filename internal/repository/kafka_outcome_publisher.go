package repository

import (
	"context"
	"fmt"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	pkgkafka "ORBLab/pkg/kafka"
)

// BatchPublisher is the slice of pkg/kafka.Producer used here.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaOutcomePublisher emits each outcome row as a JSON message keyed by
// strategy id. Consumers compact on Key() to keep upsert semantics.
type KafkaOutcomePublisher struct {
	producer BatchPublisher
	topic    string
}

var _ domrepo.OutcomeSink = (*KafkaOutcomePublisher)(nil)

func NewKafkaOutcomePublisher(producer BatchPublisher, topic string) *KafkaOutcomePublisher {
	return &KafkaOutcomePublisher{producer: producer, topic: topic}
}

func (p *KafkaOutcomePublisher) Upsert(ctx context.Context, rows []models.OutcomeRow) error {
	if err := refuseDiagnostic(rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(rows))
	for i, r := range rows {
		msgs[i] = pkgkafka.Message{Key: []byte(r.StrategyID), Value: r}
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish outcomes: %w", err)
	}
	return nil
}

func (p *KafkaOutcomePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
