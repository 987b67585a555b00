package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ChessFlow/internal/domain/models"
	pkgkafka "ChessFlow/pkg/kafka"
)

// KafkaAttemptPublisher fans scored attempts out to Kafka, keyed by game
// id so per-game ordering survives partitioning.
type KafkaAttemptPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaAttemptPublisher(producer *pkgkafka.Producer) *KafkaAttemptPublisher {
	return &KafkaAttemptPublisher{producer: producer}
}

// Publish sends one scored attempt.
func (p *KafkaAttemptPublisher) Publish(ctx context.Context, a *models.PredictionAttempt) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	return p.producer.Publish(ctx, []byte(a.GameID), value)
}

// PublishBatch sends a run's attempts in one writer call.
func (p *KafkaAttemptPublisher) PublishBatch(ctx context.Context, attempts []*models.PredictionAttempt) error {
	msgs := make([]pkgkafka.Message, 0, len(attempts))
	for _, a := range attempts {
		value, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal attempt %s: %w", a.GameID, err)
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(a.GameID), Value: value})
	}
	return p.producer.PublishBatch(ctx, msgs)
}

// Close flushes the producer.
func (p *KafkaAttemptPublisher) Close() error {
	return p.producer.Close()
}
