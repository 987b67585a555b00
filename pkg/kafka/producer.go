package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"ChessFlow/pkg/logger"
)

var (
	producerMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chessflow_kafka_producer_messages_total",
		Help: "Total messages published per topic and result",
	}, []string{"topic", "result"})

	producerPublishSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chessflow_kafka_producer_publish_seconds",
		Help:    "Publish latency per topic",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)

// Producer wraps kafka.Writer with metrics and structured logging.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *logger.Logger
}

// NewProducer creates a producer for a single topic.
func NewProducer(topic string, log *logger.Logger, opts ...ProducerOption) *Producer {
	cfg := &ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		RequiredAcks: -1,
		Compression:  "snappy",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
		Compression:  parseCompression(cfg.Compression),
	}
	if cfg.HashByKey {
		writer.Balancer = &kafka.Hash{}
	} else {
		writer.Balancer = &kafka.LeastBytes{}
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		logger: log,
	}
}

// Publish writes one message keyed by key.
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	start := time.Now()
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
	producerPublishSeconds.WithLabelValues(p.topic).Observe(time.Since(start).Seconds())

	if err != nil {
		producerMessagesTotal.WithLabelValues(p.topic, "error").Inc()
		p.logger.Error("kafka publish failed",
			logger.String("topic", p.topic),
			logger.Error(err))
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	producerMessagesTotal.WithLabelValues(p.topic, "ok").Inc()
	return nil
}

// PublishBatch writes many messages in one call.
func (p *Producer) PublishBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	kmsgs := make([]kafka.Message, 0, len(msgs))
	now := time.Now()
	for _, m := range msgs {
		kmsgs = append(kmsgs, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  now,
		})
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, kmsgs...)
	producerPublishSeconds.WithLabelValues(p.topic).Observe(time.Since(start).Seconds())

	if err != nil {
		producerMessagesTotal.WithLabelValues(p.topic, "error").Add(float64(len(msgs)))
		p.logger.Error("kafka batch publish failed",
			logger.String("topic", p.topic),
			logger.Int("count", len(msgs)),
			logger.Error(err))
		return fmt.Errorf("publish batch to %s: %w", p.topic, err)
	}

	producerMessagesTotal.WithLabelValues(p.topic, "ok").Add(float64(len(msgs)))
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Message is a key/value pair destined for the producer topic.
type Message struct {
	Key   []byte
	Value []byte
}

func parseCompression(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Compression(compress.Gzip)
	case "lz4":
		return kafka.Compression(compress.Lz4)
	case "zstd":
		return kafka.Compression(compress.Zstd)
	case "none", "":
		return 0
	default:
		return kafka.Compression(compress.Snappy)
	}
}
