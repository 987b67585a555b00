package kafka

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"ChessFlow/pkg/logger"
)

var (
	consumerMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chessflow_kafka_consumer_messages_total",
		Help: "Total messages consumed per topic and result",
	}, []string{"topic", "result"})

	consumerHandleSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chessflow_kafka_consumer_handle_seconds",
		Help:    "Handler latency per topic",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	consumerLag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chessflow_kafka_consumer_lag",
		Help: "Consumer lag per topic",
	}, []string{"topic"})
)

// MessageHandler processes a consumed message. A returned error triggers
// retry with backoff up to the configured RetryMax.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic with a worker pool. Offsets are committed only
// after the handler succeeds or retries are exhausted.
type Consumer struct {
	reader  *kafka.Reader
	cfg     *ConsumerConfig
	topic   string
	handler MessageHandler
	logger  *logger.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewConsumer creates a consumer for one topic within a consumer group.
func NewConsumer(topic string, handler MessageHandler, log *logger.Logger, opts ...ConsumerOption) *Consumer {
	cfg := &ConsumerConfig{
		Brokers:     []string{"localhost:9092"},
		GroupID:     "chessflow",
		WorkerCount: 4,
		BufferSize:  256,
		RetryMax:    3,
		BackoffMin:  200 * time.Millisecond,
		BackoffMax:  5 * time.Second,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	return &Consumer{
		reader:  reader,
		cfg:     cfg,
		topic:   topic,
		handler: handler,
		logger:  log,
	}
}

// Start launches the fetch loop and worker pool. It returns immediately;
// use Stop for a graceful drain.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	messages := make(chan kafka.Message, c.cfg.BufferSize)

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, messages)
	}

	c.wg.Add(1)
	go c.fetchLoop(ctx, messages)
}

func (c *Consumer) fetchLoop(ctx context.Context, messages chan<- kafka.Message) {
	defer c.wg.Done()
	defer close(messages)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("kafka fetch failed",
				logger.String("topic", c.topic),
				logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.BackoffMin):
			}
			continue
		}

		consumerLag.WithLabelValues(c.topic).Set(float64(c.reader.Lag()))

		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context, messages <-chan kafka.Message) {
	defer c.wg.Done()

	for msg := range messages {
		c.handleWithRetry(ctx, msg)

		if err := c.commit(ctx, msg); err != nil {
			c.logger.Error("kafka commit failed",
				logger.String("topic", c.topic),
				logger.Int64("offset", msg.Offset),
				logger.Error(err))
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := c.handler(ctx, msg.Key, msg.Value)
		consumerHandleSeconds.WithLabelValues(c.topic).Observe(time.Since(start).Seconds())

		if err == nil {
			consumerMessagesTotal.WithLabelValues(c.topic, "ok").Inc()
			return
		}
		if attempt >= c.cfg.RetryMax {
			consumerMessagesTotal.WithLabelValues(c.topic, "dropped").Inc()
			c.logger.Error("message dropped after retries",
				logger.String("topic", c.topic),
				logger.Int64("offset", msg.Offset),
				logger.Int("attempts", attempt+1),
				logger.Error(err))
			return
		}

		consumerMessagesTotal.WithLabelValues(c.topic, "retry").Inc()
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffWithJitter(attempt, c.cfg.BackoffMin, c.cfg.BackoffMax)):
		}
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 0; attempt <= 2; attempt++ {
		if err = c.reader.CommitMessages(ctx, msg); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		time.Sleep(backoffWithJitter(attempt, c.cfg.BackoffMin, c.cfg.BackoffMax))
	}
	return err
}

// Stop cancels the fetch loop, drains workers, and closes the reader.
func (c *Consumer) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		err = c.reader.Close()
	})
	return err
}

// backoffWithJitter grows exponentially from min, capped at max, with
// up to 25% random jitter to avoid retry alignment across workers.
func backoffWithJitter(attempt int, min, max time.Duration) time.Duration {
	backoff := min << uint(attempt)
	if backoff > max || backoff <= 0 {
		backoff = max
	}
	jitter := time.Duration(rand.Int63n(int64(backoff)/4 + 1))
	return backoff + jitter
}
