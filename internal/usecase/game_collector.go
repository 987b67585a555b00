package usecase

import (
	"context"

	"ChessFlow/internal/domain/models"
	drepo "ChessFlow/internal/domain/repository"
	mid "ChessFlow/internal/middleware"
)

// GameCollector drains the live game stream into the learning pipeline.
type GameCollector struct {
	stream  drepo.GameStream
	pipe    *mid.LearningPipeline
	metrics drepo.Metrics
}

func NewGameCollector(stream drepo.GameStream, pipe *mid.LearningPipeline, metrics drepo.Metrics) *GameCollector {
	return &GameCollector{stream: stream, pipe: pipe, metrics: metrics}
}

// IsConnected reports whether the upstream WebSocket is alive.
func (c *GameCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *GameCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	games, errs := c.stream.Read(ctx)
	go c.consume(ctx, games, errs)
	return nil
}

// consume drains one channel pair at a time. The stream closes both
// channels when its read pump dies, so any error or closed channel means
// the pair is spent: reconnect and re-read for a fresh pair.
func (c *GameCollector) consume(ctx context.Context, games <-chan *models.GameSample, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err != nil {
				c.metrics.RecordError("stream")
			}
			games, errs = c.reconnect(ctx)
		case sample, ok := <-games:
			if !ok {
				games, errs = c.reconnect(ctx)
				continue
			}
			if sample == nil {
				continue
			}
			_ = c.pipe.Process(ctx, sample)
		}
	}
}

// reconnect re-dials until the stream is back or ctx ends, then returns a
// fresh channel pair. Nil channels park the consumer on ctx.Done only.
func (c *GameCollector) reconnect(ctx context.Context) (<-chan *models.GameSample, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			continue
		}
		return c.stream.Read(ctx)
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *GameCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
