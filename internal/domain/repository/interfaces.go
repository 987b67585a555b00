package repository

import (
	"context"
	"time"

	"ChessFlow/internal/domain/models"
)

// GameStream is a live feed of finished games (WebSocket upstream).
type GameStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.GameSample, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// AttemptPublisher publishes scored prediction attempts downstream.
type AttemptPublisher interface {
	Publish(ctx context.Context, a *models.PredictionAttempt) error
	PublishBatch(ctx context.Context, attempts []*models.PredictionAttempt) error
	Close() error
}

// PredictionStore persists scored attempts and serves calibration history.
// The backing store is eventually consistent and paginated; every call
// honors the context deadline.
type PredictionStore interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, a *models.PredictionAttempt) error
	InsertBatch(ctx context.Context, attempts []*models.PredictionAttempt) error
	CalibrationHistory(ctx context.Context, since time.Time, limit, offset int) ([]models.CalibrationRow, error)
	ArchetypeOutcomes(ctx context.Context, a models.Archetype, limit int) ([]models.Outcome, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the pipeline's observability sink.
type Metrics interface {
	RecordPredictionScored(tier, archetype string)
	RecordError(kind string)
	RecordEngineLatency(op string, seconds float64)
	RecordPatternCount(n int)
}
