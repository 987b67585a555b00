package usecase

import (
	"context"
	"encoding/json"

	"ChessFlow/internal/domain/models"
	domrepo "ChessFlow/internal/domain/repository"
	applogger "ChessFlow/pkg/logger"
)

// KafkaGamesHandler consumes finished games from the games topic and
// folds each one into the pattern database.
type KafkaGamesHandler struct {
	topic     string
	predictor *Predictor
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewKafkaGamesHandler(topic string, predictor *Predictor, metrics domrepo.Metrics, lgr *applogger.Logger) *KafkaGamesHandler {
	return &KafkaGamesHandler{topic: topic, predictor: predictor, metrics: metrics, logger: lgr}
}

func (h *KafkaGamesHandler) Topic() string { return h.topic }

// Handle unmarshals one game sample and learns it. Malformed payloads
// are dropped without error so the consumer does not retry poison pills.
func (h *KafkaGamesHandler) Handle(ctx context.Context, key, value []byte) error {
	var sample models.GameSample
	if err := json.Unmarshal(value, &sample); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.logger.Warn("dropping malformed game message",
			applogger.String("key", string(key)),
			applogger.Error(err))
		return nil
	}
	if sample.GameID == "" {
		sample.GameID = string(key)
	}

	if _, err := h.predictor.Learn(sample); err != nil {
		h.metrics.RecordError("consumer_learn")
		h.logger.Warn("dropping unlearnable game",
			applogger.String("game_id", sample.GameID),
			applogger.Error(err))
		return nil
	}
	return nil
}
