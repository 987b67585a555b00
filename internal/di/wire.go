//go:build wireinject
// +build wireinject

package di

import (
	"ChessFlow/pkg/config"
	"ChessFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisClient,
		ProvideCache,

		// Repositories
		ProvidePredictionStore,
		ProvideAttemptPublisher,
		ProvideGameStream,

		// Core services
		ProvideCalibration,
		ProvidePatternDatabase,
		ProvideFusionEngine,
		ProvideSimulator,
		ProvideEvaluator,
		ProvideSampleSource,
		ProvideHistoricalRates,

		// Use cases
		ProvidePredictor,
		ProvideBenchmark,
		ProvideKafkaGamesHandler,
		ProvideKafkaConsumer,
		ProvideGameCollector,
		ProvideJobPublisher,
		ProvideJobWorker,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
