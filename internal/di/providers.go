package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "ChessFlow/internal/domain/repository"
	dservice "ChessFlow/internal/domain/service"
	"ChessFlow/internal/handler/api"
	mid "ChessFlow/internal/middleware"
	internalrepo "ChessFlow/internal/repository"
	"ChessFlow/internal/service/engine"
	"ChessFlow/internal/service/games"
	"ChessFlow/internal/service/history"
	"ChessFlow/internal/service/lichess"
	"ChessFlow/internal/service/simulator"
	"ChessFlow/internal/services/calibration"
	"ChessFlow/internal/services/fusion"
	"ChessFlow/internal/services/patterns"
	"ChessFlow/internal/usecase"
	"ChessFlow/pkg/cache"
	pkgch "ChessFlow/pkg/clickhouse"
	"ChessFlow/pkg/config"
	xhttp "ChessFlow/pkg/http"
	pkgkafka "ChessFlow/pkg/kafka"
	applogger "ChessFlow/pkg/logger"
	"ChessFlow/pkg/metrics"
	"ChessFlow/pkg/queue"
	"ChessFlow/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePredictionStore creates the ClickHouse-backed attempt store and
// applies its schema.
func ProvidePredictionStore(ch *pkgch.Client, lgr *applogger.Logger) (domrepo.PredictionStore, error) {
	store := internalrepo.NewCHPredictionStore(ch, lgr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates the producer for the attempts topic.
func ProvideKafkaProducer(cfg *config.Config, lgr *applogger.Logger) *pkgkafka.Producer {
	return pkgkafka.NewProducer(cfg.Kafka.AttemptsTopic, lgr,
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
}

// ProvideAttemptPublisher wraps the producer as the attempts publisher.
func ProvideAttemptPublisher(producer *pkgkafka.Producer) domrepo.AttemptPublisher {
	return internalrepo.NewKafkaAttemptPublisher(producer)
}

// ProvideCache builds a layered Redis cache when Redis is enabled,
// otherwise an in-process cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideHistoricalRates creates the cached archetype rate service.
func ProvideHistoricalRates(store domrepo.PredictionStore, c cache.Service, lgr *applogger.Logger, cfg *config.Config) dservice.HistoricalRates {
	return history.New(store, c, lgr, cfg.Rates.CacheTTL)
}

// ProvideCalibration creates the in-memory calibration store.
func ProvideCalibration(cfg *config.Config) *calibration.Store {
	return calibration.NewStore(
		calibration.WithWindowSize(cfg.Calibration.WindowSize),
		calibration.WithHalfLife(cfg.Calibration.HalfLife),
	)
}

// ProvidePatternDatabase creates the in-memory pattern index.
func ProvidePatternDatabase() *patterns.Database {
	return patterns.NewDatabase()
}

// ProvideFusionEngine creates the hybrid fusion engine.
func ProvideFusionEngine(calib *calibration.Store) *fusion.Engine {
	return fusion.NewEngine(calib)
}

// ProvideSimulator creates the move replayer.
func ProvideSimulator() dservice.GameSimulator {
	return simulator.New()
}

// ProvideEvaluator starts the UCI engine process.
func ProvideEvaluator(cfg *config.Config, m domrepo.Metrics, lgr *applogger.Logger) (dservice.TacticalEvaluator, error) {
	return engine.New(engine.Config{
		Path:    cfg.Engine.Path,
		HashMB:  cfg.Engine.HashMB,
		Threads: cfg.Engine.Threads,
		MaxRPS:  cfg.Engine.MaxRPS,
	}, m, lgr)
}

// ProvideSampleSource serves benchmark samples from the configured PGN file.
func ProvideSampleSource(cfg *config.Config, lgr *applogger.Logger) dservice.SampleSource {
	return games.New(cfg.Benchmark.PGNPath, lgr)
}

// ProvidePredictor assembles the prediction pipeline.
func ProvidePredictor(
	cfg *config.Config,
	sim dservice.GameSimulator,
	eval dservice.TacticalEvaluator,
	fe *fusion.Engine,
	db *patterns.Database,
	rates dservice.HistoricalRates,
	m domrepo.Metrics,
	lgr *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(usecase.PredictorConfig{
		EvalTimeout:   cfg.Engine.EvalTimeout,
		FusionTimeout: cfg.Benchmark.FusionTimeout,
		SearchDepth:   cfg.Engine.Depth,
		ExtraRetries:  cfg.Engine.Retries,
	}, sim, eval, fe, db, rates, m, lgr)
}

// ProvideBenchmark assembles the benchmark harness.
func ProvideBenchmark(
	cfg *config.Config,
	predictor *usecase.Predictor,
	source dservice.SampleSource,
	calib *calibration.Store,
	store domrepo.PredictionStore,
	publisher domrepo.AttemptPublisher,
	m domrepo.Metrics,
	lgr *applogger.Logger,
) *usecase.BenchmarkUseCase {
	return usecase.NewBenchmarkUseCase(usecase.BenchmarkConfig{
		SampleCount:    cfg.Benchmark.SampleCount,
		TruncationMove: cfg.Benchmark.TruncationMove,
		Cooldown:       cfg.Benchmark.Cooldown,
	}, predictor, source, calib, store, publisher, m, lgr)
}

// ProvideKafkaGamesHandler registers the learn handler for the games topic.
func ProvideKafkaGamesHandler(cfg *config.Config, predictor *usecase.Predictor, m domrepo.Metrics, lgr *applogger.Logger) *usecase.KafkaGamesHandler {
	return usecase.NewKafkaGamesHandler(cfg.Kafka.GamesTopic, predictor, m, lgr)
}

// ProvideKafkaConsumer creates the games-topic consumer.
func ProvideKafkaConsumer(cfg *config.Config, h *usecase.KafkaGamesHandler, lgr *applogger.Logger) *pkgkafka.Consumer {
	return pkgkafka.NewConsumer(h.Topic(), h.Handle, lgr,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
}

// ProvideGameStream connects the live game feed, nil when disabled.
func ProvideGameStream(cfg *config.Config, lgr *applogger.Logger) domrepo.GameStream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return lichess.New(
		cfg.Stream.Token,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Channels,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		cfg.Stream.BufferSize,
		lgr,
	)
}

// ProvideGameCollector builds the stream-to-learn path, nil when the
// stream is disabled.
func ProvideGameCollector(cfg *config.Config, stream domrepo.GameStream, predictor *usecase.Predictor, m domrepo.Metrics) *usecase.GameCollector {
	if stream == nil {
		return nil
	}
	pipe := mid.NewLearningPipeline(predictor, m,
		mid.WithMaxGamesPerSec(cfg.Stream.MaxGamesPerSec),
		mid.WithBufferSize(cfg.Stream.BufferSize),
	)
	return usecase.NewGameCollector(stream, pipe, m)
}

// ProvideRedisClient creates a raw Redis client for the job queue, nil
// when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideJobPublisher exposes the queue's publish side, nil without Redis.
func ProvideJobPublisher(client *redis.Client, lgr *applogger.Logger) queue.Publisher {
	if client == nil {
		return nil
	}
	return queue.NewRedisPublisher(lgr, client)
}

// ProvideJobWorker runs queued benchmarks in the background, nil when
// async jobs are off or Redis is unavailable.
func ProvideJobWorker(cfg *config.Config, client *redis.Client, bench *usecase.BenchmarkUseCase, lgr *applogger.Logger) *queue.RedisQueue {
	if client == nil || !cfg.Benchmark.AsyncJobs {
		return nil
	}
	return queue.NewRedisWorker(lgr, &queue.Config{
		Workers:    1,
		RetryLimit: 1,
		RetryDelay: 30 * time.Second,
	}, client, []queue.Job{usecase.NewBenchmarkJob(bench, lgr)})
}

// ProvideHTTPHandler builds the API surface.
func ProvideHTTPHandler(
	lgr *applogger.Logger,
	predictor *usecase.Predictor,
	bench *usecase.BenchmarkUseCase,
	calib *calibration.Store,
	store domrepo.PredictionStore,
	jobs queue.Publisher,
) xhttp.Handler {
	return api.NewPredictionsEchoHandler(lgr, predictor, bench, calib, store, jobs)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	handler xhttp.Handler,
	collector *usecase.GameCollector,
	consumer *pkgkafka.Consumer,
	worker *queue.RedisQueue,
	evaluator dservice.TacticalEvaluator,
	producer *pkgkafka.Producer,
	calib *calibration.Store,
	store domrepo.PredictionStore,
) *server.App {
	return server.New(cfg, lgr, handler, collector, consumer, worker, evaluator, producer, calib, store)
}
