package main

import (
	"flag"
	"log"
	"os"

	"ChessFlow/internal/di"
	"ChessFlow/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s engine=%s depth=%d", cfg.Environment, cfg.Engine.Path, cfg.Engine.Depth)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	log.Printf("kafka: brokers=%v games_topic=%s attempts_topic=%s", cfg.Kafka.Brokers, cfg.Kafka.GamesTopic, cfg.Kafka.AttemptsTopic)

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
