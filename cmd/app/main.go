package main

import (
	"flag"
	"log"
	"os"

	"StratRun/internal/di"
	"StratRun/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s orders=%s history=%s strategies=%d",
		cfg.Environment, cfg.Orders.Backend, cfg.History.Source, len(cfg.Enabled()))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	if len(cfg.Kafka.Brokers) > 0 {
		log.Printf("kafka: brokers=%v triggers=%s orders=%s", cfg.Kafka.Brokers, cfg.Kafka.TriggersTopic, cfg.Orders.Topic)
	}

	// Blocks until signal
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
