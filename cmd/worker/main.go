package main

import (
	"context"
	"time"

	"tutorflow/internal/activities"
	"tutorflow/internal/config"
	"tutorflow/internal/progress"
	"tutorflow/internal/storage"
	"tutorflow/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	zl, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	log := zl.Sugar()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	bus := progress.NewBus(cfg.RedisAddr, log)
	defer bus.Close()

	a, err := activities.New(cfg, db, bus, log)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	log.Infow("tutorflow worker listening", "temporal", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue,
		"llm_providers", cfg.LLMProviders, "search_providers", cfg.SearchProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
