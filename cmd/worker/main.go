package main

import (
	"context"
	"os/signal"
	"syscall"

	"classattend/internal/audit"
	"classattend/internal/config"
	"classattend/internal/logger"
	"classattend/internal/queue"
	"classattend/internal/store"
)

// Worker drains attendance change events into the audit log.
func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Env: cfg.Env, Level: cfg.LogLevel, Dir: cfg.LogDir, Name: "worker"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is drained inside the api process; the worker needs redis")
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable yet, consumer will keep retrying")
	}

	q := queue.New(cfg.QueueBackend, redisClient.Client, "attendance:changes", log)
	if err := audit.NewConsumer(q, audit.NewRepository(db.Client), log).Run(ctx); err != nil {
		log.Fatalf("audit consumer failed: %v", err)
	}
}
