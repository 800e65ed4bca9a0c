package main

import (
	"context"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/order"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}, asynq.Config{
		Concurrency: cfg.QueueConcurrency,
		Queues:      map[string]int{cfg.QueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("kitchen task failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(events.TaskKitchenTicket, order.KitchenHandler{
		Printer: order.LogPrinter{Logger: logger},
		Logger:  logger,
	})

	logger.Info().Str("queue", cfg.QueueName).Int("concurrency", cfg.QueueConcurrency).Msg("worker starting")
	// Run blocks until SIGINT or SIGTERM and drains in-flight tasks.
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}
