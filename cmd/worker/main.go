package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"notify-pipeline/internal/config"
	"notify-pipeline/internal/logging"
	"notify-pipeline/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.KafkaEnabled() {
		return errors.New("worker: KAFKA_BROKERS is required")
	}
	brokers := queue.SplitCSV(cfg.KafkaBrokers)
	topics := cfg.Topics()

	d, err := buildDispatcher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	notifications := queue.NewConsumer(brokers, topics.Notifications, cfg.KafkaGroupID)
	defer notifications.Close()
	escalations := queue.NewConsumer(brokers, topics.Escalations, cfg.KafkaGroupID)
	defer escalations.Close()

	logger.Info("Worker started",
		zap.String("worker_id", cfg.WorkerID),
		zap.Strings("brokers", brokers),
		zap.String("notifications_topic", topics.Notifications),
		zap.String("escalations_topic", topics.Escalations),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.ConsumeNotifications(ctx, notifications) })
	g.Go(func() error { return d.ConsumeEscalations(ctx, escalations) })
	return g.Wait()
}
