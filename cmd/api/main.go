package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"notify-pipeline/internal/config"
	httpapi "notify-pipeline/internal/http"
	"notify-pipeline/internal/logging"
	"notify-pipeline/internal/pipeline"
	"notify-pipeline/internal/preferences"
	"notify-pipeline/internal/queue"
	"notify-pipeline/internal/routing"
	"notify-pipeline/internal/store"
	"notify-pipeline/internal/sweeper"
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := routing.Load(cfg.RoutingFile)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, logger, cfg.Store())
	if err != nil {
		return err
	}
	defer st.Close()

	var outbox queue.Outbox = queue.NopOutbox{}
	if cfg.KafkaEnabled() {
		prod, err := queue.NewProducer(cfg.KafkaBrokers, cfg.Topics())
		if err != nil {
			return err
		}
		defer prod.Close()
		outbox = prod
	}

	prefs := preferences.New(table)
	p := pipeline.New(logger, table, prefs, st, outbox, pipeline.Options{
		DedupWindow: cfg.DedupWindow,
		DedupFields: cfg.DedupFields,
	})

	if cfg.SweepSchedule != "off" {
		sw, err := sweeper.New(logger, cfg.SweepSchedule, p.SweepTargets()...)
		if err != nil {
			return err
		}
		sw.Start()
		defer sw.Stop()
	}

	app := &httpapi.App{
		Logger:     logger.Named("http"),
		Pipeline:   p,
		Store:      st,
		Routing:    table,
		Recipients: prefs,
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreBackend),
			zap.Bool("kafka", cfg.KafkaEnabled()),
			zap.Strings("event_types", table.SupportedEvents()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down")
	return srv.Shutdown(shutdownCtx)
}
