package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/temperature-logger/internal/api/http"
	"github.com/i474232898/temperature-logger/internal/config"
	"github.com/i474232898/temperature-logger/internal/logging"
	"github.com/i474232898/temperature-logger/internal/metrics"
	"github.com/i474232898/temperature-logger/internal/mirror"
	"github.com/i474232898/temperature-logger/internal/scheduler"
	"github.com/i474232898/temperature-logger/internal/store"
	"github.com/i474232898/temperature-logger/internal/telemetry"
)

func newServeCommand() *cobra.Command {
	var ephemeral bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(ephemeral)
		},
	}
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep readings in memory only, without a data file")
	return cmd
}

func runServe(ephemeral bool) error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer log.Close()

	m := metrics.New()

	// Store: the data file is created when absent and must parse, otherwise startup fails.
	var (
		repo     telemetry.Repository
		verifier scheduler.Verifier
	)
	if ephemeral {
		log.Warnw("running with an in-memory store; readings are lost on exit")
		repo = store.NewMemoryStore(time.Now())
	} else {
		fileStore, err := store.NewFileStore(cfg.DataFile, log.WithComponent("store"), m)
		if err != nil {
			log.WithError(err).Errorw("failed to load data file", "path", cfg.DataFile)
			return err
		}
		repo = fileStore
		verifier = fileStore
		log.Infow("store ready", "path", fileStore.Path(), "readings", repo.Count(), "lastReset", repo.LastReset())
	}

	// Optional mirror of accepted readings.
	dispatcher := mirror.NewDispatcher(buildSinks(cfg), mirror.Options{
		QueueSize: cfg.MirrorQueueSize,
		Logger:    log.WithComponent("mirror"),
		Metrics:   m,
	})
	dispatcher.Start()

	service := telemetry.NewService(repo,
		telemetry.WithPublisher(dispatcher),
		telemetry.WithRecorder(m),
	)

	// Background integrity check of the data file.
	sched := scheduler.New(verifier, cfg.IntegrityCheckInterval, log.WithComponent("scheduler"), m)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.AppConfig{
		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   true,
		Metrics:     m,
	})
	httpapi.RegisterRoutes(app, service, httpapi.Options{
		PublicDir: cfg.PublicDir,
		Health:    sched,
		Metrics:   m,
	})

	listenErr := make(chan error, 1)
	go func() {
		log.Infow("server listening", "port", cfg.Port, "dataFile", cfg.DataFile, "mirrors", dispatcher.Sinks())
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-listenErr:
		if serveErr != nil {
			log.WithError(serveErr).Errorw("fiber server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Errorw("error during shutdown")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.WithError(err).Errorw("error closing mirror")
	}
	return serveErr
}

func buildSinks(cfg *config.AppConfig) []mirror.Sink {
	var sinks []mirror.Sink
	if cfg.Influx.Enabled() {
		sinks = append(sinks, mirror.NewInfluxSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket))
	}
	if cfg.Kafka.Enabled() {
		sinks = append(sinks, mirror.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	return sinks
}
