package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloodlink/internal/engine"
	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/internal/scheduler"
	"bloodlink/internal/server"

	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP API and the expiry sweep",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(config)
	m := metrics.New()

	backend, err := openCachedStore(ctx, config, logger, m)
	if err != nil {
		return err
	}
	defer backend.Close()

	eng := engine.New(
		backend.store,
		notify.NewStoreNotifier(backend.store),
		logger,
		engine.WithDefaultRadius(config.DefaultRadiusKm),
		engine.WithMetrics(m),
	)

	cron := scheduler.NewCron(logger, time.UTC)
	_, err = cron.Add("expiry-sweep", config.SweepSchedule, 30*time.Second, func(ctx context.Context) error {
		_, err := eng.SweepExpirations(ctx)
		return err
	})
	if err != nil {
		return err
	}
	cron.Start()
	defer cron.Stop()

	for _, entry := range cron.Entries() {
		logger.WithField("schedule", config.SweepSchedule).WithField("next_run", entry.Next).Info("expiry sweep scheduled")
	}

	srv := server.New(config, logger, eng, m)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
