package main

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/engine"
	"bloodlink/internal/notify"

	"github.com/urfave/cli/v2"
)

var sweepCommand = &cli.Command{
	Name:  "sweep",
	Usage: "Expire every open request past its deadline and exit",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		backend, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer backend.Close()

		eng := engine.New(backend.store, notify.NewStoreNotifier(backend.store), logger)

		expired, err := eng.SweepExpirations(ctx)
		if err != nil {
			return err
		}

		for _, req := range expired {
			fmt.Printf("%s\t%s\t%s\n", req.ID, req.BloodType, req.ExpiresAt.Format(time.RFC3339))
		}
		logger.WithField("count", len(expired)).Info("sweep complete")

		return nil
	},
}
