package main

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/seed"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the record store with a demo donor population",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg)
		ctx := context.Background()

		backend, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer backend.Close()

		logger.Info("Seeding donors...")
		seeded, err := seed.SeedDonors(ctx, logger, backend.store, time.Now())
		if err != nil {
			return fmt.Errorf("failed to seed donors: %w", err)
		}

		logger.WithField("count", seeded).Info("Donors seeded successfully")

		return nil
	},
}
