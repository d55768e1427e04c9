package main

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/blood"
	"bloodlink/internal/matching"
	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var matchCommand = &cli.Command{
	Name:      "match",
	Usage:     "Print the ranked candidate donors for a request without changing it",
	ArgsUsage: "<request-id>",
	Flags: []cli.Flag{
		&cli.Float64Flag{
			Name:    "radius",
			Aliases: []string{"r"},
			Usage:   "Search radius in km (0 uses DEFAULT_RADIUS_KM)",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of candidates to print (0 prints all)",
		},
	},
	Action: func(c *cli.Context) error {
		requestID := c.Args().First()
		if requestID == "" {
			return fmt.Errorf("request id is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		backend, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer backend.Close()

		req, err := backend.store.Request(ctx, requestID)
		if err != nil {
			return err
		}

		donors, err := loadDonorsFor(ctx, backend, req)
		if err != nil {
			return err
		}

		radius := c.Float64("radius")
		if radius <= 0 {
			radius = cfg.DefaultRadiusKm
		}

		candidates, err := matching.FindCandidates(req, donors, radius, time.Now())
		if err != nil {
			return err
		}

		if limit := c.Int("limit"); limit > 0 && len(candidates) > limit {
			candidates = candidates[:limit]
		}

		_, err = pp.Println(candidates)
		return err
	},
}

// loadDonorsFor narrows the donor population to compatible types in SQL
// when the store is postgres.
func loadDonorsFor(ctx context.Context, b *backend, req *types.EmergencyRequest) ([]*types.Donor, error) {
	if pg, ok := b.store.(*store.Postgres); ok {
		return pg.DonorsByBloodTypes(ctx, blood.CompatibleDonorTypes(req.BloodType))
	}
	return b.store.Donors(ctx)
}
