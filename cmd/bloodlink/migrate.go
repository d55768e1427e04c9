package main

import (
	"context"
	"fmt"

	"bloodlink/internal/db"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create the postgres schema and tables",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "print",
			Usage: "Print the schema instead of applying it",
		},
	},
	Action: func(c *cli.Context) error {
		if c.Bool("print") {
			fmt.Println(db.Schema())
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.StoreBackend != storeBackendPostgres {
			return fmt.Errorf("migrate only applies to STORE_BACKEND=postgres")
		}

		logger := newLogger(cfg)
		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool, cfg.DatabaseSchema); err != nil {
			return err
		}

		logger.WithField("schema", cfg.DatabaseSchema).Info("schema migrated")
		return nil
	},
}
