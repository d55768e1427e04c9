package db

import (
	"context"
	"os"
	"strings"
	"testing"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every column the repositories select must exist in the schema.
func TestSchemaCoversRecordColumns(t *testing.T) {
	schema := Schema()

	tables := map[string]any{
		"donors":             types.Donor{},
		"emergency_requests": types.EmergencyRequest{},
		"notifications":      types.Notification{},
	}

	for table, record := range tables {
		start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
		require.GreaterOrEqual(t, start, 0, table)
		end := strings.Index(schema[start:], ");")
		require.Greater(t, end, 0, table)
		ddl := schema[start : start+end]

		for _, column := range utils.StructTagValues(record) {
			assert.Contains(t, ddl, "\n    "+column+" ", "%s.%s", table, column)
		}
	}
}

func TestMigrate(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := &types.Config{DatabaseURL: url, DatabaseSchema: "bloodlink_test"}

	pool, err := Connect(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, Migrate(ctx, pool, cfg.DatabaseSchema))
	require.NoError(t, Migrate(ctx, pool, cfg.DatabaseSchema))
}
