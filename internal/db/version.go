package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/persistorai/depthcue/internal/db/migrations"
	"github.com/persistorai/depthcue/internal/dbpool"
)

// SchemaVersion returns the highest migration version embedded in the
// binary, taken from the numeric prefix goose reads ("003_..." is 3).
func SchemaVersion() int {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	highest := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}

		prefix, _, _ := strings.Cut(e.Name(), "_")
		if v, err := strconv.Atoi(prefix); err == nil && v > highest {
			highest = v
		}
	}

	return highest
}

// AppliedVersion returns the highest migration goose recorded as applied.
func AppliedVersion(ctx context.Context, pool *dbpool.Pool) (int, error) {
	var v int64
	err := pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied`,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("reading applied schema version: %w", err)
	}

	return int(v), nil
}
