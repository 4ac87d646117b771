// Package store provides the PostgreSQL data access layer for collected
// experiment results.
//
// Each store owns one table group (trial results, surveys, sessions) and
// embeds shared helpers via Base. Stores never import each other.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/dbpool"
)

const defaultQueryTimeout = 15 * time.Second

// maxListLimit caps list queries.
const maxListLimit = 1000

// Base contains shared dependencies for all stores.
type Base struct {
	Pool *dbpool.Pool
	Log  logrus.FieldLogger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// isUniqueViolation reports whether err is a PostgreSQL unique violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// clampLimit bounds a caller supplied limit to (0, maxListLimit].
func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}

	return limit
}
