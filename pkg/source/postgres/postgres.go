// Package postgres provides a PostgreSQL-backed reload source using pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	retry "github.com/sethvargo/go-retry"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/source"
)

// Driver implements source.Driver using PostgreSQL.
type Driver struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDriver connects to PostgreSQL, retrying the initial ping.
func NewDriver(ctx context.Context, connStr string, logger *slog.Logger) (*Driver, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			logger.Debug("waiting for postgres", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Driver{
		pool:   pool,
		logger: logger,
	}, nil
}

// ListDefaultVersionQuestions implements source.Driver.
func (d *Driver) ListDefaultVersionQuestions(ctx context.Context) ([]intent.SourceQuestion, error) {
	rows, err := d.pool.Query(ctx, source.DefaultVersionQuestionsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying source questions: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (intent.SourceQuestion, error) {
		var q intent.SourceQuestion
		err := row.Scan(&q.SystemID, &q.QuestionID, &q.QuestionText, &q.IntentID)
		return q, err
	})
	if err != nil {
		return nil, fmt.Errorf("reading source questions: %w", err)
	}

	d.logger.Debug("listed source questions", "questions", len(out))
	return out, nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

var _ source.Driver = (*Driver)(nil)
