// Package sqlite provides a SQLite-backed reload source.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/source"
)

// Driver implements source.Driver using SQLite.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDriver opens the database at dbPath.
func NewDriver(dbPath string, logger *slog.Logger) (*Driver, error) {
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return NewDriverFromDB(db, logger), nil
}

// NewDriverFromDB wraps an already opened database.
func NewDriverFromDB(db *sql.DB, logger *slog.Logger) *Driver {
	return &Driver{
		db:     db,
		logger: logger,
	}
}

// ListDefaultVersionQuestions implements source.Driver.
func (d *Driver) ListDefaultVersionQuestions(ctx context.Context) ([]intent.SourceQuestion, error) {
	rows, err := d.db.QueryContext(ctx, source.DefaultVersionQuestionsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying source questions: %w", err)
	}
	defer rows.Close()

	var out []intent.SourceQuestion
	for rows.Next() {
		var q intent.SourceQuestion
		if err := rows.Scan(&q.SystemID, &q.QuestionID, &q.QuestionText, &q.IntentID); err != nil {
			return nil, fmt.Errorf("scanning source question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source questions: %w", err)
	}

	d.logger.Debug("listed source questions", "questions", len(out))
	return out, nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ source.Driver = (*Driver)(nil)
