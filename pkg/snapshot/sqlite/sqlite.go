// Package sqlite provides a SQLite-backed snapshot driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	version  INTEGER NOT NULL,
	saved_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_systems (
	system_id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS snapshot_records (
	system_id            TEXT NOT NULL,
	question_id          TEXT NOT NULL,
	intent_id            TEXT NOT NULL,
	embedding            BLOB NOT NULL,
	normalized_embedding BLOB,
	PRIMARY KEY (system_id, question_id)
);
`

// Driver implements snapshot.Driver using SQLite. The whole snapshot is
// rewritten inside one transaction.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the SQLite snapshot driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewDriver opens the database and creates the snapshot tables.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot tables: %w", err)
	}

	logger.Debug("sqlite snapshot driver initialized", "db_path", c.DBPath)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// Save replaces the stored snapshot with snap.
func (d *Driver) Save(ctx context.Context, snap *intent.Snapshot) error {
	if snap == nil {
		return errors.New("cannot save nil snapshot")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_systems`); err != nil {
		return fmt.Errorf("clearing systems: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta(id, version, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version, saved_at = excluded.saved_at`,
		snap.Version, snap.SavedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("writing snapshot meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_records(system_id, question_id, intent_id, embedding, normalized_embedding)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	// Systems are stored on their own so that an emptied system survives.
	for systemID := range snap.Systems {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snapshot_systems(system_id) VALUES (?)`, systemID); err != nil {
			return fmt.Errorf("inserting system %s: %w", systemID, err)
		}
	}

	for systemID, records := range snap.Systems {
		for questionID, rec := range records {
			if _, err := stmt.ExecContext(ctx,
				systemID,
				questionID,
				rec.IntentID,
				snapshot.EncodeEmbedding(rec.Embedding),
				snapshot.EncodeEmbedding(rec.NormalizedEmbedding),
			); err != nil {
				return fmt.Errorf("inserting record %s/%s: %w", systemID, questionID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("snapshot saved",
		"systems", len(snap.Systems),
		"records", snap.Records(),
	)

	return nil
}

// Load reads the stored snapshot.
func (d *Driver) Load(ctx context.Context) (*intent.Snapshot, error) {
	var (
		version int
		savedAt int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT version, saved_at FROM snapshot_meta WHERE id = 1`,
	).Scan(&version, &savedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, snapshot.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("reading snapshot meta: %w", err)
	}

	if version != intent.SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d (expected %d)", snapshot.ErrIncompatible, version, intent.SnapshotVersion)
	}

	snap := intent.NewSnapshot()
	snap.SavedAt = time.Unix(0, savedAt).UTC()

	if err := d.loadSystems(ctx, snap); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT system_id, question_id, intent_id, embedding, normalized_embedding FROM snapshot_records`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			systemID, questionID, intentID string
			raw, normalized                []byte
		)
		if err := rows.Scan(&systemID, &questionID, &intentID, &raw, &normalized); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		rec := intent.Record{IntentID: intentID}
		if rec.Embedding, err = snapshot.DecodeEmbedding(raw); err != nil {
			return nil, fmt.Errorf("record %s/%s: %w", systemID, questionID, err)
		}
		if rec.NormalizedEmbedding, err = snapshot.DecodeEmbedding(normalized); err != nil {
			return nil, fmt.Errorf("record %s/%s: %w", systemID, questionID, err)
		}

		records, ok := snap.Systems[systemID]
		if !ok {
			records = make(map[string]intent.Record)
			snap.Systems[systemID] = records
		}
		records[questionID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return snap, nil
}

func (d *Driver) loadSystems(ctx context.Context, snap *intent.Snapshot) error {
	rows, err := d.db.QueryContext(ctx, `SELECT system_id FROM snapshot_systems`)
	if err != nil {
		return fmt.Errorf("querying systems: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var systemID string
		if err := rows.Scan(&systemID); err != nil {
			return fmt.Errorf("scanning system: %w", err)
		}
		snap.Systems[systemID] = make(map[string]intent.Record)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating systems: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ snapshot.Driver = (*Driver)(nil)
