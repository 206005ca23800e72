// Package file provides a snapshot.Driver that keeps the whole store in a
// single JSON file replaced atomically on every save.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	retry "github.com/sethvargo/go-retry"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/snapshot"
)

// formatName tags files written by this driver so an unrelated JSON file at
// the target path is rejected instead of loaded as an empty store.
const formatName = "intents-snapshot"

const (
	defaultRetries   = 3
	defaultRetryBase = 50 * time.Millisecond
)

// Driver implements snapshot.Driver on the local filesystem.
type Driver struct {
	path   string
	logger *slog.Logger

	retries   uint64
	retryBase time.Duration
}

// Config holds configuration for the file driver.
type Config struct {
	// Path is the snapshot file location. Its directory is created on save.
	Path string
}

type envelope struct {
	Format string `json:"format"`
	*intent.Snapshot
}

// NewDriver creates a file snapshot driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Path == "" {
		return nil, errors.New("snapshot path is required")
	}

	path, err := filepath.Abs(c.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot path: %w", err)
	}

	return &Driver{
		path:      path,
		logger:    logger,
		retries:   defaultRetries,
		retryBase: defaultRetryBase,
	}, nil
}

// Path returns the absolute snapshot file path.
func (d *Driver) Path() string {
	return d.path
}

// Save writes snap to a temporary file next to the target, syncs it, and
// renames it over the target. Transient failures are retried.
func (d *Driver) Save(ctx context.Context, snap *intent.Snapshot) error {
	if snap == nil {
		return errors.New("cannot save nil snapshot")
	}

	data, err := json.Marshal(envelope{Format: formatName, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	backoff := retry.WithMaxRetries(d.retries, retry.NewExponential(d.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.writeAtomic(ctx, data); err != nil {
			if errors.Is(err, fs.ErrPermission) || ctx.Err() != nil {
				return err
			}
			d.logger.Debug("retrying snapshot write", "path", d.path, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing snapshot %s: %w", d.path, err)
	}

	d.logger.Debug("snapshot saved",
		"path", d.path,
		"systems", len(snap.Systems),
		"bytes", len(data),
	)

	return nil
}

func (d *Driver) writeAtomic(ctx context.Context, data []byte) error {
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}

// Load reads and decodes the snapshot file.
func (d *Driver) Load(ctx context.Context) (*intent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", d.path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", snapshot.ErrIncompatible, d.path, err)
	}

	if env.Format != formatName || env.Snapshot == nil {
		return nil, fmt.Errorf("%w: %s is not an intents snapshot", snapshot.ErrIncompatible, d.path)
	}
	if env.Version != intent.SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d (expected %d)", snapshot.ErrIncompatible, env.Version, intent.SnapshotVersion)
	}
	if env.Systems == nil {
		env.Systems = make(map[string]map[string]intent.Record)
	}

	return env.Snapshot, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

var _ snapshot.Driver = (*Driver)(nil)
