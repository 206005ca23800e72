// Package classifier wires the intent store to its persistence, reload
// source, and event stream. It is the single entry point used by the REST
// API, the MCP server, and the CLI.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/intents/pkg/eventstream"
	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/snapshot"
	"github.com/papercomputeco/intents/pkg/source"
)

const (
	// DefaultPersistTimeout bounds every snapshot save and load.
	DefaultPersistTimeout = 30 * time.Second

	// DefaultReloadConcurrency is the number of systems embedded in
	// parallel during a reload.
	DefaultReloadConcurrency = 4
)

// Config configures a Classifier.
type Config struct {
	Store    *intent.Store
	Snapshot snapshot.Driver

	// Source enables the relational reload path. Optional.
	Source source.Driver

	// Publisher receives an event after every durable train. Optional.
	Publisher eventstream.Publisher

	PersistTimeout    time.Duration
	ReloadConcurrency int

	Logger *slog.Logger
}

// Classifier trains and queries the intent store and keeps its snapshot
// current.
type Classifier struct {
	store     *intent.Store
	snapshots snapshot.Driver
	source    source.Driver
	publisher eventstream.Publisher
	logger    *slog.Logger

	persistTimeout    time.Duration
	reloadConcurrency int

	// persistMu orders snapshot writes. The snapshot is taken while holding
	// it, so a later write never carries older state than an earlier one.
	persistMu sync.Mutex
}

// TrainResult describes the batches applied by Train.
type TrainResult struct {
	Systems []eventstream.SystemChange
}

// New creates a Classifier.
func New(c Config) (*Classifier, error) {
	if c.Store == nil {
		return nil, errors.New("store is required")
	}
	if c.Snapshot == nil {
		return nil, errors.New("snapshot driver is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	persistTimeout := c.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = DefaultPersistTimeout
	}

	reloadConcurrency := c.ReloadConcurrency
	if reloadConcurrency <= 0 {
		reloadConcurrency = DefaultReloadConcurrency
	}

	return &Classifier{
		store:             c.Store,
		snapshots:         c.Snapshot,
		source:            c.Source,
		publisher:         c.Publisher,
		logger:            c.Logger,
		persistTimeout:    persistTimeout,
		reloadConcurrency: reloadConcurrency,
	}, nil
}

// Load restores the store from the last snapshot. When the snapshot is
// missing or unreadable the failure is logged and counted, and the store is
// rebuilt from the reload source if one is configured, or left empty.
func (c *Classifier) Load(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	snap, err := c.snapshots.Load(loadCtx)
	cancel()

	if err == nil {
		c.store.Restore(snap)
		c.logger.Info("restored snapshot",
			"systems", len(snap.Systems),
			"records", snap.Records(),
			"saved_at", snap.SavedAt,
		)
		return nil
	}

	reason := "unreadable"
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		reason = "missing"
	case errors.Is(err, snapshot.ErrIncompatible):
		reason = "incompatible"
	}
	metrics.Add(metricSnapshotLoadFailures, 1)

	if c.source == nil {
		c.logger.Warn("snapshot not loaded, starting with an empty store",
			"reason", reason,
			"error", err,
		)
		c.store.Restore(nil)
		return nil
	}

	c.logger.Warn("snapshot not loaded, rebuilding from source",
		"reason", reason,
		"error", err,
	)
	return c.Reload(ctx)
}

// Train validates every batch, applies them in order, and persists the
// store once. Batches are atomic per system: a failing batch leaves its
// system untouched and stops the remaining batches, while batches applied
// before it are kept and persisted.
//
// When persisting fails the returned error matches intent.ErrPersistence and
// the in-memory changes remain live.
func (c *Classifier) Train(ctx context.Context, batches []intent.Batch) (*TrainResult, error) {
	for _, b := range batches {
		if err := intent.ValidateBatch(b); err != nil {
			metrics.Add(metricTrainErrors, 1)
			return nil, err
		}
	}

	result := &TrainResult{Systems: make([]eventstream.SystemChange, 0, len(batches))}

	var applyErr error
	for _, b := range batches {
		if err := c.store.ApplyBatch(ctx, b); err != nil {
			applyErr = fmt.Errorf("system %q: %w", b.SystemID, err)
			break
		}

		change := eventstream.SystemChange{
			SystemID: b.SystemID,
			Added:    len(b.AddedItems),
			Edited:   len(b.EditedItems),
			Deleted:  len(b.DeletedItems),
		}
		if records, err := c.store.GetAll(b.SystemID); err == nil {
			change.Records = len(records)
		}
		result.Systems = append(result.Systems, change)
	}

	if len(result.Systems) == 0 {
		if applyErr != nil {
			metrics.Add(metricTrainErrors, 1)
			return nil, applyErr
		}
		return result, nil
	}

	if err := c.persist(ctx); err != nil {
		metrics.Add(metricTrainErrors, 1)
		return result, errors.Join(applyErr, err)
	}

	c.publish(ctx, result)

	if applyErr != nil {
		metrics.Add(metricTrainErrors, 1)
		return result, applyErr
	}

	metrics.Add(metricTrains, 1)
	c.logger.Info("trained",
		"systems", len(result.Systems),
	)

	return result, nil
}

// Query ranks the system's intents for question. A topK of zero or less
// yields an empty result without consulting the embedding provider.
func (c *Classifier) Query(ctx context.Context, systemID, question string, topK int) ([]intent.Prediction, error) {
	if systemID == "" {
		return nil, &intent.ValidationError{Field: "SystemID"}
	}
	if strings.TrimSpace(question) == "" {
		return nil, &intent.ValidationError{Field: "QuestionText"}
	}

	// Resolve the system before paying for an embedding.
	if err := c.store.View(systemID, func(map[string]intent.Record) error { return nil }); err != nil {
		metrics.Add(metricQueryErrors, 1)
		return nil, err
	}

	if topK <= 0 {
		return []intent.Prediction{}, nil
	}

	vec, err := c.store.Embed(ctx, question)
	if err != nil {
		metrics.Add(metricQueryErrors, 1)
		return nil, err
	}

	var predictions []intent.Prediction
	err = c.store.View(systemID, func(records map[string]intent.Record) error {
		var err error
		predictions, err = intent.Rank(vec, records, topK)
		return err
	})
	if err != nil {
		metrics.Add(metricQueryErrors, 1)
		return nil, err
	}

	metrics.Add(metricQueries, 1)
	return predictions, nil
}

// Systems lists every trained system.
func (c *Classifier) Systems() []intent.SystemInfo {
	return c.store.Systems()
}

func (c *Classifier) persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	snap := c.store.Snapshot()
	snap.SavedAt = time.Now().UTC()

	saveCtx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	defer cancel()

	if err := c.snapshots.Save(saveCtx, snap); err != nil {
		metrics.Add(metricPersistFailures, 1)
		c.logger.Error("snapshot not persisted, changes are held in memory only",
			"error", err,
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w: %w", intent.ErrPersistence, intent.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", intent.ErrPersistence, err)
	}

	c.logger.Debug("snapshot persisted",
		"systems", len(snap.Systems),
		"records", snap.Records(),
	)
	return nil
}

func (c *Classifier) publish(ctx context.Context, result *TrainResult) {
	if c.publisher == nil {
		return
	}

	event := eventstream.NewTrainedEvent(result.Systems)
	if err := c.publisher.PublishTrained(ctx, event); err != nil {
		metrics.Add(metricPublishFailures, 1)
		c.logger.Warn("failed to publish trained event",
			"event_id", event.EventID,
			"error", err,
		)
	}
}

// Close releases the snapshot driver, source, publisher, and embedder.
func (c *Classifier) Close() error {
	errs := []error{c.store.Close()}
	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}
	if c.source != nil {
		errs = append(errs, c.source.Close())
	}
	errs = append(errs, c.snapshots.Close())
	return errors.Join(errs...)
}
