// Package classifierutils builds a Classifier and its drivers from the
// persistent intents configuration.
package classifierutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/papercomputeco/intents/pkg/classifier"
	"github.com/papercomputeco/intents/pkg/config"
	"github.com/papercomputeco/intents/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/intents/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/intents/pkg/eventstream/utils"
	"github.com/papercomputeco/intents/pkg/intent"
	snapshotutils "github.com/papercomputeco/intents/pkg/snapshot/utils"
	sourceutils "github.com/papercomputeco/intents/pkg/source/utils"
)

type NewClassifierOpts struct {
	Config *config.Config

	// ConfigDir overrides .intents/ resolution for the default file
	// snapshot location.
	ConfigDir string

	Logger *slog.Logger
}

// NewClassifier wires the embedder, store, snapshot driver, reload source,
// and event publisher described by o.Config. On failure everything already
// opened is closed again.
func NewClassifier(ctx context.Context, o *NewClassifierOpts) (c *classifier.Classifier, err error) {
	cfg := o.Config
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	var opened []io.Closer
	defer func() {
		if err == nil {
			return
		}
		for i := len(opened) - 1; i >= 0; i-- {
			_ = opened[i].Close()
		}
	}()

	embedTimeout, err := parseDuration("embedding.timeout", cfg.Embedding.Timeout)
	if err != nil {
		return nil, err
	}
	persistTimeout, err := parseDuration("snapshot.timeout", cfg.Snapshot.Timeout)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Timeout:      embedTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	opened = append(opened, embedder)

	store, err := intent.NewStore(intent.StoreConfig{
		Embedder:   embedder,
		Normalize:  cfg.Classifier.Normalize == nil || *cfg.Classifier.Normalize,
		Dimensions: int(cfg.Embedding.Dimensions),
		Logger:     o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	snapshotTarget := cfg.Snapshot.Target
	if snapshotTarget == "" && (cfg.Snapshot.Provider == "" || cfg.Snapshot.Provider == "file") {
		snapshotTarget, err = dotdir.NewManager().SnapshotPath(o.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("resolving snapshot path: %w", err)
		}
	}

	snapshots, err := snapshotutils.NewSnapshotDriver(ctx, &snapshotutils.NewSnapshotDriverOpts{
		ProviderType: cfg.Snapshot.Provider,
		Target:       snapshotTarget,
		APIKey:       cfg.Snapshot.APIKey,
		Logger:       o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating snapshot driver: %w", err)
	}
	opened = append(opened, snapshots)

	src, err := sourceutils.NewSourceDriver(ctx, &sourceutils.NewSourceDriverOpts{
		ProviderType: cfg.Source.Provider,
		Target:       cfg.Source.Target,
		Logger:       o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating reload source: %w", err)
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       o.Logger,
	})
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	c, err = classifier.New(classifier.Config{
		Store:             store,
		Snapshot:          snapshots,
		Source:            src,
		Publisher:         publisher,
		PersistTimeout:    persistTimeout,
		ReloadConcurrency: int(cfg.Classifier.ReloadConcurrency),
		Logger:            o.Logger,
	})
	if err != nil {
		_ = publisher.Close()
		if src != nil {
			_ = src.Close()
		}
		return nil, err
	}

	return c, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
