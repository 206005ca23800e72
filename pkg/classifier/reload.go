package classifier

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/intents/pkg/intent"
)

// Reload rebuilds the whole store from the reload source. Every system's
// default-version questions become one add-only batch applied to a fresh
// store; the result replaces the live store only when all batches succeed,
// and is then persisted.
func (c *Classifier) Reload(ctx context.Context) error {
	if c.source == nil {
		return fmt.Errorf("%w: no reload source configured", intent.ErrValidation)
	}

	questions, err := c.source.ListDefaultVersionQuestions(ctx)
	if err != nil {
		metrics.Add(metricReloadFailures, 1)
		return fmt.Errorf("listing source questions: %w", err)
	}

	batches := GroupBatches(questions)
	fresh := c.store.NewEmpty()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.reloadConcurrency)
	for _, b := range batches {
		g.Go(func() error {
			if err := fresh.ApplyBatch(gctx, b); err != nil {
				return fmt.Errorf("system %q: %w", b.SystemID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.Add(metricReloadFailures, 1)
		return fmt.Errorf("reloading from source: %w", err)
	}

	snap := fresh.Snapshot()
	c.store.Restore(snap)
	metrics.Add(metricReloads, 1)

	c.logger.Info("reloaded from source",
		"systems", len(snap.Systems),
		"records", snap.Records(),
	)

	return c.persist(ctx)
}

// GroupBatches turns source rows into one add-only batch per system, in the
// order systems first appear.
func GroupBatches(questions []intent.SourceQuestion) []intent.Batch {
	index := make(map[string]int)
	var batches []intent.Batch

	for _, q := range questions {
		i, ok := index[q.SystemID]
		if !ok {
			i = len(batches)
			index[q.SystemID] = i
			batches = append(batches, intent.Batch{SystemID: q.SystemID})
		}
		batches[i].AddedItems = append(batches[i].AddedItems, intent.Question{
			QuestionID:   q.QuestionID,
			IntentID:     q.IntentID,
			QuestionText: q.QuestionText,
		})
	}

	return batches
}
