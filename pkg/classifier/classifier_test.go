package classifier_test

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/intents/pkg/classifier"
	"github.com/papercomputeco/intents/pkg/embeddings"
	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/logger"
	"github.com/papercomputeco/intents/pkg/snapshot"
	"github.com/papercomputeco/intents/pkg/snapshot/file"
	testutils "github.com/papercomputeco/intents/pkg/utils/test"
)

func q(id, intentID, text string) intent.Question {
	return intent.Question{QuestionID: id, IntentID: intentID, QuestionText: text}
}

var _ = Describe("Classifier", func() {
	var (
		ctx       context.Context
		embedder  *testutils.MockEmbedder
		snapshots *testutils.MockSnapshotDriver
		publisher *testutils.MockPublisher
		store     *intent.Store
		c         *classifier.Classifier
	)

	newClassifier := func(src *testutils.MockSource) *classifier.Classifier {
		cfg := classifier.Config{
			Store:     store,
			Snapshot:  snapshots,
			Publisher: publisher,
			Logger:    logger.Nop(),
		}
		if src != nil {
			cfg.Source = src
		}
		cl, err := classifier.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return cl
	}

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings["how do I pay"] = []float32{1, 0}
		embedder.Embeddings["payment methods"] = []float32{0.95, 0.05}
		embedder.Embeddings["opening hours"] = []float32{0, 1}
		embedder.Embeddings["can I pay by card"] = []float32{0.9, 0.1}

		snapshots = testutils.NewMockSnapshotDriver()
		publisher = testutils.NewMockPublisher()

		var err error
		store, err = intent.NewStore(intent.StoreConfig{Embedder: embedder, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		c = newClassifier(nil)
	})

	It("requires a store, snapshot driver and logger", func() {
		_, err := classifier.New(classifier.Config{Snapshot: snapshots, Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
		_, err = classifier.New(classifier.Config{Store: store, Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
		_, err = classifier.New(classifier.Config{Store: store, Snapshot: snapshots})
		Expect(err).To(HaveOccurred())
	})

	Describe("Train and Query", func() {
		BeforeEach(func() {
			_, err := c.Train(ctx, []intent.Batch{{
				SystemID: "bank",
				AddedItems: []intent.Question{
					q("Q1", "A", "how do I pay"),
					q("Q2", "A", "payment methods"),
					q("Q3", "B", "opening hours"),
				},
			}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns one prediction per intent, best first", func() {
			preds, err := c.Query(ctx, "bank", "can I pay by card", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds).To(HaveLen(2))
			Expect(preds[0].IntentID).To(Equal("A"))
			Expect(preds[1].IntentID).To(Equal("B"))
			Expect(preds[0].Confidence).To(BeNumerically(">", preds[1].Confidence))
		})

		It("stops predicting an intent once all its questions are deleted", func() {
			_, err := c.Train(ctx, []intent.Batch{{
				SystemID:     "bank",
				DeletedItems: []intent.Question{{QuestionID: "Q1"}, {QuestionID: "Q2"}},
			}})
			Expect(err).NotTo(HaveOccurred())

			preds, err := c.Query(ctx, "bank", "can I pay by card", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds).To(HaveLen(1))
			Expect(preds[0].IntentID).To(Equal("B"))
		})

		It("keeps predicting an intent through its remaining questions", func() {
			_, err := c.Train(ctx, []intent.Batch{{
				SystemID:     "bank",
				DeletedItems: []intent.Question{{QuestionID: "Q1"}},
			}})
			Expect(err).NotTo(HaveOccurred())

			preds, err := c.Query(ctx, "bank", "how do I pay", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds).To(HaveLen(2))
			Expect(preds[0].IntentID).To(Equal("A"))
			Expect(preds[1].IntentID).To(Equal("B"))
		})

		It("reports an empty corpus once every question is deleted", func() {
			_, err := c.Train(ctx, []intent.Batch{{
				SystemID:     "bank",
				DeletedItems: []intent.Question{{QuestionID: "Q1"}, {QuestionID: "Q2"}, {QuestionID: "Q3"}},
			}})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.Query(ctx, "bank", "how do I pay", 1)
			Expect(err).To(MatchError(intent.ErrEmptyCorpus))
		})

		It("persists after every train", func() {
			Expect(snapshots.Saves).To(Equal(1))
			saved := snapshots.Saved()
			Expect(saved.Systems["bank"]).To(HaveLen(3))
			Expect(saved.SavedAt).NotTo(BeZero())
		})

		It("publishes a trained event after persisting", func() {
			events := publisher.Published()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Systems).To(HaveLen(1))
			Expect(events[0].Systems[0].SystemID).To(Equal("bank"))
			Expect(events[0].Systems[0].Added).To(Equal(3))
			Expect(events[0].Systems[0].Records).To(Equal(3))
		})

		It("returns an empty result for non-positive topK without embedding", func() {
			calls := embedder.CallCount()
			preds, err := c.Query(ctx, "bank", "how do I pay", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds).To(BeEmpty())
			Expect(embedder.CallCount()).To(Equal(calls))
		})

		It("lists trained systems", func() {
			Expect(c.Systems()).To(Equal([]intent.SystemInfo{
				{SystemID: "bank", Questions: 3, Intents: 2},
			}))
		})
	})

	It("rejects queries for unknown systems", func() {
		_, err := c.Query(ctx, "nobody", "how do I pay", 1)
		Expect(err).To(MatchError(intent.ErrUnknownSystem))
		Expect(embedder.CallCount()).To(BeZero())
	})

	It("rejects queries without a system", func() {
		_, err := c.Query(ctx, "", "how do I pay", 1)
		Expect(err).To(MatchError(intent.ErrValidation))
	})

	It("rejects blank questions without embedding", func() {
		_, err := c.Query(ctx, "bank", "  ", 1)
		Expect(err).To(MatchError(intent.ErrValidation))
		Expect(embedder.CallCount()).To(BeZero())
	})

	It("validates every batch before applying any", func() {
		_, err := c.Train(ctx, []intent.Batch{
			{SystemID: "bank", AddedItems: []intent.Question{q("Q1", "A", "how do I pay")}},
			{SystemID: "shop", AddedItems: []intent.Question{{QuestionID: "Q1"}}},
		})
		Expect(err).To(MatchError(intent.ErrValidation))
		Expect(c.Systems()).To(BeEmpty())
		Expect(snapshots.Saves).To(BeZero())
		Expect(embedder.CallCount()).To(BeZero())
	})

	It("treats an empty train as a no-op", func() {
		res, err := c.Train(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Systems).To(BeEmpty())
		Expect(snapshots.Saves).To(BeZero())
	})

	It("keeps and persists batches applied before a failing one", func() {
		embedder.FailOn = "opening hours"

		res, err := c.Train(ctx, []intent.Batch{
			{SystemID: "bank", AddedItems: []intent.Question{q("Q1", "A", "how do I pay")}},
			{SystemID: "shop", AddedItems: []intent.Question{q("Q1", "B", "opening hours")}},
		})
		Expect(err).To(MatchError(intent.ErrDependency))
		Expect(res.Systems).To(HaveLen(1))

		Expect(c.Systems()).To(HaveLen(1))
		Expect(snapshots.Saved().Systems).To(HaveKey("bank"))
		Expect(snapshots.Saved().Systems).NotTo(HaveKey("shop"))
	})

	It("surfaces embedding timeouts as ErrTimeout", func() {
		embedder.FailOn = "how do I pay"
		embedder.Err = embeddings.ErrTimeout

		_, err := c.Train(ctx, []intent.Batch{
			{SystemID: "bank", AddedItems: []intent.Question{q("Q1", "A", "how do I pay")}},
		})
		Expect(err).To(MatchError(intent.ErrTimeout))
		Expect(snapshots.Saves).To(BeZero())
	})

	It("surfaces persistence failures but keeps the trained state", func() {
		snapshots.SaveErr = errors.New("disk full")

		_, err := c.Train(ctx, []intent.Batch{
			{SystemID: "bank", AddedItems: []intent.Question{q("Q1", "A", "how do I pay")}},
		})
		Expect(err).To(MatchError(intent.ErrPersistence))
		Expect(err.Error()).To(ContainSubstring("disk full"))
		Expect(publisher.Published()).To(BeEmpty())

		preds, err := c.Query(ctx, "bank", "how do I pay", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(preds[0].IntentID).To(Equal("A"))
	})

	It("does not fail trains when publishing fails", func() {
		publisher.Err = errors.New("broker down")
		before := classifier.Counter("publish_failures")

		_, err := c.Train(ctx, []intent.Batch{
			{SystemID: "bank", AddedItems: []intent.Question{q("Q1", "A", "how do I pay")}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(classifier.Counter("publish_failures")).To(Equal(before + 1))
	})

	Describe("Load", func() {
		It("restores the saved snapshot", func() {
			snap := intent.NewSnapshot()
			snap.Systems["bank"] = map[string]intent.Record{
				"Q1": {IntentID: "A", Embedding: []float32{1, 0}},
			}
			Expect(snapshots.Save(ctx, snap)).To(Succeed())

			Expect(c.Load(ctx)).To(Succeed())
			preds, err := c.Query(ctx, "bank", "how do I pay", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds[0].IntentID).To(Equal("A"))
		})

		It("starts empty and counts the failure when no snapshot exists", func() {
			before := classifier.Counter("snapshot_load_failures")

			Expect(c.Load(ctx)).To(Succeed())
			Expect(c.Systems()).To(BeEmpty())
			Expect(classifier.Counter("snapshot_load_failures")).To(Equal(before + 1))
		})

		It("rebuilds from the source when the snapshot is incompatible", func() {
			snapshots.LoadErr = snapshot.ErrIncompatible
			src := testutils.NewMockSource(
				intent.SourceQuestion{SystemID: "bank", QuestionID: "Q1", QuestionText: "how do I pay", IntentID: "A"},
				intent.SourceQuestion{SystemID: "bank", QuestionID: "Q3", QuestionText: "opening hours", IntentID: "B"},
			)
			c = newClassifier(src)

			Expect(c.Load(ctx)).To(Succeed())
			Expect(src.Calls).To(Equal(1))
			Expect(c.Systems()).To(Equal([]intent.SystemInfo{
				{SystemID: "bank", Questions: 2, Intents: 2},
			}))
			Expect(snapshots.Saves).To(Equal(1))
		})

		It("survives a restart through a real snapshot file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "snapshot.json")
			driver, err := file.NewDriver(file.Config{Path: path}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			first, err := classifier.New(classifier.Config{Store: store, Snapshot: driver, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			_, err = first.Train(ctx, []intent.Batch{
				{SystemID: "bank", AddedItems: []intent.Question{
					q("Q1", "A", "how do I pay"),
					q("Q3", "B", "opening hours"),
				}},
			})
			Expect(err).NotTo(HaveOccurred())

			restarted, err := intent.NewStore(intent.StoreConfig{Embedder: embedder, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			second, err := classifier.New(classifier.Config{Store: restarted, Snapshot: driver, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Load(ctx)).To(Succeed())

			preds, err := second.Query(ctx, "bank", "opening hours", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds[0].IntentID).To(Equal("B"))
			Expect(restarted.Snapshot().Systems).To(Equal(store.Snapshot().Systems))
		})
	})
})
