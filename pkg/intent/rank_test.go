package intent_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/intents/pkg/intent"
)

var _ = Describe("Rank", func() {
	query := []float32{1, 0}

	It("collapses questions sharing an intent to their best score", func() {
		records := map[string]intent.Record{
			"Q1": {IntentID: "A", Embedding: []float32{1, 0}},
			"Q2": {IntentID: "A", Embedding: []float32{2, 0}},
			"Q3": {IntentID: "B", Embedding: []float32{0, 1}},
		}

		preds, err := intent.Rank(query, records, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(preds).To(HaveLen(2))
		Expect(preds[0].IntentID).To(Equal("A"))
		Expect(preds[0].Confidence).To(BeNumerically("~", 1.0, 1e-6))
		Expect(preds[1].IntentID).To(Equal("B"))
		Expect(preds[1].Confidence).To(BeNumerically("~", 0.5, 1e-6))
	})

	It("keeps scanning past repeated intents to fill top_k", func() {
		records := map[string]intent.Record{
			"a1": {IntentID: "A", Embedding: []float32{1, 0}},
			"a2": {IntentID: "A", Embedding: []float32{0.99, 0.1}},
			"a3": {IntentID: "A", Embedding: []float32{0.98, 0.2}},
			"b1": {IntentID: "B", Embedding: []float32{0, 1}},
			"c1": {IntentID: "C", Embedding: []float32{-1, 0}},
		}

		preds, err := intent.Rank(query, records, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(preds).To(HaveLen(3))
		Expect([]string{preds[0].IntentID, preds[1].IntentID, preds[2].IntentID}).
			To(Equal([]string{"A", "B", "C"}))
		Expect(preds[2].Confidence).To(BeNumerically("~", 0.0, 1e-6))
	})

	It("returns every distinct intent when top_k exceeds them", func() {
		records := map[string]intent.Record{
			"Q1": {IntentID: "A", Embedding: []float32{1, 0}},
			"Q2": {IntentID: "B", Embedding: []float32{0, 1}},
		}

		preds, err := intent.Rank(query, records, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(preds).To(HaveLen(2))
	})

	It("returns an empty list for zero or negative top_k", func() {
		records := map[string]intent.Record{
			"Q1": {IntentID: "A", Embedding: []float32{1, 0}},
		}

		for _, k := range []int{0, -3} {
			preds, err := intent.Rank(query, records, k)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds).NotTo(BeNil())
			Expect(preds).To(BeEmpty())
		}
	})

	It("reports an empty corpus instead of failing on vector math", func() {
		_, err := intent.Rank(query, map[string]intent.Record{}, 1)
		Expect(err).To(MatchError(intent.ErrEmptyCorpus))
	})

	It("scores zero vectors without dividing by zero", func() {
		records := map[string]intent.Record{
			"Q1": {IntentID: "A", Embedding: []float32{0, 0}},
		}

		preds, err := intent.Rank([]float32{0, 0}, records, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(preds[0].Confidence).To(BeNumerically("~", 0.5, 1e-6))
	})

	It("lets the normalized companion embedding win for its intent", func() {
		records := map[string]intent.Record{
			"Q1": {IntentID: "A", Embedding: []float32{0, 1}, NormalizedEmbedding: []float32{1, 0}},
			"Q2": {IntentID: "B", Embedding: []float32{0.7, 0.7}},
		}

		preds, err := intent.Rank(query, records, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(preds[0].IntentID).To(Equal("A"))
		Expect(preds[0].Confidence).To(BeNumerically("~", 1.0, 1e-6))
		Expect(preds[1].IntentID).To(Equal("B"))
	})

	It("breaks ties deterministically by question ID", func() {
		records := map[string]intent.Record{
			"q2": {IntentID: "second", Embedding: []float32{1, 0}},
			"q1": {IntentID: "first", Embedding: []float32{1, 0}},
			"q3": {IntentID: "third", Embedding: []float32{1, 0}},
		}

		for range 20 {
			preds, err := intent.Rank(query, records, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(preds).To(Equal([]intent.Prediction{{IntentID: "first", Confidence: preds[0].Confidence}}))
		}
	})

	It("rejects embeddings of a different dimension", func() {
		records := map[string]intent.Record{
			"Q1": {IntentID: "A", Embedding: []float32{1, 0, 0}},
		}

		_, err := intent.Rank(query, records, 1)
		Expect(err).To(MatchError(intent.ErrDependency))
		Expect(err.Error()).To(ContainSubstring("dimension mismatch"))
	})
})
