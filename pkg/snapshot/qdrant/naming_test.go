package qdrant

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/intents/pkg/snapshot"
)

var _ = Describe("collection naming", func() {
	It("round-trips version and save time", func() {
		at := time.Date(2026, 7, 1, 8, 30, 0, 123, time.UTC)
		name := collectionName("intents", 2, at)
		Expect(name).To(HavePrefix("intents_v2_"))

		version, savedAt, err := parseCollectionName("intents", name)
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(2))
		Expect(savedAt.Equal(at)).To(BeTrue())
	})

	It("handles aliases containing underscores", func() {
		name := collectionName("bank_intents", 2, time.Unix(0, 42))
		version, _, err := parseCollectionName("bank_intents", name)
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(2))
	})

	DescribeTable("rejects foreign collections",
		func(name string) {
			_, _, err := parseCollectionName("intents", name)
			Expect(err).To(MatchError(snapshot.ErrIncompatible))
		},
		Entry("other prefix", "memes_v2_1"),
		Entry("missing timestamp", "intents_v2"),
		Entry("non-numeric version", "intents_vX_1"),
		Entry("non-numeric timestamp", "intents_v2_abc"),
	)

	It("derives stable point IDs per system and question", func() {
		Expect(pointID("bank", "Q1")).To(Equal(pointID("bank", "Q1")))
		Expect(pointID("bank", "Q1")).NotTo(Equal(pointID("shop", "Q1")))
		Expect(pointID("ab", "c")).NotTo(Equal(pointID("a", "bc")))
	})
})

var _ = Describe("client config", func() {
	DescribeTable("parses targets",
		func(target, host string, port int, tls bool) {
			cfg, err := clientConfig(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Host).To(Equal(host))
			Expect(cfg.Port).To(Equal(port))
			Expect(cfg.UseTLS).To(Equal(tls))
		},
		Entry("host only", "qdrant", "qdrant", DefaultPort, false),
		Entry("host and port", "localhost:6400", "localhost", 6400, false),
		Entry("https URL", "https://qdrant.internal:6334", "qdrant.internal", 6334, true),
		Entry("http URL without port", "http://qdrant.internal", "qdrant.internal", DefaultPort, false),
	)

	It("requires a target", func() {
		_, err := clientConfig("")
		Expect(err).To(HaveOccurred())
	})
})
