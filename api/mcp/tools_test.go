package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/logger"
)

var _ = Describe("Tools", func() {
	var (
		fake   *fakeClassifier
		server *Server
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeClassifier{
			predictions: []intent.Prediction{
				{IntentID: "payments", Confidence: 1},
				{IntentID: "hours", Confidence: 0.5},
			},
			systems: []intent.SystemInfo{{SystemID: "bank", Questions: 3, Intents: 2}},
		}

		var err error
		server, err = NewServer(Config{Classifier: fake, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	textOf := func(res *mcp.CallToolResult) string {
		Expect(res.Content).To(HaveLen(1))
		text, ok := res.Content[0].(*mcp.TextContent)
		Expect(ok).To(BeTrue())
		return text.Text
	}

	Describe("classify_intent", func() {
		It("returns ranked predictions", func() {
			res, out, err := server.handleClassify(ctx, nil, ClassifyInput{SystemID: "bank", Question: "pay", TopK: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Predictions).To(HaveLen(2))
			Expect(out.Predictions[0].IntentID).To(Equal("payments"))
			Expect(textOf(res)).To(ContainSubstring(`"system_id":"bank"`))
			Expect(fake.lastTopK).To(Equal(2))
		})

		It("defaults top_k", func() {
			_, _, err := server.handleClassify(ctx, nil, ClassifyInput{SystemID: "bank", Question: "pay"})
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.lastTopK).To(Equal(defaultTopK))
		})

		It("reports classifier failures as tool errors", func() {
			fake.err = intent.ErrUnknownSystem

			res, _, err := server.handleClassify(ctx, nil, ClassifyInput{SystemID: "nobody", Question: "pay"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("system not found"))
		})
	})

	Describe("list_systems", func() {
		It("lists trained systems", func() {
			res, out, err := server.handleListSystems(ctx, nil, ListSystemsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(1))
			Expect(out.Systems[0].SystemID).To(Equal("bank"))
			Expect(textOf(res)).To(ContainSubstring(`"count":1`))
		})
	})
})
