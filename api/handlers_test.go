package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/intents/pkg/classifier"
	"github.com/papercomputeco/intents/pkg/embeddings"
	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/logger"
	testutils "github.com/papercomputeco/intents/pkg/utils/test"
)

const bankTraining = `[{
	"SystemID": "bank",
	"AddedItems": [
		{"QuestionID": "q1", "IntentID": "payments", "QuestionText": "how do I pay"},
		{"QuestionID": "q2", "IntentID": "payments", "QuestionText": "payment methods"},
		{"QuestionID": "q3", "IntentID": "hours", "QuestionText": "opening hours"}
	]
}]`

var _ = Describe("handlers", func() {
	var (
		server    *Server
		embedder  *testutils.MockEmbedder
		snapshots *testutils.MockSnapshotDriver
	)

	doAs := func(contentType, method, path, body string) (int, string) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(raw)
	}

	do := func(method, path, body string) (int, string) {
		return doAs("application/json", method, path, body)
	}

	train := func(body string) {
		status, out := do(http.MethodPost, "/chatbot/train", body)
		Expect(status).To(Equal(fiber.StatusOK), out)
	}

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings["how do I pay"] = []float32{1, 0}
		embedder.Embeddings["payment methods"] = []float32{1, 0}
		embedder.Embeddings["opening hours"] = []float32{0, 1}
		embedder.Embeddings["pay please"] = []float32{1, 0}

		snapshots = testutils.NewMockSnapshotDriver()

		store, err := intent.NewStore(intent.StoreConfig{Embedder: embedder, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		svc, err := classifier.New(classifier.Config{
			Store:    store,
			Snapshot: snapshots,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{ListenAddr: ":0"}, svc, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a service and a logger", func() {
		_, err := NewServer(Config{}, nil, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("classifier service is required")))
	})

	It("answers ping", func() {
		status, body := do(http.MethodGet, "/ping", "")
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(body).To(Equal(`"pong"`))
	})

	Describe("POST /chatbot/train", func() {
		It("trains a list of batches and persists", func() {
			status, body := do(http.MethodPost, "/chatbot/train", bankTraining)
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(body).To(Equal(`"Success"`))
			Expect(snapshots.Saves).To(Equal(1))
		})

		It("accepts a single batch object", func() {
			train(`{"SystemID": "shop", "AddedItems": [{"QuestionID": "a", "IntentID": "x", "QuestionText": "opening hours"}]}`)

			_, body := do(http.MethodGet, "/chatbot/systems", "")
			Expect(body).To(ContainSubstring(`"SystemID":"shop"`))
		})

		It("decodes JSON bodies whatever their content type", func() {
			status, body := doAs("text/plain", http.MethodPost, "/chatbot/train", bankTraining)
			Expect(status).To(Equal(fiber.StatusOK), body)

			status, body = doAs("", http.MethodPost, "/chatbot/query",
				`{"SessionID": "s1", "SystemID": "bank", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusOK), body)
			Expect(body).To(ContainSubstring(`"IntentID":"payments"`))
		})

		It("rejects malformed JSON", func() {
			status, body := do(http.MethodPost, "/chatbot/train", `[{"SystemID": `)
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(body).To(ContainSubstring("bad request"))
		})

		It("rejects items missing required fields", func() {
			status, body := do(http.MethodPost, "/chatbot/train",
				`[{"SystemID": "bank", "AddedItems": [{"QuestionID": "q1", "QuestionText": "hi"}]}]`)
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(body).To(ContainSubstring("IntentID is required"))
			Expect(snapshots.Saves).To(BeZero())
		})

		It("maps embedding failures to 502", func() {
			embedder.FailOn = "opening hours"
			status, _ := do(http.MethodPost, "/chatbot/train", bankTraining)
			Expect(status).To(Equal(fiber.StatusBadGateway))
		})

		It("maps embedding timeouts to 504", func() {
			embedder.FailOn = "opening hours"
			embedder.Err = embeddings.ErrTimeout
			status, _ := do(http.MethodPost, "/chatbot/train", bankTraining)
			Expect(status).To(Equal(fiber.StatusGatewayTimeout))
		})

		It("reports an unpersisted model with 500", func() {
			snapshots.SaveErr = errors.New("disk full")
			status, body := do(http.MethodPost, "/chatbot/train", bankTraining)
			Expect(status).To(Equal(fiber.StatusInternalServerError))
			Expect(body).To(ContainSubstring("model updated in memory but not persisted"))

			status, _ = do(http.MethodPost, "/chatbot/query", `{"SystemID": "bank", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusOK))
		})
	})

	Describe("POST /chatbot/query", func() {
		BeforeEach(func() {
			train(bankTraining)
		})

		It("returns the best intent with the session echoed", func() {
			status, body := do(http.MethodPost, "/chatbot/query",
				`{"SessionID": "s-1", "SystemID": "bank", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusOK))

			var resp QueryResponse
			Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
			Expect(resp.PredictedIntent.IntentID).To(Equal("payments"))
			Expect(resp.PredictedIntent.SessionID).To(Equal("s-1"))
			Expect(resp.PredictedIntent.Confidence).To(BeNumerically("~", 1.0, 1e-6))
		})

		It("returns 404 for an unknown system", func() {
			status, body := do(http.MethodPost, "/chatbot/query", `{"SystemID": "nobody", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusNotFound))
			Expect(body).To(ContainSubstring("system not found"))
		})

		It("returns 404 once every question is deleted", func() {
			train(`[{"SystemID": "bank", "DeletedItems": [{"QuestionID": "q1"}, {"QuestionID": "q2"}, {"QuestionID": "q3"}]}]`)

			status, body := do(http.MethodPost, "/chatbot/query", `{"SystemID": "bank", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusNotFound))
			Expect(body).To(ContainSubstring("empty corpus"))
		})

		It("returns 400 without a system", func() {
			status, _ := do(http.MethodPost, "/chatbot/query", `{"QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("POST /chatbot/query/:top_k", func() {
		BeforeEach(func() {
			train(bankTraining)
		})

		It("returns one entry per intent, best first", func() {
			status, body := do(http.MethodPost, "/chatbot/query/2",
				`{"SessionID": "s-2", "SystemID": "bank", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusOK))

			var resp []QueryResponse
			Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
			Expect(resp).To(HaveLen(2))
			Expect(resp[0].PredictedIntent.IntentID).To(Equal("payments"))
			Expect(resp[0].PredictedIntent.Confidence).To(BeNumerically("~", 1.0, 1e-6))
			Expect(resp[1].PredictedIntent.IntentID).To(Equal("hours"))
			Expect(resp[1].PredictedIntent.Confidence).To(BeNumerically("~", 0.5, 1e-6))
			Expect(resp[1].PredictedIntent.SessionID).To(Equal("s-2"))
		})

		It("caps the result at the number of distinct intents", func() {
			_, body := do(http.MethodPost, "/chatbot/query/10", `{"SystemID": "bank", "QuestionText": "pay please"}`)

			var resp []QueryResponse
			Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
			Expect(resp).To(HaveLen(2))
		})

		It("returns an empty list for top_k 0", func() {
			status, body := do(http.MethodPost, "/chatbot/query/0", `{"SystemID": "bank", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(body).To(Equal(`[]`))
		})

		It("rejects a non-integer top_k", func() {
			status, body := do(http.MethodPost, "/chatbot/query/many", `{"SystemID": "bank", "QuestionText": "pay please"}`)
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(body).To(ContainSubstring("top_k must be an integer"))
		})
	})

	It("serves expvar counters", func() {
		status, body := do(http.MethodGet, "/debug/vars", "")
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(body).To(ContainSubstring(`"intents"`))
	})

	It("does not mount /mcp without a handler", func() {
		status, _ := do(http.MethodPost, "/mcp", "{}")
		Expect(status).To(Equal(fiber.StatusNotFound))
	})
})

var _ = Describe("statusFor", func() {
	DescribeTable("maps classifier errors",
		func(err error, want int) {
			status, _ := statusFor(err)
			Expect(status).To(Equal(want))
		},
		Entry("validation", &intent.ValidationError{Field: "SystemID"}, fiber.StatusBadRequest),
		Entry("unknown system", intent.ErrUnknownSystem, fiber.StatusNotFound),
		Entry("empty corpus", intent.ErrEmptyCorpus, fiber.StatusNotFound),
		Entry("dependency", intent.ErrDependency, fiber.StatusBadGateway),
		Entry("timeout", intent.ErrTimeout, fiber.StatusGatewayTimeout),
		Entry("persistence timeout", errors.Join(intent.ErrPersistence, intent.ErrTimeout), fiber.StatusInternalServerError),
		Entry("unknown", errors.New("boom"), fiber.StatusInternalServerError),
	)
})
