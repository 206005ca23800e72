package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/intents/pkg/eventstream"
	"github.com/papercomputeco/intents/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TrainedEvent
	err    error
	closed bool

	// block, when set, holds every delivery until it is closed.
	block chan struct{}
}

func (r *recordingPublisher) PublishTrained(_ context.Context, event *eventstream.TrainedEvent) error {
	if r.block != nil {
		<-r.block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) published() []*eventstream.TrainedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.TrainedEvent(nil), r.events...)
}

func newEvent(systemID string) *eventstream.TrainedEvent {
	return eventstream.NewTrainedEvent([]eventstream.SystemChange{{SystemID: systemID, Added: 1, Records: 1}})
}

var _ = Describe("Event Worker Pool", func() {
	var (
		inner *recordingPublisher
		wp    *Pool
		ctx   context.Context
	)

	BeforeEach(func() {
		inner = &recordingPublisher{}
		ctx = context.Background()

		var err error
		wp, err = NewPool(&Config{
			Publisher: inner,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(wp.Close()).To(Succeed())
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(MatchError("publisher is required"))
	})

	It("applies defaults", func() {
		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(wp.config.QueueSize).To(Equal(defaultJobQueueSize))
		Expect(wp.config.PublishTimeout).To(Equal(defaultPublishTimeout))
		Expect(wp.Close()).To(Succeed())
	})

	It("delivers every queued event before Close returns", func() {
		for _, id := range []string{"bank", "shop", "telco"} {
			Expect(wp.PublishTrained(ctx, newEvent(id))).To(Succeed())
		}

		Expect(wp.Close()).To(Succeed())

		ids := []string{}
		for _, e := range inner.published() {
			ids = append(ids, e.Systems[0].SystemID)
		}
		Expect(ids).To(ConsistOf("bank", "shop", "telco"))
		Expect(inner.closed).To(BeTrue())
	})

	It("rejects nil events", func() {
		Expect(wp.PublishTrained(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(wp.Close()).To(Succeed())
	})

	It("drops events when the queue is full", func() {
		Expect(wp.Close()).To(Succeed())

		blocking := &recordingPublisher{block: make(chan struct{})}
		small, err := NewPool(&Config{
			Publisher:  blocking,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		// The single worker takes the first event and blocks on it; the
		// second fills the queue.
		Expect(small.PublishTrained(ctx, newEvent("a"))).To(Succeed())
		Eventually(func() int { return len(small.queue) }).Should(BeZero())
		Expect(small.PublishTrained(ctx, newEvent("b"))).To(Succeed())

		err = small.PublishTrained(ctx, newEvent("c"))
		Expect(errors.Is(err, ErrQueueFull)).To(BeTrue())

		close(blocking.block)
		Expect(small.Close()).To(Succeed())
		Expect(blocking.published()).To(HaveLen(2))
	})

	It("logs and continues when delivery fails", func() {
		inner.err = errors.New("broker down")

		Expect(wp.PublishTrained(ctx, newEvent("bank"))).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(inner.published()).To(BeEmpty())
	})

	It("refuses events after Close and tolerates a second Close", func() {
		Expect(wp.Close()).To(Succeed())
		Expect(wp.PublishTrained(ctx, newEvent("bank"))).To(MatchError("publisher closed"))
		Expect(wp.Close()).To(Succeed())
	})
})
