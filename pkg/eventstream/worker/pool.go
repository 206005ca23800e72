// Package worker provides an asynchronous worker pool that publishes trained
// events through a wrapped eventstream.Publisher.
//
// The pool decouples broker round trips from the train request path: a train
// is acknowledged once its snapshot is durable, and the event follows.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/intents/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrQueueFull is returned by PublishTrained when the event was dropped.
var ErrQueueFull = errors.New("event queue full")

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the backend events are delivered to.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds a single delivery (defaults to 10s).
	PublishTimeout time.Duration

	// Logger is the configured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Pool publishes trained events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.TrainedEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.TrainedEvent, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// PublishTrained enqueues event for delivery. It never blocks: when the
// queue is full the event is dropped and ErrQueueFull is returned.
func (p *Pool) PublishTrained(_ context.Context, event *eventstream.TrainedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errors.New("publisher closed")
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_id", event.EventID,
			"systems", len(event.Systems),
		)
		return nil
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_id", event.EventID,
		)
		return fmt.Errorf("%w: event %s dropped", ErrQueueFull, event.EventID)
	}
}

// Close stops accepting events, waits for queued events to be delivered, and
// closes the wrapped publisher.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		p.wg.Wait()
		err = p.config.Publisher.Close()
	})
	return err
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.deliver(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) deliver(event *eventstream.TrainedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishTrained(ctx, event); err != nil {
		p.logger.Warn("failed to publish trained event",
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("trained event published", "event_id", event.EventID)
}

var _ eventstream.Publisher = (*Pool)(nil)
