package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/intents/pkg/eventstream"
	"github.com/papercomputeco/intents/pkg/eventstream/kafka"
	"github.com/papercomputeco/intents/pkg/eventstream/nop"
	"github.com/papercomputeco/intents/pkg/eventstream/worker"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger
}

// NewPublisher builds the configured publisher. Broker-backed publishers are
// wrapped in a worker pool so delivery happens off the train request path.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	var backend eventstream.Publisher

	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		}, o.Logger)
		if err != nil {
			return nil, err
		}
		backend = p
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}

	// One worker keeps events in train order.
	pool, err := worker.NewPool(&worker.Config{
		Publisher:  backend,
		NumWorkers: 1,
		Logger:     o.Logger,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return pool, nil
}
