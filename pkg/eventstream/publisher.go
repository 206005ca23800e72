package eventstream

import "context"

// Publisher publishes trained events to an event stream backend.
type Publisher interface {
	PublishTrained(ctx context.Context, event *TrainedEvent) error
	Close() error
}
