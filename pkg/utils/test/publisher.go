package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/intents/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []*eventstream.TrainedEvent
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishTrained(_ context.Context, event *eventstream.TrainedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []*eventstream.TrainedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.TrainedEvent(nil), m.Events...)
}

func (m *MockPublisher) Close() error {
	return nil
}
