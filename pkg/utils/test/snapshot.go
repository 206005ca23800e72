package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/snapshot"
)

// MockSnapshotDriver keeps the last saved snapshot in memory.
type MockSnapshotDriver struct {
	mu sync.Mutex

	saved *intent.Snapshot

	// SaveErr and LoadErr are returned by Save and Load when set.
	SaveErr error
	LoadErr error

	Saves int
}

func NewMockSnapshotDriver() *MockSnapshotDriver {
	return &MockSnapshotDriver{}
}

func (m *MockSnapshotDriver) Save(_ context.Context, snap *intent.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saved = snap
	m.Saves++
	return nil
}

func (m *MockSnapshotDriver) Load(_ context.Context) (*intent.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.saved == nil {
		return nil, snapshot.ErrNotFound
	}
	return m.saved, nil
}

// Saved returns the last saved snapshot, or nil.
func (m *MockSnapshotDriver) Saved() *intent.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

func (m *MockSnapshotDriver) Close() error {
	return nil
}
