// Package snapshot defines durable whole-store persistence for the intent
// classifier. A Driver writes the complete multi-system record set as one
// atomic unit and reads it back at startup.
package snapshot

import (
	"context"

	"github.com/papercomputeco/intents/pkg/intent"
)

// Driver persists and restores intent.Snapshot values.
type Driver interface {
	// Save replaces the stored snapshot with snap atomically: a concurrent
	// or subsequent Load observes either the previous snapshot or snap,
	// never a mix.
	Save(ctx context.Context, snap *intent.Snapshot) error

	// Load returns the last saved snapshot. It returns ErrNotFound when
	// nothing has been saved and ErrIncompatible when stored data cannot be
	// decoded or was written with another snapshot version.
	Load(ctx context.Context) (*intent.Snapshot, error)

	// Close releases any resources held by the driver.
	Close() error
}
