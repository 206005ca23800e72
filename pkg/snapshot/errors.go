package snapshot

import "errors"

var (
	// ErrNotFound is returned by Load when no snapshot has been saved.
	ErrNotFound = errors.New("snapshot not found")

	// ErrIncompatible is returned by Load when the stored snapshot is
	// corrupt or has an unsupported version.
	ErrIncompatible = errors.New("snapshot incompatible")
)
