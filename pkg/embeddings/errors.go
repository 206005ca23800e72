package embeddings

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrTimeout is returned when the embedding provider does not answer
	// within the configured deadline.
	ErrTimeout = errors.New("embedding timed out")
)
