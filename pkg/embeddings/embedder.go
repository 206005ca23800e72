// Package embeddings defines the text embedding provider used to turn
// training questions and incoming queries into vectors.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding. Implementations must be
	// deterministic for a given input string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
