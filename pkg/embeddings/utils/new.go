// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"time"

	"github.com/papercomputeco/intents/pkg/embeddings"
	"github.com/papercomputeco/intents/pkg/embeddings/guard"
	"github.com/papercomputeco/intents/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// Timeout bounds every Embed call. Zero uses guard.DefaultTimeout.
	Timeout time.Duration
}

// NewEmbedder builds the configured provider and wraps it in a guard so calls
// are serialized and bounded by Timeout.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var provider embeddings.Embedder

	switch o.ProviderType {
	case "ollama":
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
		if err != nil {
			return nil, err
		}
		provider = e
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}

	return guard.New(provider, o.Timeout), nil
}
