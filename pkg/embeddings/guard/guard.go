// Package guard wraps an embeddings.Embedder so calls are serialized behind a
// single lock and bounded by a deadline.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/papercomputeco/intents/pkg/embeddings"
)

// DefaultTimeout bounds a single Embed call, including time spent waiting for
// the lock.
const DefaultTimeout = 30 * time.Second

// Embedder serializes access to a provider that is not safe for concurrent
// use and converts deadline overruns into embeddings.ErrTimeout.
type Embedder struct {
	mu       sync.Mutex
	provider embeddings.Embedder
	timeout  time.Duration
}

// New wraps provider. A zero timeout uses DefaultTimeout.
func New(provider embeddings.Embedder, timeout time.Duration) *Embedder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Embedder{
		provider: provider,
		timeout:  timeout,
	}
}

// Embed runs the wrapped provider under the lock and deadline.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		vec []float32
		err error
	}
	done := make(chan result, 1)

	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		// The deadline may have passed while waiting on the lock.
		if err := ctx.Err(); err != nil {
			done <- result{err: err}
			return
		}

		vec, err := e.provider.Embed(ctx, text)
		done <- result{vec: vec, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s: %w", embeddings.ErrTimeout, e.timeout, r.err)
			}
			return nil, r.err
		}
		return r.vec, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", embeddings.ErrTimeout, e.timeout)
		}
		return nil, ctx.Err()
	}
}

// Close closes the wrapped provider.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.provider.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
