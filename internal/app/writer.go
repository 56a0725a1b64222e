package app

import (
	"context"
	"sync"
)

// Writer serializes every state mutation. Loops, peer messages and
// local operations all funnel through the same mutex, so there is
// exactly one writer at any moment.
type Writer struct {
	mu sync.Mutex
}

func (w *Writer) Do(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn()
}

// WrapHandler serializes a message handler with the writer.
func (w *Writer) WrapHandler(handler func(ctx context.Context, body []byte) (string, error)) func(ctx context.Context, body []byte) (string, error) {
	return func(ctx context.Context, body []byte) (string, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return handler(ctx, body)
	}
}
