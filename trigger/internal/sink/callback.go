package sink

import (
	"context"

	"github.com/hazyhaar/gearsync/optimizer"
)

// PayloadFunc is called for each payload (in-process, zero serialisation).
type PayloadFunc func(ctx context.Context, payload optimizer.Payload) error

// Callback delivers payloads via a Go function call.
type Callback struct {
	fn PayloadFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn PayloadFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, payload optimizer.Payload) error {
	if c.fn != nil {
		return c.fn(ctx, payload)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
