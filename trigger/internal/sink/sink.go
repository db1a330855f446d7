// Package sink defines the delivery backends for sync payloads.
package sink

import (
	"context"

	"github.com/hazyhaar/gearsync/optimizer"
)

// Sink delivers a payload. Implementations POST it to the receiver, print
// it, or hand it to in-process code.
type Sink interface {
	Send(ctx context.Context, payload optimizer.Payload) error
	Close() error
}
