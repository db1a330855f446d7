package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/gearsync/optimizer"
)

// Stdout writes each payload as a JSON line to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, payload optimizer.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(payload)
}

func (s *Stdout) Close() error { return nil }
