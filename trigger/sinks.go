package trigger

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/gearsync/optimizer"
	"github.com/hazyhaar/gearsync/trigger/internal/sink"
)

// Sink is the output interface for sync payloads.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a sink POSTing each payload once to url.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process sink.
func NewCallbackSink(fn func(ctx context.Context, payload optimizer.Payload) error) Sink {
	return sink.NewCallback(fn)
}

// SinksFromConfig builds the sinks described by cfgs.
func SinksFromConfig(cfgs []SinkConfig, logger *slog.Logger) ([]Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sinks := make([]Sink, 0, len(cfgs))
	for i, c := range cfgs {
		switch c.Type {
		case "webhook":
			url := c.URL
			if url == "" {
				url = DefaultEndpoint
			}
			sinks = append(sinks, NewWebhookSink(url, logger))
		case "stdout":
			sinks = append(sinks, NewStdoutSink(nil))
		default:
			return nil, fmt.Errorf("trigger: sinks[%d]: unknown type %q", i, c.Type)
		}
	}
	return sinks, nil
}
