// Package control injects the Sync control into the host page and keeps at
// most one control generation alive. A generation starts when the control is
// mounted and ends, with its abort handle signalled, when the tracked tab
// goes inactive or a newer generation replaces it. Clicks are only honoured
// for the live generation.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Mounter attaches and detaches the control in the page.
type Mounter interface {
	Mount(ctx context.Context, gen uint64) error
	Unmount(ctx context.Context) error
}

// ClickFunc runs for each accepted click.
type ClickFunc func(gen uint64)

// Event types sent by the injected script.
const (
	EventTab   = "tab"
	EventClick = "click"
	EventReady = "ready"
)

// Event is a message from the injected script.
type Event struct {
	Type   string `json:"type"`
	Active bool   `json:"active,omitempty"`
	Gen    uint64 `json:"gen,omitempty"`
}

// Lifecycle owns the current control generation.
type Lifecycle struct {
	mounter Mounter
	logger  *slog.Logger

	mu     sync.Mutex
	gen    uint64
	ctx    context.Context // abort handle of the live generation
	cancel context.CancelFunc
}

// NewLifecycle creates a Lifecycle with no control present.
func NewLifecycle(m Mounter, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{mounter: m, logger: logger}
}

// Activate cancels the live generation, if any, then mounts a new one and
// returns its number.
func (l *Lifecycle) Activate(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancelLocked()

	l.gen++
	gen := l.gen
	if err := l.mounter.Mount(ctx, gen); err != nil {
		return 0, fmt.Errorf("control: mount generation %d: %w", gen, err)
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())

	l.logger.Debug("control: mounted", "gen", gen)
	return gen, nil
}

// Deactivate signals the live generation's abort handle and unmounts it.
func (l *Lifecycle) Deactivate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel == nil {
		return nil
	}
	gen := l.gen
	l.cancelLocked()

	if err := l.mounter.Unmount(ctx); err != nil {
		return fmt.Errorf("control: unmount generation %d: %w", gen, err)
	}
	l.logger.Debug("control: unmounted", "gen", gen)
	return nil
}

// Accept reports whether a click from gen may trigger a sync.
func (l *Lifecycle) Accept(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx != nil && gen == l.gen && l.ctx.Err() == nil
}

// Handle dispatches an event from the page.
func (l *Lifecycle) Handle(ctx context.Context, ev Event, onClick ClickFunc) {
	switch ev.Type {
	case EventTab:
		if ev.Active {
			if _, err := l.Activate(ctx); err != nil {
				l.logger.Warn("control: activate failed", "error", err)
			}
			return
		}
		if err := l.Deactivate(ctx); err != nil {
			l.logger.Warn("control: deactivate failed", "error", err)
		}

	case EventReady:
		if _, err := l.Activate(ctx); err != nil {
			l.logger.Warn("control: activate failed", "error", err)
		}

	case EventClick:
		if !l.Accept(ev.Gen) {
			l.logger.Debug("control: stale click dropped", "gen", ev.Gen)
			return
		}
		onClick(ev.Gen)

	default:
		l.logger.Debug("control: unknown event", "type", ev.Type)
	}
}

func (l *Lifecycle) cancelLocked() {
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = nil
	l.ctx = nil
}
