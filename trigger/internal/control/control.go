package control

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed control.js
var controlJS string

// BindingName is the Runtime binding the injected script reports through.
const BindingName = "__gearsync_binding"

// PageConfig locates the elements the control depends on.
type PageConfig struct {
	ContainerSelector string
	TabSelector       string
	ActiveClass       string
	ButtonLabel       string
	Static            bool
}

// Control injects the Sync control into a Rod page and relays page events
// to a Lifecycle.
type Control struct {
	page   *rod.Page
	cfg    PageConfig
	life   *Lifecycle
	logger *slog.Logger
}

// New creates a Control for page. Call Install, then Listen.
func New(page *rod.Page, cfg PageConfig, logger *slog.Logger) *Control {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Control{page: page, cfg: cfg, logger: logger}
	c.life = NewLifecycle(c, logger)
	return c
}

// Install adds the binding and the control script to the current document
// and to every document loaded later in the tab.
func (c *Control) Install(ctx context.Context) error {
	page := c.page.Context(ctx)

	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(page); err != nil {
		c.logger.Warn("control: addBinding failed (may already exist)", "error", err)
	}

	script, err := c.script()
	if err != nil {
		return err
	}

	if _, err := page.EvalOnNewDocument(script); err != nil {
		return fmt.Errorf("control: install on new document: %w", err)
	}
	if _, err := page.Eval("() => {\n" + script + "\n}"); err != nil {
		return fmt.Errorf("control: inject: %w", err)
	}

	c.logger.Debug("control: installed", "mode", c.mode())
	return nil
}

// Listen subscribes to binding calls and returns a function that relays
// them to the Lifecycle until ctx is done. Accepted clicks call onClick.
// Call Listen before Install so the script's first event is not missed.
// The returned function returns once no onClick call is running and none
// will start.
func (c *Control) Listen(ctx context.Context, onClick ClickFunc) (wait func()) {
	events := make(chan Event, 64)
	done := relay(ctx, events, func(ev Event) { c.life.Handle(ctx, ev, onClick) })

	pump := c.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != BindingName {
			return
		}
		var ev Event
		if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil {
			c.logger.Warn("control: parse binding payload", "error", err)
			return
		}
		select {
		case events <- ev:
		default:
			c.logger.Warn("control: event dropped, queue full", "type", ev.Type)
		}
	})
	return func() {
		pump()
		<-done
	}
}

// relay handles events in order on one goroutine until ctx is done. Mount
// and unmount evaluate in the page, which must not happen on the event pump.
// The returned channel is closed after the last handler has returned.
func relay(ctx context.Context, events <-chan Event, handle func(Event)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				handle(ev)
			}
		}
	}()
	return done
}

// Mount appends the control for generation gen.
func (c *Control) Mount(ctx context.Context, gen uint64) error {
	res, err := c.page.Context(ctx).Eval(`(gen) => window.__gearsync_mount(gen)`, gen)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("container %q not found", c.cfg.ContainerSelector)
	}
	return nil
}

// Unmount aborts the control's click listener and removes it.
func (c *Control) Unmount(ctx context.Context) error {
	_, err := c.page.Context(ctx).Eval(`() => window.__gearsync_unmount && window.__gearsync_unmount()`)
	return err
}

func (c *Control) mode() string {
	if c.cfg.Static {
		return "static"
	}
	return "tracked"
}

func (c *Control) script() (string, error) {
	cfg, err := json.Marshal(map[string]string{
		"binding":     BindingName,
		"container":   c.cfg.ContainerSelector,
		"tab":         c.cfg.TabSelector,
		"activeClass": c.cfg.ActiveClass,
		"label":       c.cfg.ButtonLabel,
		"mode":        c.mode(),
	})
	if err != nil {
		return "", err
	}
	return "window.__gearsync_cfg = " + string(cfg) + ";\n" + controlJS, nil
}
