// Package trigger drives the gear optimizer page from Go. It opens the page
// in Chrome, injects a Sync control next to the optimizer's buttons and, on
// every click, reads the saved equipment sets from the page and posts them
// to the local receiver.
//
// Each click is an independent activation: there is no retry, no
// deduplication and no feedback in the page.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/gearsync/optimizer"
	"github.com/hazyhaar/gearsync/trigger/internal/browser"
	"github.com/hazyhaar/gearsync/trigger/internal/config"
	"github.com/hazyhaar/gearsync/trigger/internal/control"
	"github.com/hazyhaar/gearsync/trigger/internal/sink"
	"github.com/hazyhaar/gearsync/trigger/internal/state"
)

// Trigger is the top-level orchestrator. It owns the browser, the page
// control and the sync pipeline.
type Trigger struct {
	cfg    *Config
	mgr    *browser.Manager
	sinkR  *sink.Router
	pipe   *Pipeline
	logger *slog.Logger

	mu        sync.Mutex
	tab       *browser.Tab
	cancel    context.CancelFunc
	listening chan struct{} // closed when the control stops calling Fire
}

// New creates a Trigger from configuration. When no sinks are given they
// are built from cfg.Sinks.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) (*Trigger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(sinks) == 0 {
		built, err := SinksFromConfig(cfg.Sinks, logger)
		if err != nil {
			return nil, err
		}
		sinks = built
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Bin:              cfg.Browser.Bin,
		Headless:         cfg.Browser.Headless,
		UserDataDir:      cfg.Browser.UserDataDir,
		NoSandbox:        cfg.Browser.NoSandbox,
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})

	router := sink.NewRouter(logger, sinks...)
	return &Trigger{
		cfg:   cfg,
		mgr:   mgr,
		sinkR: router,
		pipe: &Pipeline{
			Sink:    router,
			Logger:  logger,
			Timeout: cfg.Sync.Timeout,
		},
		logger: logger,
	}, nil
}

// Start launches the browser, opens the optimizer page and installs the
// control. Clicks are served until ctx is done or Stop is called.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tab != nil {
		return fmt.Errorf("trigger: already started")
	}

	if _, err := t.mgr.Start(ctx); err != nil {
		return fmt.Errorf("trigger: start browser: %w", err)
	}

	page := t.cfg.Page
	tab, err := browser.OpenTab(ctx, t.mgr, page.URL, page.NavigateTimeout)
	if err != nil {
		return fmt.Errorf("trigger: open tab: %w", err)
	}
	t.pipe.Source = state.NewPageSource(tab.Page, page.RootSelector, page.MaxDepth, t.logger)

	ctrl := control.New(tab.Page, control.PageConfig{
		ContainerSelector: page.ContainerSelector,
		TabSelector:       page.TabSelector,
		ActiveClass:       page.ActiveClass,
		ButtonLabel:       page.ButtonLabel,
		Static:            page.Mode == config.ModeStatic,
	}, t.logger)

	runCtx, cancel := context.WithCancel(ctx)
	wait := ctrl.Listen(runCtx, func(gen uint64) {
		// In-flight activations outlive the control; Pipeline.Timeout bounds them.
		id := t.pipe.Fire(context.WithoutCancel(runCtx))
		t.logger.Debug("trigger: activation fired", "activation", id, "gen", gen)
	})
	listening := make(chan struct{})
	go func() {
		defer close(listening)
		wait()
	}()

	if err := ctrl.Install(runCtx); err != nil {
		cancel()
		<-listening
		tab.Close()
		return fmt.Errorf("trigger: install control: %w", err)
	}

	t.tab = tab
	t.cancel = cancel
	t.listening = listening

	t.logger.Info("trigger: watching page", "url", page.URL, "mode", page.Mode)
	return nil
}

// SyncNow runs one activation synchronously, without a click. Start must
// have been called.
func (t *Trigger) SyncNow(ctx context.Context) (optimizer.Payload, error) {
	t.mu.Lock()
	started := t.tab != nil
	t.mu.Unlock()
	if !started {
		return nil, fmt.Errorf("trigger: not started")
	}
	return t.pipe.Run(ctx)
}

// Stop stops listening, waits for fired activations to settle, then closes
// the sinks and the browser.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.listening != nil {
		<-t.listening
		t.listening = nil
	}
	t.pipe.Wait()

	if t.tab != nil {
		t.tab.Close()
		t.tab = nil
	}

	t.sinkR.Close()
	t.mgr.Close()
	t.logger.Info("trigger: stopped")
}
