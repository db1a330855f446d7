package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/gearsync/idgen"
	"github.com/hazyhaar/gearsync/optimizer"
	"github.com/hazyhaar/gearsync/trigger/internal/state"
)

// Source returns the host application's current optimizer state.
type Source = state.Source

// ErrNoState, ErrNoOptimizer and ErrNoSavedEquip are returned by Run when
// the host page exposes no usable state. Nothing is sent in that case.
var (
	ErrNoState      = state.ErrNoState
	ErrNoOptimizer  = state.ErrNoOptimizer
	ErrNoSavedEquip = state.ErrNoSavedEquip
)

// Pipeline is one sync activation: retrieve the state, build the payload,
// transmit it.
type Pipeline struct {
	Source  Source
	Sink    Sink
	Logger  *slog.Logger
	Timeout time.Duration // per activation; 0 means no limit

	wg    sync.WaitGroup
	newID idgen.Generator
	once  sync.Once
}

func (p *Pipeline) init() {
	p.once.Do(func() {
		if p.Logger == nil {
			p.Logger = slog.Default()
		}
		p.newID = idgen.Prefixed("act_", idgen.Default)
	})
}

// Run performs one activation synchronously and returns the payload sent.
func (p *Pipeline) Run(ctx context.Context) (optimizer.Payload, error) {
	p.init()
	if p.Source == nil || p.Sink == nil {
		return nil, errors.New("trigger: pipeline needs a source and a sink")
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	st, err := p.Source.OptimizerState(ctx)
	if err != nil {
		return nil, err
	}

	payload := optimizer.BuildPayload(st.SavedEquip)
	if err := p.Sink.Send(ctx, payload); err != nil {
		return payload, fmt.Errorf("trigger: send: %w", err)
	}
	return payload, nil
}

// Fire starts an activation in the background. Concurrent activations are
// independent; each logs once when its request settles.
func (p *Pipeline) Fire(ctx context.Context) string {
	p.init()
	id := p.newID()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		start := time.Now()
		payload, err := p.Run(ctx)

		attrs := []any{"activation", id, "entries", len(payload), "duration", time.Since(start)}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		p.Logger.Info("trigger: sync settled", attrs...)
	}()
	return id
}

// Wait blocks until every fired activation has settled.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
