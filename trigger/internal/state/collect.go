// Package state recovers the optimizer state from the host page. The host
// exposes it only through its UI framework's private component tree, so the
// walk is best-effort: nodes that do not carry a store are skipped.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/gearsync/optimizer"
)

var (
	// ErrNoState means no node of the component tree yielded a state.
	ErrNoState = errors.New("state: no application state found")
	// ErrNoOptimizer means the first state found has no optimizer field.
	ErrNoOptimizer = errors.New("state: first application state has no optimizer")
	// ErrNoSavedEquip means the optimizer state has no saved equipment list.
	ErrNoSavedEquip = errors.New("state: optimizer state has no savedequip")
)

// Source returns the host application's current optimizer state.
type Source interface {
	OptimizerState(ctx context.Context) (*optimizer.State, error)
}

// Candidate is a fallible accessor for one node's state.
type Candidate func() (json.RawMessage, error)

// Collect calls every candidate in order and keeps the states of those that
// succeed. Failures are logged at debug level and skipped.
func Collect(cands []Candidate, logger *slog.Logger) []json.RawMessage {
	if logger == nil {
		logger = slog.Default()
	}
	states := make([]json.RawMessage, 0, len(cands))
	for i, c := range cands {
		s, err := c()
		if err != nil {
			logger.Debug("state: node skipped", "node", i, "error", err)
			continue
		}
		states = append(states, s)
	}
	return states
}

// First decodes the optimizer field of the first collected state. A missing
// or null optimizer or savedequip is an error, never an empty list.
func First(states []json.RawMessage) (*optimizer.State, error) {
	if len(states) == 0 {
		return nil, ErrNoState
	}

	var root struct {
		Optimizer json.RawMessage `json:"optimizer"`
	}
	if err := json.Unmarshal(states[0], &root); err != nil {
		return nil, fmt.Errorf("state: decode: %w", err)
	}
	if isNull(root.Optimizer) {
		return nil, ErrNoOptimizer
	}

	var opt struct {
		SavedEquip json.RawMessage `json:"savedequip"`
	}
	if err := json.Unmarshal(root.Optimizer, &opt); err != nil {
		return nil, fmt.Errorf("state: decode optimizer: %w", err)
	}
	if isNull(opt.SavedEquip) {
		return nil, ErrNoSavedEquip
	}

	st := &optimizer.State{SavedEquip: []optimizer.EquipmentSet{}}
	if err := json.Unmarshal(opt.SavedEquip, &st.SavedEquip); err != nil {
		return nil, fmt.Errorf("state: decode savedequip: %w", err)
	}
	return st, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
