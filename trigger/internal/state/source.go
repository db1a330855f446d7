package state

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/gearsync/optimizer"
)

//go:embed state.js
var stateJS string

// walk is the result of the traversal script.
type walk struct {
	RootError string `json:"root_error"`
	Nodes     []struct {
		State *string `json:"state"`
		Error string  `json:"error"`
	} `json:"nodes"`
}

// candidates turns the script's per-node results into accessors.
func (w walk) candidates() []Candidate {
	cands := make([]Candidate, len(w.Nodes))
	for i, n := range w.Nodes {
		cands[i] = func() (json.RawMessage, error) {
			if n.Error != "" {
				return nil, errors.New(n.Error)
			}
			if n.State == nil {
				return nil, errors.New("no state")
			}
			return json.RawMessage(*n.State), nil
		}
	}
	return cands
}

// PageSource reads the optimizer state from a live Rod page.
type PageSource struct {
	page         *rod.Page
	rootSelector string
	maxDepth     int
	logger       *slog.Logger
}

// NewPageSource creates a Source walking the component tree under the
// element matched by rootSelector, visiting at most maxDepth nodes.
func NewPageSource(page *rod.Page, rootSelector string, maxDepth int, logger *slog.Logger) *PageSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageSource{page: page, rootSelector: rootSelector, maxDepth: maxDepth, logger: logger}
}

// OptimizerState walks the tree fresh on every call.
func (s *PageSource) OptimizerState(ctx context.Context) (*optimizer.State, error) {
	res, err := s.page.Context(ctx).Eval(stateJS, s.rootSelector, s.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("state: eval: %w", err)
	}
	return decodeWalk([]byte(res.Value.Str()), s.logger)
}

func decodeWalk(data []byte, logger *slog.Logger) (*optimizer.State, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var w walk
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("state: decode walk: %w", err)
	}
	if w.RootError != "" {
		logger.Warn("state: framework root not reachable", "error", w.RootError)
	}
	return First(Collect(w.candidates(), logger))
}
