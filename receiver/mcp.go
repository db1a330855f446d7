package receiver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gearsync/kit"
)

type historyReq struct {
	Limit int `json:"limit"`
}

// RegisterMCP registers the gearsync_history tool on srv.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gearsync_history",
		Description: "List the most recent gear syncs received, newest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum number of syncs (default 20)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if s.history == nil {
			return nil, fmt.Errorf("history disabled")
		}
		r := req.(*historyReq)
		return s.history.Recent(ctx, r.Limit)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r historyReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, kit.WithLogging(s.logger, "gearsync_history")(endpoint), decode)
}
