package trigger

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gearsync/kit"
	"github.com/hazyhaar/gearsync/optimizer"
)

// SyncResult is the response of the gearsync_sync tool.
type SyncResult struct {
	Entries int      `json:"entries"`
	Labels  []string `json:"labels"`
}

// RegisterMCP registers the gearsync_sync tool on srv.
func (t *Trigger) RegisterMCP(srv *mcp.Server) {
	registerSyncTool(srv, t.logger, t.SyncNow)
}

type syncFunc func(ctx context.Context) (optimizer.Payload, error)

func registerSyncTool(srv *mcp.Server, logger *slog.Logger, run syncFunc) {
	tool := &mcp.Tool{
		Name:        "gearsync_sync",
		Description: "Read the saved equipment sets from the open optimizer page and send them to the receiver, as if the Sync button were clicked.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		payload, err := run(ctx)
		if err != nil {
			return nil, err
		}
		return &SyncResult{Entries: len(payload), Labels: payload.Labels()}, nil
	}

	decode := func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, kit.WithLogging(logger, "gearsync_sync")(endpoint), decode)
}
