package watchserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_watch/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerCache(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cache_clear",
		Description: "Clear cached entries. scope=scores (default) drops comprehension and analysis entries; scope=all also drops metadata and subtitle caches.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.CacheClearInput) (*mcp.CallToolResult, engine.CacheClearOutput, error) {
		switch input.Scope {
		case "", "scores":
			deps.Pipeline.ClearScores(ctx)
			return nil, engine.CacheClearOutput{Message: "cleared cached scores"}, nil
		case "all":
			deps.Pipeline.ClearAll(ctx)
			return nil, engine.CacheClearOutput{Message: "cleared all cached entries"}, nil
		default:
			return nil, engine.CacheClearOutput{}, fmt.Errorf("unknown scope %q: want scores or all", input.Scope)
		}
	})
}
