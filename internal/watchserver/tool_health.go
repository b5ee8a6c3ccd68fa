package watchserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_watch/internal/engine/analyzer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerHealth(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyzer_health",
		Description: "Probe the MeCab analyzer service and report whether morphological analysis is working.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, analyzer.HealthStatus, error) {
		hs, err := deps.Analyzer.Health(ctx)
		if err != nil {
			return nil, analyzer.HealthStatus{}, fmt.Errorf("analyzer unreachable: %w", err)
		}
		return nil, *hs, nil
	})
}
