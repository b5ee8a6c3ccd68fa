// Package watchserver exposes the comprehension-scoring engine as MCP tools:
// comprehension_score, vocab_load, vocab_status, analyzer_health,
// cache_clear, score_status.
package watchserver

import (
	"github.com/anatolykoptev/go_watch/internal/engine"
	"github.com/anatolykoptev/go_watch/internal/engine/analyzer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Deps carries the wired engine components the tools close over.
type Deps struct {
	Pipeline *engine.Pipeline
	Analyzer *analyzer.Client
}

// RegisterTools registers all comprehension tools on the given MCP server.
func RegisterTools(server *mcp.Server, deps Deps) {
	registerScore(server, deps)
	registerVocab(server, deps)
	registerHealth(server, deps)
	registerCache(server, deps)
}
