package watchserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_watch/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerVocab(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "vocab_load",
		Description: "Load (or replace) the known-morph vocabulary from an AnkiMorphs CSV export. Replacing the table purges all cached scores; metadata and subtitle caches survive.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input engine.VocabLoadInput) (*mcp.CallToolResult, engine.VocabLoadOutput, error) {
		if input.CSV == "" {
			return nil, engine.VocabLoadOutput{}, errors.New("csv is required")
		}

		table, err := deps.Pipeline.Vocab().Replace(input.CSV)
		if err != nil {
			return nil, engine.VocabLoadOutput{}, fmt.Errorf("load vocabulary: %w", err)
		}
		engine.IncrVocabReloads()

		return nil, engine.VocabLoadOutput{
			Morphs:  table.Len(),
			Message: fmt.Sprintf("vocabulary loaded: %d known morphs; cached scores invalidated", table.Len()),
		}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vocab_status",
		Description: "Report whether a vocabulary table is loaded, its size, and when it was installed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, engine.VocabStatusOutput, error) {
		vm := deps.Pipeline.Vocab()
		table := vm.Active()
		if table == nil {
			return nil, engine.VocabStatusOutput{Loaded: false}, nil
		}

		out := engine.VocabStatusOutput{Loaded: true, Morphs: table.Len()}
		if at, ok := vm.LoadedAt(); ok {
			out.LoadedAt = at.UTC().Format("2006-01-02T15:04:05Z")
		}
		return nil, out, nil
	})
}
