package watchserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_watch/internal/engine"
	"github.com/anatolykoptev/go_watch/internal/engine/analyzer"
	"github.com/anatolykoptev/go_watch/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerScore(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "comprehension_score",
		Description: "Compute the Japanese comprehension score (0-100) for a YouTube video against the loaded vocabulary. Scores are cached; pass force to recompute. Requires vocab_load first.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.ScoreInput) (*mcp.CallToolResult, engine.ScoreOutput, error) {
		if input.VideoID == "" {
			return nil, engine.ScoreOutput{}, errors.New("video_id is required")
		}

		if input.Force {
			deps.Pipeline.Forget(ctx, input.VideoID)
		}

		res, err := deps.Pipeline.GetScore(ctx, input.VideoID)
		if err != nil {
			if errors.Is(err, engine.ErrConfigurationMissing) {
				return nil, engine.ScoreOutput{}, errors.New("no vocabulary loaded: call vocab_load with your AnkiMorphs CSV export first")
			}
			return nil, engine.ScoreOutput{}, fmt.Errorf("score %s: %w", input.VideoID, err)
		}

		out := engine.ScoreOutput{
			VideoID: res.VideoID,
			Score:   res.Score,
			Cached:  res.Cached,
		}
		analysis := res.Analysis
		if analysis == nil {
			// Cache hit carries only the score; the full analysis has its
			// own cache entry.
			if a, ok := toolutil.CacheLoadJSON[analyzer.Analysis](ctx, deps.Pipeline.Cache(), engine.KindAnalysis, input.VideoID); ok {
				analysis = &a
			}
		}
		if analysis != nil {
			out.SubtitleLength = analysis.SubtitleLength
			out.MorphemeCount = analysis.MorphemeCount
			out.KnownMorphsTotal = analysis.KnownMorphsTotal
		}
		return nil, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_status",
		Description: "Show per-video pipeline states (rate_wait, fetching, done, failed) and engine metrics counters.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, engine.StatusOutput, error) {
		states := deps.Pipeline.States()
		out := engine.StatusOutput{
			States:  make(map[string]string, len(states)),
			Metrics: engine.GetMetrics(),
		}
		for id, s := range states {
			out.States[id] = string(s)
		}
		return nil, out, nil
	})
}
