package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/anatolykoptev/go_watch/internal/engine/analyzer"
	"github.com/anatolykoptev/go_watch/internal/engine/sources"
	"github.com/anatolykoptev/go_watch/internal/engine/vocab"
)

// ScoreState is where one video id currently sits in the pipeline.
type ScoreState string

const (
	StateUnseen   ScoreState = "unseen"
	StateRateWait ScoreState = "rate_wait"
	StateFetching ScoreState = "fetching"
	StateDone     ScoreState = "done"
	StateFailed   ScoreState = "failed"
)

// ErrConfigurationMissing means no vocabulary table is loaded; scoring fails
// before any network call.
var ErrConfigurationMissing = errors.New("engine: no vocabulary table loaded")

// ErrNoSubtitles means no usable caption track exists for the video.
var ErrNoSubtitles = errors.New("engine: no usable subtitles for video")

// SubtitleSource is what the pipeline needs from the subtitle layer.
type SubtitleSource interface {
	Discover(ctx context.Context, videoID string) ([]sources.CaptionTrack, error)
	FetchText(ctx context.Context, track sources.CaptionTrack) (string, bool, error)
}

// Analyzer is what the pipeline needs from the remote analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, videoID, csv, subtitleText string) (*analyzer.Analysis, error)
}

// ScoreResult is one finished comprehension computation.
type ScoreResult struct {
	VideoID string
	Score   float64
	Cached  bool
	// Analysis is nil when the score came from cache.
	Analysis *analyzer.Analysis
}

// Pipeline composes the cache, rate limiter, vocabulary table, subtitle
// source, and analyzer into per-video comprehension scoring. Each instance
// owns its cache; there is no ambient shared state.
type Pipeline struct {
	cache     *Cache
	limiter   *RateLimiter
	vocab     *vocab.Manager
	analyzer  Analyzer
	subtitles SubtitleSource

	mu     sync.Mutex
	states map[string]ScoreState
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(cache *Cache, limiter *RateLimiter, vm *vocab.Manager, az Analyzer, subs SubtitleSource) *Pipeline {
	return &Pipeline{
		cache:     cache,
		limiter:   limiter,
		vocab:     vm,
		analyzer:  az,
		subtitles: subs,
		states:    make(map[string]ScoreState),
	}
}

// Cache exposes the pipeline's cache for explicit clear operations.
func (p *Pipeline) Cache() *Cache { return p.cache }

// Vocab exposes the vocabulary manager.
func (p *Pipeline) Vocab() *vocab.Manager { return p.vocab }

func (p *Pipeline) setState(videoID string, s ScoreState) {
	p.mu.Lock()
	p.states[videoID] = s
	p.mu.Unlock()
}

// States returns a snapshot of per-video pipeline states.
func (p *Pipeline) States() map[string]ScoreState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]ScoreState, len(p.states))
	for k, v := range p.states {
		out[k] = v
	}
	return out
}

// GetScore computes (or returns the cached) comprehension score for one
// video. Failures are local to this video id and never cache anything.
func (p *Pipeline) GetScore(ctx context.Context, videoID string) (*ScoreResult, error) {
	IncrScoreRequests()

	res, err := p.getScore(ctx, videoID)
	if err != nil {
		IncrScoreFailures()
		p.setState(videoID, StateFailed)
		return nil, err
	}
	p.setState(videoID, StateDone)
	return res, nil
}

func (p *Pipeline) getScore(ctx context.Context, videoID string) (*ScoreResult, error) {
	// 1. Cached score: terminal, no limiter admission.
	if raw, ok := p.cache.Get(ctx, KindComprehension, videoID); ok {
		score, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			return &ScoreResult{VideoID: videoID, Score: score, Cached: true}, nil
		}
		// Corrupt entry: drop it and recompute.
		p.cache.Invalidate(ctx, func(key string) bool {
			return key == CacheKeyFor(KindComprehension, videoID)
		})
	}

	// 2. One admission per outbound analysis; may suspend.
	p.setState(videoID, StateRateWait)
	if err := p.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	// 3. A vocabulary table must be loaded before any network call.
	table := p.vocab.Active()
	if table == nil {
		return nil, ErrConfigurationMissing
	}

	p.setState(videoID, StateFetching)

	// 4. Subtitle text, cache-checked before any fetch.
	text, err := p.subtitleText(ctx, videoID)
	if err != nil {
		return nil, err
	}

	// 5. Remote analysis. Nothing is cached on failure.
	IncrAnalyzerCalls()
	analysis, err := p.analyzer.Analyze(ctx, videoID, p.vocab.CSV(), text)
	if err != nil {
		IncrAnalyzerErrors()
		return nil, fmt.Errorf("score %s: %w", videoID, err)
	}

	// 6. Cache the full analysis and the bare score, both tiers.
	if data, err := json.Marshal(analysis); err == nil {
		p.cache.Put(ctx, KindAnalysis, videoID, string(data))
	}
	p.cache.Put(ctx, KindComprehension, videoID, strconv.FormatFloat(analysis.ComprehensionScore, 'f', -1, 64))

	slog.Info("pipeline: scored",
		slog.String("id", videoID),
		slog.Float64("score", analysis.ComprehensionScore),
		slog.Int("morphemes", analysis.MorphemeCount),
	)
	return &ScoreResult{VideoID: videoID, Score: analysis.ComprehensionScore, Analysis: analysis}, nil
}

// subtitleText returns the flattened subtitle text for a video, checking the
// subtitle and metadata caches before touching the network.
func (p *Pipeline) subtitleText(ctx context.Context, videoID string) (string, error) {
	if text, ok := p.cache.Get(ctx, KindSubtitles, videoID); ok {
		return text, nil
	}

	tracks, err := p.captionTracks(ctx, videoID)
	if err != nil {
		return "", err
	}

	track, ok := sources.SelectTrack(tracks)
	if !ok {
		return "", fmt.Errorf("%w: no caption tracks for %s", ErrNoSubtitles, videoID)
	}

	IncrSubtitleFetches()
	text, ok, err := p.subtitles.FetchText(ctx, track)
	if err != nil {
		IncrSubtitleErrors()
		return "", fmt.Errorf("subtitles for %s: %w", videoID, err)
	}
	if !ok || text == "" {
		IncrSubtitleErrors()
		return "", fmt.Errorf("%w: unrecognized caption payload for %s", ErrNoSubtitles, videoID)
	}

	p.cache.Put(ctx, KindSubtitles, videoID, text)
	return text, nil
}

// captionTracks returns the video's track list, from the metadata cache when
// possible.
func (p *Pipeline) captionTracks(ctx context.Context, videoID string) ([]sources.CaptionTrack, error) {
	if raw, ok := p.cache.Get(ctx, KindMetadata, videoID); ok {
		var tracks []sources.CaptionTrack
		if json.Unmarshal([]byte(raw), &tracks) == nil {
			return tracks, nil
		}
	}

	tracks, err := p.subtitles.Discover(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", videoID, err)
	}
	if data, err := json.Marshal(tracks); err == nil {
		p.cache.Put(ctx, KindMetadata, videoID, string(data))
	}
	return tracks, nil
}

// Forget drops any cached score for one video so the next GetScore
// recomputes it. Metadata and subtitles stay cached.
func (p *Pipeline) Forget(ctx context.Context, videoID string) {
	p.cache.Invalidate(ctx, func(key string) bool {
		return key == CacheKeyFor(KindComprehension, videoID) ||
			key == CacheKeyFor(KindAnalysis, videoID)
	})
}

// ClearScores purges every comprehension and analysis entry.
func (p *Pipeline) ClearScores(ctx context.Context) {
	p.cache.InvalidateAll(ctx, KindComprehension+"_", KindAnalysis+"_")
}

// ClearAll purges every cache namespace, including vocabulary-independent
// metadata and subtitle entries.
func (p *Pipeline) ClearAll(ctx context.Context) {
	p.cache.InvalidateAll(ctx,
		KindComprehension+"_", KindAnalysis+"_",
		KindMetadata+"_", KindSubtitles+"_",
	)
}
