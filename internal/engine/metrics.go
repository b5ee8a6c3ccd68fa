package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ScoreRequests    atomic.Int64
	ScoreFailures    atomic.Int64
	AnalyzerCalls    atomic.Int64
	AnalyzerErrors   atomic.Int64
	SubtitleFetches  atomic.Int64
	SubtitleErrors   atomic.Int64
	VocabReloads     atomic.Int64
}

var rateWaits atomic.Int64

// IncrScoreRequests increments the score request counter.
func IncrScoreRequests() { metrics.ScoreRequests.Add(1) }

// IncrScoreFailures increments the failed-score counter.
func IncrScoreFailures() { metrics.ScoreFailures.Add(1) }

// IncrAnalyzerCalls increments the analyzer call counter.
func IncrAnalyzerCalls() { metrics.AnalyzerCalls.Add(1) }

// IncrAnalyzerErrors increments the analyzer error counter.
func IncrAnalyzerErrors() { metrics.AnalyzerErrors.Add(1) }

// IncrSubtitleFetches increments the subtitle fetch counter.
func IncrSubtitleFetches() { metrics.SubtitleFetches.Add(1) }

// IncrSubtitleErrors increments the subtitle error counter.
func IncrSubtitleErrors() { metrics.SubtitleErrors.Add(1) }

// IncrVocabReloads increments the vocabulary reload counter.
func IncrVocabReloads() { metrics.VocabReloads.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"score_requests":     metrics.ScoreRequests.Load(),
		"score_failures":     metrics.ScoreFailures.Load(),
		"analyzer_calls":     metrics.AnalyzerCalls.Load(),
		"analyzer_errors":    metrics.AnalyzerErrors.Load(),
		"subtitle_fetches":   metrics.SubtitleFetches.Load(),
		"subtitle_errors":    metrics.SubtitleErrors.Load(),
		"vocab_reloads":      metrics.VocabReloads.Load(),
		"rate_waits":         rateWaits.Load(),
		"cache_hits":         hits,
		"cache_misses":       misses,
		"cache_write_errors": cacheWriteErrors.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"score_requests", "score_failures",
		"analyzer_calls", "analyzer_errors",
		"subtitle_fetches", "subtitle_errors",
		"vocab_reloads", "rate_waits",
		"cache_hits", "cache_misses", "cache_write_errors",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
