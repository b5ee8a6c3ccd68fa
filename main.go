// go_watch — YouTube comprehension-score MCP server.
//
// Computes how much of a Japanese video's subtitles a learner understands,
// given their AnkiMorphs known-morph export. Subtitle discovery and
// normalization happen in-process; morphological analysis is delegated to a
// MeCab analyzer service over HTTP.
//
// Exposes six MCP tools: comprehension_score, score_status, vocab_load,
// vocab_status, analyzer_health, cache_clear.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_watch/internal/engine"
	"github.com/anatolykoptev/go_watch/internal/engine/analyzer"
	"github.com/anatolykoptev/go_watch/internal/engine/sources"
	"github.com/anatolykoptev/go_watch/internal/engine/store"
	"github.com/anatolykoptev/go_watch/internal/engine/vocab"
	"github.com/anatolykoptev/go_watch/internal/watchserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8892")
)

func main() {
	deps := initEngine()

	slog.Info("starting go_watch",
		slog.String("port", mcpPort),
		slog.String("analyzer", engine.Cfg.AnalyzerURL),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_watch",
		Version: version,
	}, nil)

	watchserver.RegisterTools(server, deps)
	slog.Info("tools registered", slog.Int("count", 6))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_watch",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() watchserver.Deps {
	c := engine.Config{
		AnalyzerURL:     env.Str("ANALYZER_URL", "http://127.0.0.1:9002"),
		AnalyzerTimeout: env.Duration("ANALYZER_TIMEOUT", 30*time.Second),
		RateMax:         env.Int("RATE_MAX", 300),
		RateWindow:      env.Duration("RATE_WINDOW", 60*time.Second),
		SubtitleRPS:     env.Float("SUBTITLE_RPS", 2.0),
		SubtitleBurst:   env.Int("SUBTITLE_BURST", 2),
		CacheDir:        env.Str("CACHE_DIR", defaultCacheDir()),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	engine.Init(c)

	durable := openDurable(c.CacheDir)

	bus := engine.NewInvalidationBus()
	cache := engine.NewCache(durable)
	cache.WatchBus(bus)

	vm := vocab.NewManager(bus)
	if path := env.Str("VOCAB_CSV_PATH", ""); path != "" {
		if data, err := os.ReadFile(path); err != nil {
			slog.Warn("vocab preload failed", slog.String("path", path), slog.Any("error", err))
		} else if t, err := vm.Replace(string(data)); err != nil {
			slog.Warn("vocab preload rejected", slog.String("path", path), slog.Any("error", err))
		} else {
			slog.Info("vocab preloaded", slog.String("path", path), slog.Int("morphs", t.Len()))
		}
	}

	limiter := engine.NewRateLimiter(c.RateMax, c.RateWindow)
	az := analyzer.New(c.AnalyzerURL, c.AnalyzerTimeout)
	subs := sources.New(c.HTTPClient, c.SubtitleRPS, c.SubtitleBurst)

	pipeline := engine.NewPipeline(cache, limiter, vm, az, subs)

	// Best effort — the analyzer may come up after us.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if hs, err := az.WaitHealthy(ctx); err != nil {
			slog.Warn("analyzer not healthy at startup", slog.Any("error", err))
		} else {
			slog.Info("analyzer healthy",
				slog.Bool("mecab_working", hs.MecabWorking),
				slog.Int("known_morphs", hs.KnownMorphsCount),
			)
		}
	}()

	return watchserver.Deps{Pipeline: pipeline, Analyzer: az}
}

// openDurable picks the durable cache tier from CACHE_BACKEND. Session-only
// operation is a supported degraded mode, so every failure here warns and
// falls back to nil rather than aborting startup.
func openDurable(cacheDir string) store.Store {
	backend := env.Str("CACHE_BACKEND", "sqlite")
	switch backend {
	case "none":
		slog.Info("durable cache disabled, session tier only")
		return nil
	case "redis":
		url := env.Str("REDIS_URL", "redis://localhost:6379/0")
		s, err := store.OpenRedis(url, env.Duration("CACHE_TTL", 0))
		if err != nil {
			slog.Warn("redis cache init failed, session tier only", slog.Any("error", err))
			return nil
		}
		slog.Info("redis cache initialized", slog.String("url", url))
		return s
	case "postgres":
		url := env.Str("DATABASE_URL", "")
		if url == "" {
			slog.Warn("CACHE_BACKEND=postgres but DATABASE_URL empty, session tier only")
			return nil
		}
		s, err := store.OpenPostgres(context.Background(), url)
		if err != nil {
			slog.Warn("postgres cache init failed, session tier only", slog.Any("error", err))
			return nil
		}
		slog.Info("postgres cache initialized")
		return s
	case "sqlite":
		s, err := store.OpenSQLite(cacheDir)
		if err != nil {
			slog.Warn("sqlite cache init failed, session tier only", slog.Any("error", err))
			return nil
		}
		slog.Info("sqlite cache initialized", slog.String("dir", cacheDir))
		return s
	default:
		slog.Warn("unknown CACHE_BACKEND, session tier only", slog.String("backend", backend))
		return nil
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/go_watch"
	}
	return ".go_watch"
}
