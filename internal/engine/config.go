package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	AnalyzerURL     string        // MeCab analyzer base URL
	AnalyzerTimeout time.Duration // per-call timeout for /analyze
	RateMax         int           // analysis calls admitted per trailing window
	RateWindow      time.Duration // trailing rate-limit window
	SubtitleRPS     float64       // politeness pacing for YouTube fetches
	SubtitleBurst   int
	CacheDir        string // SQLite cache directory
	HTTPClient      *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, analyzer).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}
