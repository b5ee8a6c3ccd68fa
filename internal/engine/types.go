package engine

// --- MCP tool input/output types (JSON wire shapes) ---

type ScoreInput struct {
	VideoID string `json:"video_id" jsonschema:"YouTube video ID (11 characters)"`
	Force   bool   `json:"force,omitempty" jsonschema:"Recompute even if a cached score exists"`
}

type ScoreOutput struct {
	VideoID          string  `json:"video_id"`
	Score            float64 `json:"score"`
	Cached           bool    `json:"cached"`
	SubtitleLength   int     `json:"subtitle_length,omitempty"`
	MorphemeCount    int     `json:"morpheme_count,omitempty"`
	KnownMorphsTotal int     `json:"known_morphs_total,omitempty"`
}

type VocabLoadInput struct {
	CSV string `json:"csv" jsonschema:"AnkiMorphs CSV export with a Morph-Lemma column"`
}

type VocabLoadOutput struct {
	Morphs  int    `json:"morphs"`
	Message string `json:"message"`
}

type VocabStatusOutput struct {
	Loaded   bool   `json:"loaded"`
	Morphs   int    `json:"morphs,omitempty"`
	LoadedAt string `json:"loaded_at,omitempty"`
}

type CacheClearInput struct {
	Scope string `json:"scope,omitempty" jsonschema:"What to clear: scores (default) or all"`
}

type CacheClearOutput struct {
	Message string `json:"message"`
}

type StatusOutput struct {
	States  map[string]string `json:"states"`
	Metrics map[string]int64  `json:"metrics"`
}
