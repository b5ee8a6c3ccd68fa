// Package analyzer talks to the MeCab analysis server over HTTP. The server
// is an opaque collaborator: it takes the known-morph CSV and a video id and
// returns a comprehension score.
package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Client talks to the MeCab analyzer HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates an analyzer client. timeout bounds one /analyze call.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// RemoteError is a non-success response or malformed payload from the
// analyzer. The pipeline treats it as terminal for that video id and caches
// nothing.
type RemoteError struct {
	StatusCode int // 0 when transport failed before a status arrived
	Reason     string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("analyzer: status %d: %s", e.StatusCode, e.Reason)
	}
	return "analyzer: " + e.Reason
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Analysis is a successful /analyze response.
type Analysis struct {
	Success            bool    `json:"success"`
	VideoID            string  `json:"video_id"`
	ComprehensionScore float64 `json:"comprehension_score"`
	SubtitleLength     int     `json:"subtitle_length"`
	MorphemeCount      int     `json:"morpheme_count"`
	KnownMorphsTotal   int     `json:"known_morphs_total"`
	ErrorMessage       string  `json:"error,omitempty"`
}

// analyzeRequest is the /analyze/{id} body. subtitle_text is advisory;
// older analyzer builds fetch subtitles themselves and ignore it.
type analyzeRequest struct {
	CSVData      string `json:"csv_data"`
	SubtitleText string `json:"subtitle_text,omitempty"`
}

// Analyze runs one comprehension analysis. No retries: the caller owns any
// retry policy, and every call burns a rate-limiter admission.
func (c *Client) Analyze(ctx context.Context, videoID, csv, subtitleText string) (*Analysis, error) {
	body, err := json.Marshal(analyzeRequest{
		CSVData:      base64.StdEncoding.EncodeToString([]byte(csv)),
		SubtitleText: subtitleText,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze/"+videoID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Reason: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Reason: "read body", Err: err}
	}

	var analysis Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Reason: "malformed payload", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Reason: analysis.ErrorMessage}
	}
	if !analysis.Success {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Reason: analysis.ErrorMessage}
	}
	return &analysis, nil
}

// HealthStatus is the /health response.
type HealthStatus struct {
	Status           string `json:"status"`
	MecabWorking     bool   `json:"mecab_working"`
	TestMorphemes    int    `json:"test_morphemes"`
	KnownMorphsCount int    `json:"known_morphs_count"`
}

// Health checks the analyzer.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer health: HTTP %d", resp.StatusCode)
	}

	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return nil, fmt.Errorf("analyzer health: decode: %w", err)
	}
	return &hs, nil
}

// WaitHealthy polls /health with backoff until the analyzer answers or ctx
// expires. Startup convenience only; the scoring path never retries.
func (c *Client) WaitHealthy(ctx context.Context) (*HealthStatus, error) {
	return stealth.RetryDo(ctx, stealth.DefaultRetryConfig, func() (*HealthStatus, error) {
		return c.Health(ctx)
	})
}
