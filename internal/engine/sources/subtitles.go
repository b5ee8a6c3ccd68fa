// Package sources discovers caption tracks for a video, selects the best
// Japanese one, and normalizes heterogeneous caption formats (timedtext XML,
// WebVTT) into plain text for the analyzer.
package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/time/rate"
)

// CaptionTrack describes one available caption track.
type CaptionTrack struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
	Kind         string `json:"kind,omitempty"` // "asr" = auto-generated
	VssID        string `json:"vssId,omitempty"`
	BaseURL      string `json:"baseUrl"`
}

// IsAuto reports whether the track is auto-generated.
func (t CaptionTrack) IsAuto() bool { return t.Kind == "asr" }

// Service fetches caption data over a shared HTTP client, paced by a
// politeness limiter so bursts of score requests don't hammer YouTube.
type Service struct {
	http *http.Client
	pace *rate.Limiter
}

// New creates a subtitle service. rps limits YouTube requests per second.
func New(httpClient *http.Client, rps float64, burst int) *Service {
	if burst < 1 {
		burst = 1
	}
	return &Service{
		http: httpClient,
		pace: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Discover returns the caption tracks available for a video, possibly empty.
// The watch page is tried first (works from any IP); the ANDROID Innertube
// player endpoint is the fallback.
func (s *Service) Discover(ctx context.Context, videoID string) ([]CaptionTrack, error) {
	if err := s.pace.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := s.playerTracksFromWatchPage(ctx, videoID)
	if err != nil {
		slog.Warn("sources: watch page failed, trying innertube",
			slog.String("id", videoID), slog.Any("err", err))
		raw, err = s.playerTracksFromInnertube(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("discover captions for %s: %w", videoID, err)
		}
	}

	tracks := make([]CaptionTrack, 0, len(raw))
	for _, t := range raw {
		tracks = append(tracks, CaptionTrack{
			LanguageCode: t.LanguageCode,
			Name:         t.displayName(),
			Kind:         t.Kind,
			VssID:        t.VssID,
			BaseURL:      t.BaseURL,
		})
	}
	return tracks, nil
}

// isJapanese reports whether a track looks like Japanese: by language code,
// by display name, or by the internal vss id.
func isJapanese(t CaptionTrack) bool {
	lang := strings.ToLower(t.LanguageCode)
	if lang == "ja" || strings.HasPrefix(lang, "ja-") {
		return true
	}
	if strings.Contains(t.Name, "日本語") || strings.Contains(strings.ToLower(t.Name), "japanese") {
		return true
	}
	return strings.Contains(t.VssID, ".ja")
}

// SelectTrack picks the best track, deterministically:
//  1. Japanese tracks only, manual preferred over auto-generated.
//  2. No Japanese track: first auto-generated track among all.
//  3. Still nothing: first track overall.
//  4. Empty input: no track.
func SelectTrack(tracks []CaptionTrack) (CaptionTrack, bool) {
	if len(tracks) == 0 {
		return CaptionTrack{}, false
	}

	var japanese []CaptionTrack
	for _, t := range tracks {
		if isJapanese(t) {
			japanese = append(japanese, t)
		}
	}
	if len(japanese) > 0 {
		for _, t := range japanese {
			if !t.IsAuto() {
				return t, true
			}
		}
		return japanese[0], true
	}

	for _, t := range tracks {
		if t.IsAuto() {
			return t, true
		}
	}
	return tracks[0], true
}

// FetchText retrieves a track's payload and flattens it to plain text.
// The format is detected by content markers, not by URL shape: a transcript
// container selects timedtext XML parsing, a WEBVTT header selects VTT
// parsing. Unrecognized content yields ("", false) rather than an error.
func (s *Service) FetchText(ctx context.Context, track CaptionTrack) (string, bool, error) {
	if err := s.pace.Wait(ctx); err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch captions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("fetch captions: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return "", false, err
	}

	text, ok := NormalizeCaptions(string(body))
	return text, ok, nil
}

// NormalizeCaptions flattens a raw caption payload to plain text.
func NormalizeCaptions(payload string) (string, bool) {
	switch {
	case strings.Contains(payload, "<transcript"):
		return parseTimedText(payload)
	case strings.HasPrefix(strings.TrimSpace(payload), "WEBVTT"):
		return parseVTT(payload), true
	default:
		return "", false
	}
}

// --- Timedtext XML ---

type ytTimedText struct {
	Lines []ytLine `xml:"text"`
}

type ytLine struct {
	Text string `xml:",chardata"`
}

// parseTimedText concatenates all leaf text nodes, single-space joined.
func parseTimedText(payload string) (string, bool) {
	var tt ytTimedText
	if err := xml.Unmarshal([]byte(payload), &tt); err != nil {
		return "", false
	}
	var sb strings.Builder
	for _, line := range tt.Lines {
		text := cleanCaption(line.Text)
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), true
}

// --- WebVTT ---

var vttSeqRe = regexp.MustCompile(`^\d+$`)

// parseVTT drops the WEBVTT header line, cue timing lines, and pure
// sequence-number lines, then joins remaining lines with single spaces.
func parseVTT(payload string) string {
	var sb strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "WEBVTT"):
			continue
		case strings.Contains(line, "-->"):
			continue
		case vttSeqRe.MatchString(line):
			continue
		}
		text := cleanCaption(line)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String()
}

var captionTagRe = regexp.MustCompile(`<[^>]+>`)

// cleanCaption strips inline markup and undoes the double entity escaping
// timedtext applies (&amp;#39; and friends).
func cleanCaption(s string) string {
	s = captionTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(html.UnescapeString(s))
	return strings.TrimSpace(s)
}
