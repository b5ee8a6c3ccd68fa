package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSelectTrack(t *testing.T) {
	ja := CaptionTrack{LanguageCode: "ja", BaseURL: "u3"}
	jaAuto := CaptionTrack{LanguageCode: "ja", Kind: "asr", BaseURL: "u2"}
	en := CaptionTrack{LanguageCode: "en", BaseURL: "u1"}
	enAuto := CaptionTrack{LanguageCode: "en", Kind: "asr", BaseURL: "u4"}

	tests := []struct {
		name   string
		tracks []CaptionTrack
		want   string // BaseURL of expected pick
		ok     bool
	}{
		{"manual japanese beats auto japanese", []CaptionTrack{en, jaAuto, ja}, "u3", true},
		{"auto japanese when no manual", []CaptionTrack{en, jaAuto}, "u2", true},
		{"no japanese falls back to first auto", []CaptionTrack{en, enAuto}, "u4", true},
		{"no japanese no auto falls back to first", []CaptionTrack{en}, "u1", true},
		{"empty input yields none", nil, "", false},
		{"japanese by name", []CaptionTrack{en, {LanguageCode: "und", Name: "日本語", BaseURL: "u5"}}, "u5", true},
		{"japanese by vss id", []CaptionTrack{en, {LanguageCode: "und", VssID: "a.ja", BaseURL: "u6"}}, "u6", true},
		{"regional japanese code", []CaptionTrack{en, {LanguageCode: "ja-JP", BaseURL: "u7"}}, "u7", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectTrack(tt.tracks)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.BaseURL != tt.want {
				t.Errorf("selected %q, want %q", got.BaseURL, tt.want)
			}
		})
	}
}

func TestNormalizeCaptionsVTT(t *testing.T) {
	payload := "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\nこんにちは\n"
	got, ok := NormalizeCaptions(payload)
	if !ok {
		t.Fatal("expected VTT payload to be recognized")
	}
	if got != "こんにちは" {
		t.Errorf("got %q, want %q", got, "こんにちは")
	}
}

func TestNormalizeCaptionsVTTMultiCue(t *testing.T) {
	payload := "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\nこんにちは\n\n2\n00:00:03.000 --> 00:00:04.000\n世界\n"
	got, ok := NormalizeCaptions(payload)
	if !ok {
		t.Fatal("expected VTT payload to be recognized")
	}
	if got != "こんにちは 世界" {
		t.Errorf("got %q, want %q", got, "こんにちは 世界")
	}
}

func TestNormalizeCaptionsTimedText(t *testing.T) {
	payload := `<?xml version="1.0" encoding="utf-8"?><transcript><text start="0.5" dur="1.2">こんにちは</text><text start="2.0" dur="1.0">世界</text></transcript>`
	got, ok := NormalizeCaptions(payload)
	if !ok {
		t.Fatal("expected timedtext payload to be recognized")
	}
	if got != "こんにちは 世界" {
		t.Errorf("got %q, want %q", got, "こんにちは 世界")
	}
}

func TestNormalizeCaptionsTimedTextEntities(t *testing.T) {
	payload := `<transcript><text start="0" dur="1">it&amp;#39;s here</text></transcript>`
	got, ok := NormalizeCaptions(payload)
	if !ok {
		t.Fatal("expected timedtext payload to be recognized")
	}
	if got != "it's here" {
		t.Errorf("got %q, want %q", got, "it's here")
	}
}

func TestNormalizeCaptionsUnrecognized(t *testing.T) {
	for _, payload := range []string{"", "<html><body>error</body></html>", "{\"captions\":[]}"} {
		if _, ok := NormalizeCaptions(payload); ok {
			t.Errorf("payload %q should not be recognized", payload)
		}
	}
}

func TestFetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<transcript><text start="0" dur="1">テスト</text></transcript>`))
	}))
	defer srv.Close()

	s := New(srv.Client(), 100, 1)
	text, ok, err := s.FetchText(context.Background(), CaptionTrack{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if !ok || text != "テスト" {
		t.Errorf("got %q (ok=%v), want テスト", text, ok)
	}
}

func TestFetchTextUnrecognizedIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("nothing caption-like"))
	}))
	defer srv.Close()

	s := New(srv.Client(), 100, 1)
	_, ok, err := s.FetchText(context.Background(), CaptionTrack{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unrecognized content must not error: %v", err)
	}
	if ok {
		t.Error("unrecognized content should yield none")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1};rest`, `{"a":1}`},
		{"nested", `{"a":{"b":2}} tail`, `{"a":{"b":2}}`},
		{"brace in string", `{"a":"}"}x`, `{"a":"}"}`},
		{"not json", `var x = 1`, ""},
		{"unterminated", `{"a":1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(extractJSON([]byte(tt.in)))
			if got != tt.want {
				t.Errorf("extractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}
