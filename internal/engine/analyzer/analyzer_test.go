package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnalyzeSuccess(t *testing.T) {
	const csv = "Morph-Lemma,Morph-Inflection\n食べる,食べた\n"
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"success":             true,
			"comprehension_score": 87,
			"morpheme_count":      120,
			"known_morphs_total":  1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	a, err := c.Analyze(context.Background(), "abc123", csv, "こんにちは")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.ComprehensionScore != 87 {
		t.Errorf("score = %v, want 87", a.ComprehensionScore)
	}
	if gotPath != "/analyze/abc123" {
		t.Errorf("path = %q, want /analyze/abc123", gotPath)
	}
	decoded, err := base64.StdEncoding.DecodeString(gotBody["csv_data"])
	if err != nil || string(decoded) != csv {
		t.Errorf("csv_data should be base64 of the CSV, got %q", gotBody["csv_data"])
	}
	if gotBody["subtitle_text"] != "こんにちは" {
		t.Errorf("subtitle_text = %q", gotBody["subtitle_text"])
	}
}

func TestAnalyzeFailureResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "No Japanese subtitles found for this video",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), "abc123", "Morph-Lemma\nx\n", "")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if re.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", re.StatusCode)
	}
}

func TestAnalyzeSuccessFalseOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "mecab unavailable"})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), "v", "Morph-Lemma\nx\n", "")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if re.Reason != "mecab unavailable" {
		t.Errorf("reason = %q", re.Reason)
	}
}

func TestAnalyzeMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), "v", "Morph-Lemma\nx\n", "")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
}

func TestAnalyzeTransportError(t *testing.T) {
	c := New("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := c.Analyze(context.Background(), "v", "Morph-Lemma\nx\n", "")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if re.StatusCode != 0 {
		t.Errorf("transport failure should carry no status, got %d", re.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":         "OK",
			"mecab_working":  true,
			"test_morphemes": 2,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	hs, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !hs.MecabWorking || hs.TestMorphemes != 2 {
		t.Errorf("unexpected health: %+v", hs)
	}
}
