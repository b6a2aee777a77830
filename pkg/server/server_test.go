package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/duallang/duallang/pkg/cache"
	cachesqlite "github.com/duallang/duallang/pkg/cache/sqlite"
	"github.com/duallang/duallang/pkg/config"
	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/pipeline"
	"github.com/duallang/duallang/pkg/router"
	"github.com/duallang/duallang/pkg/session"
	"github.com/duallang/duallang/pkg/tracker"
)

// newUpstream fakes the Google endpoint: the translation is "[tl]" + q.
func newUpstream(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		out := "[" + q.Get("tl") + "]" + q.Get("q")
		_ = json.NewEncoder(w).Encode([]any{[]any{[]any{out, q.Get("q")}}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupServer(t *testing.T, upstream *httptest.Server) *Server {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Listen = ":0"
	cfg.Google.URL = upstream.URL
	cfg.Google.Timeout = 5 * time.Second
	cfg.Settings = models.Settings{Engine: models.EngineGoogle, TargetLanguage: "fr"}
	cfg.Scheduler.Interval = 0
	cfg.Document.Interval = 0

	tr, err := tracker.New(filepath.Join(dir, "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })

	store, err := cachesqlite.New(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := cache.New(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })

	opts := session.DefaultOptions()
	opts.Scheduler.Interval = 0
	opts.DocumentInterval = 0
	opts.HTTPClient = upstream.Client()
	sess := session.New(cfg.Settings, c, pipeline.New(router.New(cfg), c, tr), opts)
	t.Cleanup(sess.Close)

	return New(cfg, sess, tr)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestTranslate(t *testing.T) {
	var calls atomic.Int64
	srv := setupServer(t, newUpstream(t, &calls))

	for j := 0; j < 2; j++ {
		w := do(t, srv, http.MethodPost, "/v1/translate", `{"text":"hello"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp translateResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Translation != "[fr]hello" {
			t.Errorf("unexpected translation: %q", resp.Translation)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("second request should be served from cache, got %d upstream calls", calls.Load())
	}

	w := do(t, srv, http.MethodGet, "/v1/cache/stats", "")
	var stats models.CacheStats
	_ = json.NewDecoder(w.Body).Decode(&stats)
	if stats.Entries != 1 || stats.Hits != 1 {
		t.Errorf("unexpected cache stats: %+v", stats)
	}
}

func TestTranslateChunk(t *testing.T) {
	var calls atomic.Int64
	srv := setupServer(t, newUpstream(t, &calls))

	w := do(t, srv, http.MethodPost, "/v1/translate/chunk", `{"texts":["one","two","three"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp textsResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if strings.Join(resp.Translations, "|") != "[fr]one|two|three" {
		t.Errorf("unexpected translations: %v", resp.Translations)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one upstream call, got %d", calls.Load())
	}
}

func TestTranslateDocument(t *testing.T) {
	var calls atomic.Int64
	srv := setupServer(t, newUpstream(t, &calls))

	w := do(t, srv, http.MethodPost, "/v1/translate/document", `{"texts":["a","","b"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp textsResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Translations) != 3 || resp.Translations[1] != "" {
		t.Errorf("unexpected translations: %v", resp.Translations)
	}
}

func TestSettingsMaskAndMissingKey(t *testing.T) {
	var calls atomic.Int64
	srv := setupServer(t, newUpstream(t, &calls))

	w := do(t, srv, http.MethodPut, "/v1/settings", `{"engine":"gemini","target_language":"ja"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPost, "/v1/translate", `{"text":"hello"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing gemini key, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPut, "/v1/settings", `{"api_key":"AIza-secret-1234"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/v1/settings", "")
	var got models.Settings
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.APIKey != "••••••••1234" {
		t.Errorf("expected masked key, got %q", got.APIKey)
	}
	if got.Engine != models.EngineGemini || got.TargetLanguage != "ja" {
		t.Errorf("unexpected settings: %+v", got)
	}

	// Sending the mask back must not overwrite the stored key.
	w = do(t, srv, http.MethodPut, "/v1/settings", `{"api_key":"••••••••1234","target_language":"ko"}`)
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.APIKey != "••••••••1234" || got.TargetLanguage != "ko" {
		t.Errorf("unexpected settings after masked update: %+v", got)
	}

	w = do(t, srv, http.MethodPut, "/v1/settings", `{"engine":"deepl"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown engine, got %d", w.Code)
	}
}

func TestSettingsClearAPIKey(t *testing.T) {
	var calls atomic.Int64
	srv := setupServer(t, newUpstream(t, &calls))

	w := do(t, srv, http.MethodPut, "/v1/settings", `{"engine":"gemini","api_key":"AIza-secret-1234"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// An empty key keeps the stored one.
	w = do(t, srv, http.MethodPut, "/v1/settings", `{"api_key":""}`)
	var got models.Settings
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.APIKey != "••••••••1234" {
		t.Errorf("expected stored key kept, got %q", got.APIKey)
	}

	w = do(t, srv, http.MethodPut, "/v1/settings", `{"clear_api_key":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got = models.Settings{}
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.APIKey != "" || got.Engine != models.EngineGemini {
		t.Errorf("expected key cleared and engine kept, got %+v", got)
	}

	w = do(t, srv, http.MethodPost, "/v1/translate", `{"text":"hello"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 once the gemini key is cleared, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubtitleFlow(t *testing.T) {
	var calls atomic.Int64
	srv := setupServer(t, newUpstream(t, &calls))

	w := do(t, srv, http.MethodGet, "/v1/subtitles/status", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before load, got %d", w.Code)
	}

	events := `{"events":[
		{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"Hello"}]},
		{"tStartMs":1000,"segs":[{"utf8":"\n"}]},
		{"tStartMs":300000,"dDurationMs":1000,"segs":[{"utf8":"Later"}]}
	]}`
	w = do(t, srv, http.MethodPost, "/v1/subtitles", events)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPost, "/v1/subtitles/activate", `{"position_ms":0}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var act activateResponse
	_ = json.NewDecoder(w.Body).Decode(&act)
	if !act.Started {
		t.Error("expected run to start")
	}

	sched, err := srv.session.Scheduler()
	if err != nil {
		t.Fatal(err)
	}
	sched.Wait()

	w = do(t, srv, http.MethodGet, "/v1/subtitles/lookup?fragment=Later", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var lr lookupResponse
	_ = json.NewDecoder(w.Body).Decode(&lr)
	if lr.Translation != "[fr]Later" {
		t.Errorf("unexpected lookup: %+v", lr)
	}

	w = do(t, srv, http.MethodGet, "/v1/subtitles/status", "")
	var st models.TrackStatus
	_ = json.NewDecoder(w.Body).Decode(&st)
	if !st.Complete || st.Groups != 2 || st.Translated != 2 {
		t.Errorf("unexpected status: %+v", st)
	}

	w = do(t, srv, http.MethodGet, "/v1/subtitles/track?format=vtt&bilingual=true", "")
	if !strings.HasPrefix(w.Body.String(), "WEBVTT") || !strings.Contains(w.Body.String(), "Hello\n[fr]Hello") {
		t.Errorf("unexpected vtt: %s", w.Body.String())
	}

	w = do(t, srv, http.MethodPost, "/v1/subtitles/deactivate", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = do(t, srv, http.MethodDelete, "/v1/cache", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	w = do(t, srv, http.MethodGet, "/v1/subtitles/lookup?fragment=Later", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected lookup miss after cache clear, got %d", w.Code)
	}
}

func TestLoadSubtitlesFromURL(t *testing.T) {
	var calls atomic.Int64
	upstream := newUpstream(t, &calls)
	captions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"tStartMs":0,"segs":[{"utf8":"Hi"}]}]}`))
	}))
	defer captions.Close()
	srv := setupServer(t, upstream)

	w := do(t, srv, http.MethodPost, "/v1/subtitles", `{"url":"`+captions.URL+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPost, "/v1/subtitles", `{"events":[{"segs":[{"utf8":""}]}]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for empty track, got %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/v1/subtitles", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUsageAndHealth(t *testing.T) {
	var calls atomic.Int64
	srv := setupServer(t, newUpstream(t, &calls))

	_ = do(t, srv, http.MethodPost, "/v1/translate", `{"text":"hello"}`)

	w := do(t, srv, http.MethodGet, "/v1/usage", "")
	var summaries []models.UsageSummary
	_ = json.NewDecoder(w.Body).Decode(&summaries)
	if len(summaries) != 1 || summaries[0].RequestCount != 1 || summaries[0].TotalChars != 5 {
		t.Errorf("unexpected usage: %+v", summaries)
	}

	w = do(t, srv, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"abc":       "••••••••",
		"sk-123456": "••••••••3456",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
