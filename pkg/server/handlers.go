package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/duallang/duallang/pkg/backend"
	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/session"
	"github.com/duallang/duallang/pkg/subtitle"
)

const maskPrefix = "••••••••"

type translateRequest struct {
	Text string `json:"text"`
}

type translateResponse struct {
	Translation string `json:"translation"`
}

type textsRequest struct {
	Texts []string `json:"texts"`
}

type textsResponse struct {
	Translations []string `json:"translations"`
}

type loadRequest struct {
	URL    string                `json:"url"`
	Events []models.CaptionEvent `json:"events"`
}

// settingsRequest is a partial Settings update. ClearAPIKey removes the
// stored key; an empty api_key alone keeps it.
type settingsRequest struct {
	models.Settings
	ClearAPIKey bool `json:"clear_api_key"`
}

type activateRequest struct {
	PositionMs int64 `json:"position_ms"`
}

type activateResponse struct {
	Started bool               `json:"started"`
	Status  models.TrackStatus `json:"status"`
}

type lookupResponse struct {
	Fragment    string `json:"fragment"`
	Translation string `json:"translation"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.session.TranslateText(r.Context(), req.Text)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Translation: out})
}

func (s *Server) handleTranslateChunk(w http.ResponseWriter, r *http.Request) {
	var req textsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.session.TranslateChunk(r.Context(), req.Texts)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textsResponse{Translations: out})
}

func (s *Server) handleTranslateDocument(w http.ResponseWriter, r *http.Request) {
	var req textsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.session.TranslateDocument(r.Context(), req.Texts)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textsResponse{Translations: out})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.session.Settings()
	settings.APIKey = maskSecret(settings.APIKey)
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	current := s.session.Settings()
	req := settingsRequest{Settings: current}
	if !decodeBody(w, r, &req) {
		return
	}
	next := req.Settings
	switch {
	case req.ClearAPIKey:
		next.APIKey = ""
	case next.APIKey == "" || strings.HasPrefix(next.APIKey, maskPrefix):
		// A masked or empty key means "keep the stored secret".
		next.APIKey = current.APIKey
	}
	if err := s.session.UpdateSettings(r.Context(), next); err != nil {
		writeSessionError(w, err)
		return
	}
	next.APIKey = maskSecret(next.APIKey)
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.CacheStats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearCache(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeJSONError(w, http.StatusNotFound, "usage tracking is disabled")
		return
	}
	summaries, err := s.tracker.Summary(r.Context(), models.Engine(r.URL.Query().Get("engine")))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []models.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleLoadSubtitles(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		status models.TrackStatus
		err    error
	)
	switch {
	case req.URL != "":
		status, err = s.session.LoadTrackURL(r.Context(), req.URL)
	case len(req.Events) > 0:
		status, err = s.session.LoadTrack(&models.CaptionDocument{Events: req.Events})
	default:
		writeJSONError(w, http.StatusBadRequest, "url or events is required")
		return
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	started, err := s.session.ActivateSubtitles(req.PositionMs)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	status, _ := s.session.TrackStatus()
	writeJSON(w, http.StatusAccepted, activateResponse{Started: started, Status: status})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeactivateSubtitles(); err != nil {
		writeSessionError(w, err)
		return
	}
	status, _ := s.session.TrackStatus()
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.session.TrackStatus()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	groups, err := s.session.TrackGroups()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "vtt" {
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
		_, _ = w.Write([]byte(subtitle.FormatVTT(groups, r.URL.Query().Get("bilingual") == "true")))
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	fragment := r.URL.Query().Get("fragment")
	if fragment == "" {
		writeJSONError(w, http.StatusBadRequest, "fragment is required")
		return
	}
	v, ok := s.session.LookupFragment(fragment)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no translation for fragment")
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Fragment: fragment, Translation: v})
}

func maskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) > 4:
		return maskPrefix + v[len(v)-4:]
	default:
		return maskPrefix
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrConfig):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNoTrack):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, subtitle.ErrEmptyTrack):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeJSONError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"duallang_error","code":%d}}`, message, code)
}
