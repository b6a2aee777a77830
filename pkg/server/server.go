package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/duallang/duallang/pkg/config"
	"github.com/duallang/duallang/pkg/session"
	"github.com/duallang/duallang/pkg/tracker"
)

const maxRequestBody = 8 << 20

// Server exposes a Session over HTTP.
type Server struct {
	listen  string
	session *session.Session
	tracker tracker.Tracker
	router  chi.Router
}

// New creates a Server. t may be nil when usage tracking is disabled.
func New(cfg *config.Config, sess *session.Session, t tracker.Tracker) *Server {
	s := &Server{
		listen:  cfg.Listen,
		session: sess,
		tracker: t,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(logRequests)
	r.Use(cors.Handler(corsOptions(cfg.CORSOrigins)))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(maxBodySize(maxRequestBody))

		r.Post("/translate", s.handleTranslate)
		r.Post("/translate/chunk", s.handleTranslateChunk)
		r.Post("/translate/document", s.handleTranslateDocument)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache", s.handleClearCache)

		r.Get("/usage", s.handleUsage)

		r.Post("/subtitles", s.handleLoadSubtitles)
		r.Post("/subtitles/activate", s.handleActivate)
		r.Post("/subtitles/deactivate", s.handleDeactivate)
		r.Get("/subtitles/status", s.handleStatus)
		r.Get("/subtitles/track", s.handleTrack)
		r.Get("/subtitles/lookup", s.handleLookup)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("duallang listening on %s", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}
