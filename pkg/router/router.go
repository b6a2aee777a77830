package router

import (
	"context"
	"fmt"

	"github.com/duallang/duallang/pkg/backend"
	"github.com/duallang/duallang/pkg/config"
	"github.com/duallang/duallang/pkg/models"
)

// ErrUnknownEngine is returned when no backend is registered for an engine.
var ErrUnknownEngine = fmt.Errorf("%w: unknown engine", backend.ErrConfig)

// Router dispatches translation calls to the backend named by Settings.Engine.
type Router struct {
	clients map[models.Engine]backend.Client
}

// New creates a Router with the Google and Gemini backends from cfg.
func New(cfg *config.Config) *Router {
	return NewWithClients(map[models.Engine]backend.Client{
		models.EngineGoogle: backend.NewGoogle(cfg.Google.URL, cfg.Google.Timeout),
		models.EngineGemini: backend.NewGemini(cfg.Gemini.URL, cfg.Gemini.Model, cfg.Gemini.Timeout),
	})
}

// NewWithClients creates a Router over an explicit engine -> client table.
func NewWithClients(clients map[models.Engine]backend.Client) *Router {
	return &Router{clients: clients}
}

// Resolve returns the backend for engine.
func (r *Router) Resolve(engine models.Engine) (backend.Client, error) {
	c, ok := r.clients[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
	return c, nil
}

// Translate resolves s.Engine and forwards the call.
func (r *Router) Translate(ctx context.Context, text string, s models.Settings) (string, error) {
	c, err := r.Resolve(s.Engine)
	if err != nil {
		return "", err
	}
	return c.Translate(ctx, text, s)
}
