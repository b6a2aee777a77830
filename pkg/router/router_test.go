package router

import (
	"context"
	"errors"
	"testing"

	"github.com/duallang/duallang/pkg/backend"
	"github.com/duallang/duallang/pkg/config"
	"github.com/duallang/duallang/pkg/models"
)

type fixedClient string

func (f fixedClient) Translate(_ context.Context, text string, _ models.Settings) (string, error) {
	return string(f) + ":" + text, nil
}

func TestNewRegistersBothEngines(t *testing.T) {
	r := New(config.Default())
	for _, e := range []models.Engine{models.EngineGoogle, models.EngineGemini} {
		if _, err := r.Resolve(e); err != nil {
			t.Errorf("expected backend for %s: %v", e, err)
		}
	}
	c, _ := r.Resolve(models.EngineGemini)
	if _, ok := c.(*backend.Gemini); !ok {
		t.Errorf("expected *backend.Gemini, got %T", c)
	}
}

func TestTranslateDispatchesByEngine(t *testing.T) {
	r := NewWithClients(map[models.Engine]backend.Client{
		models.EngineGoogle: fixedClient("g"),
		models.EngineGemini: fixedClient("m"),
	})

	got, err := r.Translate(context.Background(), "hi", models.Settings{Engine: models.EngineGemini})
	if err != nil {
		t.Fatal(err)
	}
	if got != "m:hi" {
		t.Errorf("expected m:hi, got %s", got)
	}

	got, _ = r.Translate(context.Background(), "hi", models.Settings{Engine: models.EngineGoogle})
	if got != "g:hi" {
		t.Errorf("expected g:hi, got %s", got)
	}
}

func TestResolveUnknownEngine(t *testing.T) {
	r := NewWithClients(map[models.Engine]backend.Client{})
	_, err := r.Translate(context.Background(), "hi", models.Settings{Engine: "deepl"})
	if !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("expected ErrUnknownEngine, got %v", err)
	}
}

func TestUnknownEngineIsConfigError(t *testing.T) {
	if !errors.Is(ErrUnknownEngine, backend.ErrConfig) {
		t.Error("expected ErrUnknownEngine to be a configuration error")
	}
}
