package models

import "fmt"

// Engine names a remote translation backend.
type Engine string

const (
	EngineGoogle Engine = "google"
	EngineGemini Engine = "gemini"
)

// Valid reports whether e is a known engine.
func (e Engine) Valid() bool {
	return e == EngineGoogle || e == EngineGemini
}

// Settings is an immutable snapshot consumed by every translation call.
type Settings struct {
	Engine         Engine `json:"engine" yaml:"engine"`
	TargetLanguage string `json:"target_language" yaml:"target_language"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key"`
	Debug          bool   `json:"debug" yaml:"debug"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Engine:         EngineGoogle,
		TargetLanguage: "zh-CN",
	}
}

// Validate checks the fields that are required regardless of engine.
func (s Settings) Validate() error {
	if !s.Engine.Valid() {
		return fmt.Errorf("unknown engine %q", s.Engine)
	}
	if s.TargetLanguage == "" {
		return fmt.Errorf("target language is required")
	}
	return nil
}

// Invalidates reports whether switching from s to next must drop cached
// translations and in-progress subtitle state.
func (s Settings) Invalidates(next Settings) bool {
	return s.Engine != next.Engine || s.TargetLanguage != next.TargetLanguage
}
