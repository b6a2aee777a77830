// Package pipeline puts the translation cache and usage recording in front of
// a backend.
package pipeline

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"github.com/duallang/duallang/pkg/backend"
	"github.com/duallang/duallang/pkg/cache"
	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/tracker"
	"github.com/google/uuid"
)

// CachingClient serves cached translations and writes successful backend
// results through to the cache.
type CachingClient struct {
	next    backend.Client
	cache   *cache.Cache
	tracker tracker.Tracker
}

// New wraps next. tr may be nil to disable usage recording.
func New(next backend.Client, c *cache.Cache, tr tracker.Tracker) *CachingClient {
	return &CachingClient{next: next, cache: c, tracker: tr}
}

func (p *CachingClient) Translate(ctx context.Context, text string, s models.Settings) (string, error) {
	if v, ok := p.cache.Get(s.Engine, s.TargetLanguage, text); ok {
		return v, nil
	}

	start := time.Now()
	result, err := p.next.Translate(ctx, text, s)
	p.record(ctx, text, s, result, err, time.Since(start))
	if err != nil {
		return "", err
	}

	if result != "" && !backend.IsSoftFailure(result) {
		if err := p.cache.Set(ctx, s.Engine, s.TargetLanguage, text, result); err != nil {
			log.Printf("[pipeline] cache write failed: %v", err)
		}
	}
	return result, nil
}

func (p *CachingClient) record(ctx context.Context, text string, s models.Settings, result string, err error, latency time.Duration) {
	if p.tracker == nil {
		return
	}
	outcome := models.OutcomeOK
	switch {
	case err != nil:
		outcome = models.OutcomeError
	case backend.IsSoftFailure(result):
		outcome = models.OutcomeSoft
	}
	rec := models.UsageRecord{
		RequestID:      uuid.NewString(),
		Engine:         s.Engine,
		TargetLanguage: s.TargetLanguage,
		Characters:     utf8.RuneCountInString(text),
		Outcome:        outcome,
		LatencyMs:      latency.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
	if recErr := p.tracker.Record(ctx, rec); recErr != nil {
		log.Printf("[pipeline] record usage: %v", recErr)
	}
}
