// Package session owns the long-lived translation state: settings, the
// translation cache and the current subtitle track with its scheduler.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/duallang/duallang/pkg/backend"
	"github.com/duallang/duallang/pkg/batch"
	"github.com/duallang/duallang/pkg/cache"
	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/retry"
	"github.com/duallang/duallang/pkg/scheduler"
	"github.com/duallang/duallang/pkg/subtitle"
)

// ErrNoTrack is returned by subtitle operations before a track is loaded.
var ErrNoTrack = errors.New("no subtitle track loaded")

// Options configures a Session.
type Options struct {
	Retries          int
	BaseDelay        time.Duration
	Scheduler        scheduler.Options
	DocumentInterval time.Duration
	HTTPClient       *http.Client
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return Options{
		Retries:          3,
		BaseDelay:        time.Second,
		Scheduler:        scheduler.DefaultOptions(),
		DocumentInterval: 1200 * time.Millisecond,
	}
}

// Session is the explicit owner of per-user translation state.
type Session struct {
	cache   *cache.Cache
	retry   *retry.Controller
	batcher *batch.Batcher
	opts    Options

	// base outlives requests; background scheduler runs use it.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	settings models.Settings
	track    *subtitle.Track
	sched    *scheduler.Scheduler
}

// New creates a Session. client is the cached backend; c must be the cache it
// writes through to, so invalidation clears the right table.
func New(settings models.Settings, c *cache.Cache, client backend.Client, opts Options) *Session {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	rc := retry.New(client, opts.Retries, opts.BaseDelay)
	base, cancel := context.WithCancel(context.Background())
	return &Session{
		cache:    c,
		retry:    rc,
		batcher:  batch.New(rc),
		opts:     opts,
		base:     base,
		cancel:   cancel,
		settings: settings,
	}
}

// Retry exposes the retry controller so callers can replace its Sleep hook.
func (s *Session) Retry() *retry.Controller { return s.retry }

// Batcher exposes the batcher so callers can replace its Sleep hook.
func (s *Session) Batcher() *batch.Batcher { return s.batcher }

// Settings returns the current settings snapshot.
func (s *Session) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the settings. Changing the engine or target
// language stops subtitle translation, clears the cache and every translation
// of the current track.
func (s *Session) UpdateSettings(ctx context.Context, next models.Settings) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrConfig, err)
	}

	// The reset happens under mu so a request read by ActivateSubtitles
	// carries either the old settings with the old generation or the new
	// settings with the new one.
	s.mu.Lock()
	prev := s.settings
	s.settings = next
	invalidated := prev.Invalidates(next)
	if invalidated && s.track != nil {
		s.track.Reset()
	}
	sched := s.sched
	s.mu.Unlock()

	if !invalidated {
		return nil
	}
	if sched != nil {
		sched.Deactivate()
		sched.Wait()
	}
	if err := s.cache.Clear(ctx); err != nil {
		return err
	}
	log.Printf("[session] engine or language changed (%s/%s -> %s/%s), cache cleared",
		prev.Engine, prev.TargetLanguage, next.Engine, next.TargetLanguage)
	return nil
}

// ClearCache empties the translation cache and the current track's translations.
func (s *Session) ClearCache(ctx context.Context) error {
	s.mu.RLock()
	track := s.track
	s.mu.RUnlock()
	if track != nil {
		track.Reset()
	}
	return s.cache.Clear(ctx)
}

// CacheStats returns cache metrics.
func (s *Session) CacheStats() models.CacheStats {
	return s.cache.Stats()
}

// TranslateText translates a single text. Configuration errors are returned
// as errors; exhausted retries come back as a sentinel string.
func (s *Session) TranslateText(ctx context.Context, text string) (string, error) {
	settings := s.Settings()
	if err := backend.CheckSettings(settings); err != nil {
		return "", err
	}
	return s.retry.TranslateWithRetry(ctx, text, settings)
}

// TranslateChunk translates texts in a single backend call.
func (s *Session) TranslateChunk(ctx context.Context, texts []string) ([]string, error) {
	settings := s.Settings()
	if err := backend.CheckSettings(settings); err != nil {
		return nil, err
	}
	return s.batcher.TranslateChunk(ctx, texts, settings)
}

// TranslateDocument translates a paragraph list in engine-sized chunks.
func (s *Session) TranslateDocument(ctx context.Context, texts []string) ([]string, error) {
	settings := s.Settings()
	if err := backend.CheckSettings(settings); err != nil {
		return nil, err
	}
	return s.batcher.TranslateDocument(ctx, texts, settings, s.opts.DocumentInterval)
}

// LoadTrack parses doc and makes it the current track, stopping any run over
// the previous one.
func (s *Session) LoadTrack(doc *models.CaptionDocument) (models.TrackStatus, error) {
	groups := subtitle.Parse(doc)
	if len(groups) == 0 {
		return models.TrackStatus{}, subtitle.ErrEmptyTrack
	}
	track := subtitle.NewTrack(groups)
	sched := scheduler.New(track, s.batcher, s.opts.Scheduler)

	s.mu.Lock()
	old, oldSched := s.track, s.sched
	s.track, s.sched = track, sched
	s.mu.Unlock()

	if old != nil {
		oldSched.Deactivate()
		old.Reset()
		oldSched.Wait()
	}
	log.Printf("[session] loaded subtitle track with %d sentences", len(groups))
	return sched.Status(), nil
}

// LoadTrackURL fetches a json3 caption document and loads it.
func (s *Session) LoadTrackURL(ctx context.Context, url string) (models.TrackStatus, error) {
	doc, err := subtitle.Fetch(ctx, s.opts.HTTPClient, url)
	if err != nil {
		return models.TrackStatus{}, err
	}
	return s.LoadTrack(doc)
}

func (s *Session) current() (*subtitle.Track, *scheduler.Scheduler, models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.track == nil {
		return nil, nil, s.settings, ErrNoTrack
	}
	return s.track, s.sched, s.settings, nil
}

// request snapshots the settings and the track generation under one lock.
func (s *Session) request(positionMs int64) (*scheduler.Scheduler, scheduler.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.track == nil {
		return nil, scheduler.Request{}, ErrNoTrack
	}
	return s.sched, scheduler.Request{
		Settings:   s.settings,
		Generation: s.track.Generation(),
		PositionMs: positionMs,
	}, nil
}

// Scheduler returns the scheduler of the current track.
func (s *Session) Scheduler() (*scheduler.Scheduler, error) {
	_, sched, _, err := s.current()
	return sched, err
}

// ActivateSubtitles starts background translation of the current track from
// positionMs. It reports false when a run is already in flight.
func (s *Session) ActivateSubtitles(positionMs int64) (bool, error) {
	sched, req, err := s.request(positionMs)
	if err != nil {
		return false, err
	}
	if err := backend.CheckSettings(req.Settings); err != nil {
		return false, err
	}
	return sched.Activate(s.base, req), nil
}

// RunSubtitles translates the current track synchronously.
func (s *Session) RunSubtitles(ctx context.Context, positionMs int64) error {
	sched, req, err := s.request(positionMs)
	if err != nil {
		return err
	}
	if err := backend.CheckSettings(req.Settings); err != nil {
		return err
	}
	return sched.Run(ctx, req)
}

// DeactivateSubtitles stops the current run at the next batch boundary.
func (s *Session) DeactivateSubtitles() error {
	_, sched, _, err := s.current()
	if err != nil {
		return err
	}
	sched.Deactivate()
	return nil
}

// TrackStatus reports progress of the current track.
func (s *Session) TrackStatus() (models.TrackStatus, error) {
	_, sched, _, err := s.current()
	if err != nil {
		return models.TrackStatus{}, err
	}
	return sched.Status(), nil
}

// TrackGroups returns a snapshot of the current track.
func (s *Session) TrackGroups() ([]models.SentenceGroup, error) {
	track, _, _, err := s.current()
	if err != nil {
		return nil, err
	}
	return track.Groups(), nil
}

// LookupFragment returns the sentence translation for a caption fragment.
func (s *Session) LookupFragment(fragment string) (string, bool) {
	track, _, _, err := s.current()
	if err != nil {
		return "", false
	}
	return track.Lookup(fragment)
}

// Close stops background work.
func (s *Session) Close() {
	s.mu.RLock()
	sched := s.sched
	s.mu.RUnlock()
	if sched != nil {
		sched.Deactivate()
	}
	s.cancel()
	if sched != nil {
		sched.Wait()
	}
}
