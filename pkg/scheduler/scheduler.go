// Package scheduler translates a subtitle track in the background, starting
// with the sentences just ahead of the playback position.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/duallang/duallang/pkg/batch"
	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/subtitle"
	"github.com/google/uuid"
)

// State is the phase of a scheduler run.
type State string

const (
	StateIdle         State = "idle"
	StatePrioritizing State = "prioritizing"
	StateBackfilling  State = "backfilling"
	StateComplete     State = "complete"
)

// ErrAlreadyRunning is returned by Run while another run is in progress.
var ErrAlreadyRunning = errors.New("scheduler already running")

var errStale = errors.New("track was reset")

// Chunker translates an ordered batch of texts.
type Chunker interface {
	TranslateChunk(ctx context.Context, texts []string, s models.Settings) ([]string, error)
}

// Options tune the two translation phases.
type Options struct {
	Lookahead         time.Duration
	BackfillBatchSize int
	Interval          time.Duration
}

// DefaultOptions returns the standard lookahead and pacing.
func DefaultOptions() Options {
	return Options{
		Lookahead:         2 * time.Minute,
		BackfillBatchSize: 50,
		Interval:          1500 * time.Millisecond,
	}
}

// Request is one activation: the settings to translate with, the track
// generation they were read against and the playback position.
type Request struct {
	Settings   models.Settings
	Generation uint64
	PositionMs int64
}

// Scheduler drives translation of one track. At most one run is in flight;
// deactivation is observed between batches.
type Scheduler struct {
	track   *subtitle.Track
	chunker Chunker
	opts    Options

	active atomic.Bool

	mu      sync.Mutex
	running bool
	pending *Request
	state   State
	runID   string
	done    chan struct{}

	// Sleep waits between backfill batches. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates an idle Scheduler for track.
func New(track *subtitle.Track, chunker Chunker, opts Options) *Scheduler {
	if opts.BackfillBatchSize <= 0 {
		opts.BackfillBatchSize = DefaultOptions().BackfillBatchSize
	}
	return &Scheduler{
		track:   track,
		chunker: chunker,
		opts:    opts,
		state:   StateIdle,
		Sleep:   sleepCtx,
	}
}

// Activate marks translation active and starts a background run. It returns
// false when a run is already in progress; req is then kept and started when
// that run ends, if translation is still active and the track is unfinished.
func (s *Scheduler) Activate(ctx context.Context, req Request) bool {
	done, ok := s.begin(req, true)
	if !ok {
		return false
	}
	go func() {
		if err := s.loop(ctx, req, done); err != nil {
			log.Printf("[scheduler] run failed: %v", err)
		}
	}()
	return true
}

// Run is the synchronous form of Activate. It does not queue behind an
// in-flight run.
func (s *Scheduler) Run(ctx context.Context, req Request) error {
	done, ok := s.begin(req, false)
	if !ok {
		return ErrAlreadyRunning
	}
	return s.loop(ctx, req, done)
}

// Deactivate stops the current run at the next batch boundary.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.active.Store(false)
}

// Active reports whether translation is switched on.
func (s *Scheduler) Active() bool {
	return s.active.Load()
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// State returns the current phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until the in-flight run, if any, returns.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status summarises track progress and scheduler state.
func (s *Scheduler) Status() models.TrackStatus {
	total, translated := s.track.Progress()
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.TrackStatus{
		Groups:     total,
		Translated: translated,
		State:      string(s.state),
		Active:     s.active.Load(),
		Complete:   total == translated,
		RunID:      s.runID,
	}
}

// begin claims the single-flight slot. When the slot is taken and queue is
// set, req replaces any earlier queued request.
func (s *Scheduler) begin(req Request, queue bool) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active.Store(true)
	if s.running {
		if queue {
			s.pending = &req
		}
		return nil, false
	}
	s.running = true
	s.done = make(chan struct{})
	s.runID = uuid.NewString()
	return s.done, true
}

// loop executes req and then any request queued while it ran.
func (s *Scheduler) loop(ctx context.Context, req Request, done chan struct{}) error {
	for {
		err := s.run(ctx, req)

		s.mu.Lock()
		next := s.pending
		s.pending = nil
		restart := err == nil && next != nil && s.active.Load() && ctx.Err() == nil &&
			len(s.track.Untranslated()) > 0
		if !restart {
			final := StateIdle
			if len(s.track.Untranslated()) == 0 {
				final = StateComplete
			}
			s.state = final
			s.running = false
			close(done)
			s.mu.Unlock()
			return err
		}
		s.runID = uuid.NewString()
		s.mu.Unlock()
		req = *next
	}
}

func (s *Scheduler) run(ctx context.Context, req Request) (err error) {
	start := time.Now()
	settings := req.Settings
	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	log.Printf("[scheduler] run %s started at %dms (%s -> %s)", runID, req.PositionMs, settings.Engine, settings.TargetLanguage)

	defer func() {
		if errors.Is(err, errStale) {
			if settings.Debug {
				log.Printf("[scheduler] run %s superseded by a track reset", runID)
			}
			err = nil
		}
		log.Printf("[scheduler] run %s finished in %s", runID, time.Since(start).Round(time.Millisecond))
	}()

	s.setState(StatePrioritizing)
	window := s.track.UntranslatedWithin(req.PositionMs, req.PositionMs+s.opts.Lookahead.Milliseconds())
	size := batch.SubtitleChunkSize(settings.Engine)
	for i := 0; i < len(window); i += size {
		if !s.active.Load() {
			return nil
		}
		if err := s.translate(ctx, req.Generation, window[i:min(i+size, len(window))], settings); err != nil {
			return err
		}
	}

	s.setState(StateBackfilling)
	for {
		if !s.active.Load() {
			if settings.Debug {
				log.Printf("[scheduler] run %s deactivated", runID)
			}
			return nil
		}
		rest := s.track.Untranslated()
		if len(rest) == 0 {
			return nil
		}
		idx := rest[:min(s.opts.BackfillBatchSize, len(rest))]
		if err := s.translate(ctx, req.Generation, idx, settings); err != nil {
			return err
		}
		if len(rest) > len(idx) && s.opts.Interval > 0 {
			if err := s.Sleep(ctx, s.opts.Interval); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Scheduler) translate(ctx context.Context, gen uint64, idx []int, settings models.Settings) error {
	if s.track.Generation() != gen {
		return errStale
	}
	translations, err := s.chunker.TranslateChunk(ctx, s.track.Sentences(idx), settings)
	if err != nil {
		return err
	}
	if !s.track.Apply(gen, idx, translations) {
		return errStale
	}
	if settings.Debug {
		log.Printf("[scheduler] translated %d sentences", len(idx))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
