package subtitle

import (
	"sync"

	"github.com/duallang/duallang/pkg/models"
)

// Track is a parsed caption track whose sentences are filled in place as
// translations arrive. Its length and order never change.
type Track struct {
	mu         sync.RWMutex
	groups     []models.SentenceGroup
	fragments  map[string]string
	generation uint64
}

// NewTrack creates a Track over groups.
func NewTrack(groups []models.SentenceGroup) *Track {
	return &Track{
		groups:    groups,
		fragments: make(map[string]string),
	}
}

// Len returns the number of sentence groups.
func (t *Track) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.groups)
}

// Generation changes every time the track is reset.
func (t *Track) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Groups returns a copy of the sentence groups.
func (t *Track) Groups() []models.SentenceGroup {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.SentenceGroup, len(t.groups))
	copy(out, t.groups)
	return out
}

// Sentences returns the original sentences at idx.
func (t *Track) Sentences(idx []int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = t.groups[n].OriginalSentence
	}
	return out
}

// Untranslated returns the indices of groups without a translation.
func (t *Track) Untranslated() []int {
	return t.untranslated(func(models.SentenceGroup) bool { return true })
}

// UntranslatedWithin returns untranslated groups starting in [fromMs, toMs].
func (t *Track) UntranslatedWithin(fromMs, toMs int64) []int {
	return t.untranslated(func(g models.SentenceGroup) bool {
		return g.StartMs >= fromMs && g.StartMs <= toMs
	})
}

func (t *Track) untranslated(keep func(models.SentenceGroup) bool) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var idx []int
	for i, g := range t.groups {
		if !g.Translated() && keep(g) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Apply stores translations for the groups at idx. It is a no-op returning
// false when the track was reset since gen was read.
func (t *Track) Apply(gen uint64, idx []int, translations []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return false
	}
	for i, n := range idx {
		if i >= len(translations) {
			break
		}
		tr := translations[i]
		t.groups[n].TranslatedSentence = &tr
		for _, seg := range t.groups[n].Segments {
			t.fragments[seg] = tr
		}
	}
	return true
}

// Lookup returns the sentence translation for an on-screen caption fragment.
func (t *Track) Lookup(fragment string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.fragments[CleanFragment(fragment)]
	return v, ok
}

// Reset drops every translation and invalidates in-flight Apply calls.
func (t *Track) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.groups {
		t.groups[i].TranslatedSentence = nil
	}
	t.fragments = make(map[string]string)
	t.generation++
}

// Progress returns the total and translated group counts.
func (t *Track) Progress() (total, translated int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, g := range t.groups {
		if g.Translated() {
			translated++
		}
	}
	return len(t.groups), translated
}
