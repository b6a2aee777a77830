package subtitle

import (
	"strings"

	"github.com/duallang/duallang/pkg/models"
)

// DefaultTailMs is the span given to the final sentence when its last event
// carries no duration.
const DefaultTailMs = 3000

// CleanFragment normalizes caption text the way on-screen fragments are matched.
func CleanFragment(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// Parse groups caption events into sentences. An event whose segments join
// to blank text closes the running sentence; events without segments are
// ignored.
func Parse(doc *models.CaptionDocument) []models.SentenceGroup {
	var (
		groups   []models.SentenceGroup
		segments []string
		startMs  int64
		started  bool
		last     *models.CaptionEvent
	)

	closeAt := func(endMs int64) {
		if len(segments) > 0 {
			groups = append(groups, models.SentenceGroup{
				StartMs:          startMs,
				EndMs:            endMs,
				OriginalSentence: strings.Join(segments, " "),
				Segments:         segments,
			})
		}
		segments = nil
		startMs = 0
		started = false
		last = nil
	}

	for i := range doc.Events {
		ev := &doc.Events[i]
		if ev.Segs == nil {
			continue
		}

		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(b.String())

		if text == "" {
			if ev.StartMs != nil {
				closeAt(*ev.StartMs)
			} else {
				closeAt(tailEnd(last))
			}
			continue
		}

		cleaned := CleanFragment(text)
		if cleaned == "" {
			continue
		}
		if !started && ev.StartMs != nil {
			startMs = *ev.StartMs
			started = true
		}
		segments = append(segments, cleaned)
		last = ev
	}
	closeAt(tailEnd(last))

	return groups
}

func tailEnd(ev *models.CaptionEvent) int64 {
	if ev == nil {
		return 0
	}
	var start int64
	if ev.StartMs != nil {
		start = *ev.StartMs
	}
	if ev.DurationMs != nil {
		return start + *ev.DurationMs
	}
	return start + DefaultTailMs
}
