package models

// CaptionSegment is one text fragment of a caption event.
type CaptionSegment struct {
	UTF8 string `json:"utf8"`
}

// CaptionEvent is a single timed caption event. All fields are optional.
type CaptionEvent struct {
	StartMs    *int64           `json:"tStartMs,omitempty"`
	DurationMs *int64           `json:"dDurationMs,omitempty"`
	Segs       []CaptionSegment `json:"segs,omitempty"`
}

// CaptionDocument is the raw timed-caption stream (json3 layout).
type CaptionDocument struct {
	Events []CaptionEvent `json:"events"`
}

// SentenceGroup is one caption-track unit spanning a time interval,
// translated as a whole.
type SentenceGroup struct {
	StartMs            int64    `json:"start_ms"`
	EndMs              int64    `json:"end_ms"`
	OriginalSentence   string   `json:"original_sentence"`
	Segments           []string `json:"segments"`
	TranslatedSentence *string  `json:"translated_sentence"`
}

// Translated reports whether the group has a translation.
func (g SentenceGroup) Translated() bool {
	return g.TranslatedSentence != nil
}

// TrackStatus summarises translation progress of a subtitle track.
type TrackStatus struct {
	Groups     int    `json:"groups"`
	Translated int    `json:"translated"`
	State      string `json:"state"`
	Active     bool   `json:"active"`
	Complete   bool   `json:"complete"`
	RunID      string `json:"run_id,omitempty"`
}
